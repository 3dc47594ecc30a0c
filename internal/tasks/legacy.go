package tasks

import (
	"bufio"
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"github.com/desertthunder/ledgerx/internal/models"
	"github.com/desertthunder/ledgerx/internal/services"
)

var (
	reComment                = regexp.MustCompile(`^\s*;`)
	reAccountName            = regexp.MustCompile(`/register\?q=inacct%3A([a-zA-Z0-9%]+)"`)
	reAccountValue           = regexp.MustCompile(`<span class="[^"]*\bamount\b[^"]*">\s*([-+]?[\d.,]+)(?:\s+(\S+))?</span>`)
	reTransactionStart       = regexp.MustCompile(`<tr class="title" id="transaction-(\d+)"><td class="date"[^"]*>([\d.-]+)</td>`)
	reTransactionDescription = regexp.MustCompile(`<tr class="posting" title="(\S+)\s(.+)`)
	reTransactionDetails     = regexp.MustCompile(`^\s+([!*]\s+)?(\S[\S\s]+\S)\s\s+(?:([^\d\s+\-]+)\s*)?([-+]?\d[\d,.]*)(?:\s*([^\d\s+\-]+)\s*$)?`)
	reEnd                    = regexp.MustCompile(`\bid="addmodal"`)
	reDecimalPoint           = regexp.MustCompile(`\.\d\d?$`)
	reDecimalComma           = regexp.MustCompile(`,\d\d?$`)
)

const journalHeading = "<h2>General Journal</h2>"

type parserState int

const (
	expectingAccount parserState = iota
	expectingAccountAmount
	expectingTransaction
	expectingTransactionDescription
	expectingTransactionDetails
)

// JournalScraper implements [LegacyHTMLParser] against the /journal page of hledger-web.
//
// The page is read line by line: first the account sidebar with balances, then the journal table
// up to the add-transaction modal.
type JournalScraper struct {
	client services.Client
	logger *log.Logger
}

func NewJournalScraper(client services.Client, logger *log.Logger) *JournalScraper {
	return &JournalScraper{client: client, logger: discardLogger(logger)}
}

func (s *JournalScraper) Parse(ctx context.Context, profile models.Profile, hint int, onProgress ProgressFunc) (*LegacyParseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, err := s.client.Get(ctx, profile, services.PathJournal)
	if err != nil {
		return nil, err
	}

	p := &journalParser{seen: map[string]int{}}
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	processed := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := scanner.Text()
		if reComment.MatchString(line) {
			continue
		}

		started, done := p.feed(line)
		if started {
			processed++
			if hint > 0 && onProgress != nil {
				if err := onProgress(processed, hint); err != nil {
					return nil, err
				}
			}
		}
		if done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	p.flush()

	s.logger.Debug("journal scraped", "accounts", len(p.accounts), "transactions", len(p.transactions))
	return &LegacyParseResult{
		Accounts:     models.EnsureParents(p.accounts),
		Transactions: p.transactions,
	}, nil
}

type journalParser struct {
	state        parserState
	accounts     []models.Account
	seen         map[string]int
	last         int
	transactions []models.Transaction
	pending      *models.Transaction
	ledgerID     int64
}

// feed consumes one line. started reports a new journal entry, done the end marker.
func (p *journalParser) feed(line string) (started, done bool) {
	switch p.state {
	case expectingAccount:
		if line == journalHeading {
			p.state = expectingTransaction
			return false, false
		}
		m := reAccountName.FindStringSubmatch(line)
		if m == nil {
			return false, false
		}
		name, err := url.QueryUnescape(m[1])
		if err != nil {
			return false, false
		}
		name = strings.ReplaceAll(name, `"`, "")
		if _, ok := p.seen[name]; ok {
			return false, false
		}
		p.accounts = append(p.accounts, models.NewAccount(name))
		p.last = len(p.accounts) - 1
		p.seen[name] = p.last
		p.state = expectingAccountAmount

	case expectingAccountAmount:
		matches := reAccountValue.FindAllStringSubmatch(line, -1)
		for _, m := range matches {
			amount, err := parseHTMLAmount(m[1])
			if err != nil {
				continue
			}
			p.accounts[p.last].AddAmount(m[2], amount)
		}
		if len(matches) > 0 {
			p.state = expectingAccount
		}

	case expectingTransaction:
		if strings.HasPrefix(line, " ") {
			return false, false
		}
		if m := reTransactionStart.FindStringSubmatch(line); m != nil {
			p.ledgerID, _ = strconv.ParseInt(m[1], 10, 64)
			p.state = expectingTransactionDescription
			started = true
		}
		done = reEnd.MatchString(line)

	case expectingTransactionDescription:
		if strings.HasPrefix(line, " ") {
			return false, false
		}
		m := reTransactionDescription.FindStringSubmatch(line)
		if m == nil {
			return false, false
		}
		date := m[1]
		if i := strings.IndexByte(date, '='); i >= 0 {
			date = date[i+1:]
		}
		parsed, err := time.Parse(models.DateFormat, date)
		if err != nil {
			return false, false
		}
		p.pending = &models.Transaction{LedgerID: p.ledgerID, Date: parsed, Description: m[2]}
		p.state = expectingTransactionDetails

	case expectingTransactionDetails:
		if line == "" {
			p.flush()
			p.state = expectingTransaction
			return false, false
		}
		if tl, ok := parseJournalLine(line); ok {
			p.pending.Lines = append(p.pending.Lines, tl)
		}
	}
	return started, done
}

func (p *journalParser) flush() {
	if p.pending != nil {
		p.transactions = append(p.transactions, *p.pending)
		p.pending = nil
	}
}

// parseHTMLAmount normalises "1.000,50" and "1,000.50" style balances.
func parseHTMLAmount(value string) (decimal.Decimal, error) {
	switch {
	case reDecimalComma.MatchString(value):
		value = strings.ReplaceAll(value, ".", "")
		value = strings.ReplaceAll(value, ",", ".")
	case reDecimalPoint.MatchString(value):
		value = strings.ReplaceAll(value, ",", "")
		value = strings.ReplaceAll(value, " ", "")
	default:
		value = strings.ReplaceAll(value, ",", "")
	}
	return decimal.NewFromString(value)
}

// parseJournalLine reads one posting of a journal entry, e.g. "  assets:bank  $ -12,50".
// A currency on both sides of the amount is rejected.
func parseJournalLine(line string) (models.TransactionLine, bool) {
	m := reTransactionDetails.FindStringSubmatch(line)
	if m == nil {
		return models.TransactionLine{}, false
	}
	pre, post := m[3], m[5]
	if pre != "" && post != "" {
		return models.TransactionLine{}, false
	}

	amount, err := parseHTMLAmount(m[4])
	if err != nil {
		return models.TransactionLine{}, false
	}
	return models.TransactionLine{AccountName: m[2], Amount: &amount, Currency: pre + post}, true
}
