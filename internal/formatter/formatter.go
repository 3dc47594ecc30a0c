// package formatter renders synced ledger data as CSV, Markdown, plain text, or hledger journal
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/desertthunder/ledgerx/internal/models"
	"github.com/desertthunder/ledgerx/internal/shared"
)

// Format names an output format accepted by the CLI.
type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJournal  Format = "journal"
)

// ParseFormat accepts a format name, case-insensitively. "md" is short for markdown.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatCSV, FormatMarkdown, FormatJournal:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

// FormatAmount renders amount with its commodity: symbols prefix the number, codes follow it.
func FormatAmount(currency string, amount decimal.Decimal) string {
	n := amount.StringFixed(max(2, -amount.Exponent()))
	switch r := []rune(currency); {
	case len(r) == 0:
		return n
	case len(r) == 1 && !unicode.IsLetter(r[0]):
		if amount.IsNegative() {
			return "-" + currency + n[1:]
		}
		return currency + n
	default:
		return n + " " + currency
	}
}

func formatAmounts(amounts []models.AccountAmount) string {
	parts := make([]string, len(amounts))
	for i, a := range amounts {
		parts[i] = FormatAmount(a.Currency, a.Amount)
	}
	return strings.Join(parts, ", ")
}

// AccountsToCSV converts accounts to CSV with columns: Account, Level, Currency, Amount.
// Each balance is a row; accounts without balances get one row with empty amount columns.
func AccountsToCSV(accounts []models.Account) ([]byte, error) {
	var rows [][]string
	for _, a := range accounts {
		level := strconv.Itoa(a.Level)
		if len(a.Amounts) == 0 {
			rows = append(rows, []string{a.Name, level, "", ""})
			continue
		}
		for _, amt := range a.Amounts {
			rows = append(rows, []string{a.Name, level, amt.Currency, amt.Amount.String()})
		}
	}
	return writeCSV([]string{"Account", "Level", "Currency", "Amount"}, rows)
}

// TransactionsToCSV converts transactions to CSV, one row per line, with columns:
// LedgerID, Date, Description, Account, Amount, Currency, Comment
func TransactionsToCSV(transactions []models.Transaction) ([]byte, error) {
	var rows [][]string
	for _, tx := range transactions {
		id := strconv.FormatInt(tx.LedgerID, 10)
		for _, line := range tx.Lines {
			amount := ""
			if line.Amount != nil {
				amount = line.Amount.String()
			}
			rows = append(rows, []string{id, tx.LedgerDate(), tx.Description, line.AccountName, amount, line.Currency, line.Comment})
		}
	}
	return writeCSV([]string{"LedgerID", "Date", "Description", "Account", "Amount", "Currency", "Comment"}, rows)
}

func writeCSV(headers []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, record := range rows {
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// AccountsToText renders the account tree, indenting each level by two spaces.
func AccountsToText(accounts []models.Account) []byte {
	var buf bytes.Buffer
	for _, a := range accounts {
		name := a.Name
		if i := strings.LastIndex(name, ":"); i >= 0 {
			name = name[i+1:]
		}
		line := strings.Repeat("  ", a.Level) + name
		if len(a.Amounts) > 0 {
			line += "  " + formatAmounts(a.Amounts)
		}
		buf.WriteString(line + "\n")
	}
	return buf.Bytes()
}

// TransactionsToJournal renders transactions in hledger journal syntax.
func TransactionsToJournal(transactions []models.Transaction) []byte {
	var buf bytes.Buffer
	for i, tx := range transactions {
		if i > 0 {
			buf.WriteString("\n")
		}
		header := tx.LedgerDate() + " " + tx.Description
		if tx.Comment != "" {
			header += "  ; " + tx.Comment
		}
		buf.WriteString(strings.TrimRight(header, " ") + "\n")

		for _, line := range tx.Lines {
			posting := "    " + line.AccountName
			if line.Amount != nil {
				posting += "  " + FormatAmount(line.Currency, *line.Amount)
			}
			if line.Comment != "" {
				posting += "  ; " + line.Comment
			}
			buf.WriteString(posting + "\n")
		}
	}
	return buf.Bytes()
}

// ExportToMarkdown summarises a profile: last sync, balances table, and the most recent transactions.
func ExportToMarkdown(profile models.Profile, info models.SyncInfo, accounts []models.Account, transactions []models.Transaction) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", profile.Label()))
	buf.WriteString(fmt.Sprintf("**Server**: %s\n", profile.URL))
	buf.WriteString(fmt.Sprintf("**Last sync**: %s\n\n", info.Summary()))

	buf.WriteString("## Accounts\n\n")
	buf.WriteString("| Account | Balance |\n|---|---|\n")
	for _, a := range accounts {
		buf.WriteString(fmt.Sprintf("| %s | %s |\n", markdownCell(a.Name), markdownCell(formatAmounts(a.Amounts))))
	}

	buf.WriteString(fmt.Sprintf("\n## Transactions (%d)\n\n", len(transactions)))
	for _, tx := range transactions {
		buf.WriteString(fmt.Sprintf("- %s %s\n", tx.LedgerDate(), tx.Description))
	}
	return buf.Bytes()
}

func markdownCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// ExportResult lists the files written by [WriteExport].
type ExportResult struct {
	Files []string
}

// WriteExport writes accounts and transactions under dir in format.
//
// CSV produces accounts.csv and transactions.csv; the other formats produce a single file.
func WriteExport(dir string, format Format, profile models.Profile, info models.SyncInfo, accounts []models.Account, transactions []models.Transaction) (*ExportResult, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	files := map[string][]byte{}
	switch format {
	case FormatCSV:
		accountsCSV, err := AccountsToCSV(accounts)
		if err != nil {
			return nil, fmt.Errorf("failed to generate accounts CSV: %w", err)
		}
		transactionsCSV, err := TransactionsToCSV(transactions)
		if err != nil {
			return nil, fmt.Errorf("failed to generate transactions CSV: %w", err)
		}
		files["accounts.csv"] = accountsCSV
		files["transactions.csv"] = transactionsCSV
	case FormatMarkdown:
		files["README.md"] = ExportToMarkdown(profile, info, accounts, transactions)
	case FormatJournal:
		files["ledger.journal"] = TransactionsToJournal(transactions)
	default:
		files["accounts.txt"] = AccountsToText(accounts)
	}

	result := &ExportResult{}
	for _, name := range []string{"accounts.csv", "transactions.csv", "README.md", "ledger.journal", "accounts.txt"} {
		data, ok := files[name]
		if !ok {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", name, err)
		}
		result.Files = append(result.Files, path)
	}
	return result, nil
}
