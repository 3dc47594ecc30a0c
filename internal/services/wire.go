package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/desertthunder/ledgerx/internal/models"
)

// ErrShapeMismatch is returned when a document does not have the layout of the requested version.
var ErrShapeMismatch = errors.New("document does not match api version")

type jsonQuantity struct {
	DecimalMantissa json.Number `json:"decimalMantissa"`
	DecimalPlaces   int32       `json:"decimalPlaces"`
	FloatingPoint   float64     `json:"floatingPoint"`
}

func (q jsonQuantity) decimal() (decimal.Decimal, error) {
	if q.DecimalMantissa == "" {
		return decimal.NewFromFloat(q.FloatingPoint), nil
	}
	m, err := decimal.NewFromString(q.DecimalMantissa.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("bad mantissa %q: %w", q.DecimalMantissa, err)
	}
	return m.Shift(-q.DecimalPlaces), nil
}

func newQuantity(d decimal.Decimal) jsonQuantity {
	places := int32(2)
	if e := -d.Exponent(); e > places {
		places = e
	}
	return jsonQuantity{
		DecimalMantissa: json.Number(d.Shift(places).BigInt().String()),
		DecimalPlaces:   places,
		FloatingPoint:   d.InexactFloat64(),
	}
}

type jsonStyle struct {
	CommoditySide   string          `json:"ascommodityside"`
	CommoditySpaced bool            `json:"ascommodityspaced"`
	DigitGroups     json.RawMessage `json:"asdigitgroups"`
	DecimalMark     string          `json:"asdecimalmark"`
	Precision       int             `json:"asprecision"`
	Rounding        string          `json:"asrounding"`
}

// newStyle renders symbols such as "$" on the left and codes such as "EUR" on the right.
func newStyle(currency string) *jsonStyle {
	s := &jsonStyle{CommoditySide: "R", CommoditySpaced: true, DigitGroups: json.RawMessage("null"), DecimalMark: ".", Precision: 2, Rounding: "NoRounding"}
	if r := []rune(currency); len(r) == 1 && !unicode.IsLetter(r[0]) {
		s.CommoditySide = "L"
		s.CommoditySpaced = false
	}
	return s
}

type jsonAmount struct {
	Commodity string       `json:"acommodity"`
	Quantity  jsonQuantity `json:"aquantity"`
	Style     *jsonStyle   `json:"astyle,omitempty"`
}

type jsonBalanceData struct {
	IncludingSubs []jsonAmount `json:"bdincludingsubs"`
	NumPostings   int          `json:"bdnumpostings"`
}

type jsonAccountData struct {
	Periods []json.RawMessage `json:"pdperiods"`
}

type jsonAccount struct {
	Name        string           `json:"aname"`
	NumPostings int              `json:"anumpostings"`
	IBalance    *[]jsonAmount    `json:"aibalance"`
	Data        *jsonAccountData `json:"adata"`
}

type jsonSourcePos struct {
	SourceName   string `json:"sourceName"`
	SourceLine   int    `json:"sourceLine"`
	SourceColumn int    `json:"sourceColumn"`
}

type jsonPosting struct {
	Account          string          `json:"paccount"`
	Amount           []jsonAmount    `json:"pamount"`
	Comment          string          `json:"pcomment"`
	Type             string          `json:"ptype"`
	Status           string          `json:"pstatus"`
	Tags             [][]string      `json:"ptags"`
	Date             *string         `json:"pdate"`
	Date2            *string         `json:"pdate2"`
	BalanceAssertion json.RawMessage `json:"pbalanceassertion"`
	Transaction      json.RawMessage `json:"ptransaction_"`
}

type jsonTransaction struct {
	Index            int64           `json:"tindex"`
	Date             string          `json:"tdate"`
	Date2            *string         `json:"tdate2"`
	Description      string          `json:"tdescription"`
	Comment          string          `json:"tcomment"`
	Code             string          `json:"tcode"`
	Status           string          `json:"tstatus"`
	PrecedingComment string          `json:"tprecedingcomment"`
	Tags             [][]string      `json:"ttags"`
	Postings         []jsonPosting   `json:"tpostings"`
	SourcePos        json.RawMessage `json:"tsourcepos"`
}

// AccountList is a decoded accounts document.
type AccountList struct {
	Accounts []models.Account
	// ExpectedPostings is the total posting count reported by the server, used as a progress hint.
	ExpectedPostings int
}

// DecodeAccounts decodes an accounts document in the layout of version v.
func DecodeAccounts(v models.APIVersion, data []byte) (*AccountList, error) {
	var raw []jsonAccount
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrShapeMismatch, err)
	}

	out := &AccountList{Accounts: make([]models.Account, 0, len(raw))}
	for _, ra := range raw {
		if ra.Name == "" {
			return nil, fmt.Errorf("%w: account without name", ErrShapeMismatch)
		}

		var (
			amounts  []jsonAmount
			postings int
			err      error
		)
		switch v {
		case models.APIv1_50:
			amounts, postings, err = periodBalance(ra)
		case models.APIv1_32, models.APIv1_40:
			if ra.IBalance == nil {
				return nil, fmt.Errorf("%w: %s has no aibalance", ErrShapeMismatch, ra.Name)
			}
			amounts, postings = *ra.IBalance, ra.NumPostings
		default:
			return nil, fmt.Errorf("no JSON codec for api version %s", v)
		}
		if err != nil {
			return nil, err
		}

		acc := models.NewAccount(ra.Name)
		for _, a := range amounts {
			d, err := a.Quantity.decimal()
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrShapeMismatch, ra.Name, err)
			}
			acc.AddAmount(a.Commodity, d)
		}
		out.Accounts = append(out.Accounts, acc)
		out.ExpectedPostings += postings
	}
	return out, nil
}

// periodBalance reads adata.pdperiods[0][1], a [date, balance data] pair.
func periodBalance(ra jsonAccount) ([]jsonAmount, int, error) {
	if ra.Data == nil {
		return nil, 0, fmt.Errorf("%w: %s has no adata", ErrShapeMismatch, ra.Name)
	}
	if len(ra.Data.Periods) == 0 {
		return nil, 0, nil
	}

	var pair []json.RawMessage
	if err := json.Unmarshal(ra.Data.Periods[0], &pair); err != nil || len(pair) != 2 {
		return nil, 0, fmt.Errorf("%w: %s has malformed pdperiods", ErrShapeMismatch, ra.Name)
	}
	var bd jsonBalanceData
	if err := json.Unmarshal(pair[1], &bd); err != nil {
		return nil, 0, fmt.Errorf("%w: %s: %w", ErrShapeMismatch, ra.Name, err)
	}
	return bd.IncludingSubs, bd.NumPostings, nil
}

// SplitTransactions splits a transactions document into its elements without decoding them.
func SplitTransactions(data []byte) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrShapeMismatch, err)
	}
	return items, nil
}

// DecodeTransaction decodes a single transaction in the layout of version v.
func DecodeTransaction(v models.APIVersion, data []byte) (models.Transaction, error) {
	var rt jsonTransaction
	if err := json.Unmarshal(data, &rt); err != nil {
		return models.Transaction{}, fmt.Errorf("%w: %w", ErrShapeMismatch, err)
	}

	pos := bytes.TrimSpace(rt.SourcePos)
	if bytes.Equal(pos, []byte("null")) {
		pos = nil
	}
	switch v {
	case models.APIv1_50:
		if len(pos) > 0 && pos[0] != '[' {
			return models.Transaction{}, fmt.Errorf("%w: tsourcepos is not a list", ErrShapeMismatch)
		}
	case models.APIv1_32, models.APIv1_40:
		if len(pos) > 0 && pos[0] != '{' {
			return models.Transaction{}, fmt.Errorf("%w: tsourcepos is not an object", ErrShapeMismatch)
		}
	default:
		return models.Transaction{}, fmt.Errorf("no JSON codec for api version %s", v)
	}

	if rt.Date == "" {
		return models.Transaction{}, fmt.Errorf("%w: transaction %d has no date", ErrShapeMismatch, rt.Index)
	}
	date, err := time.Parse(models.DateFormat, rt.Date)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("transaction %d: %w", rt.Index, err)
	}

	tx := models.Transaction{
		LedgerID:    rt.Index,
		Date:        date,
		Description: rt.Description,
		Comment:     strings.TrimSpace(rt.Comment),
	}
	for _, p := range rt.Postings {
		comment := strings.TrimSpace(p.Comment)
		if len(p.Amount) == 0 {
			tx.Lines = append(tx.Lines, models.TransactionLine{AccountName: p.Account, Comment: comment})
			continue
		}
		for _, a := range p.Amount {
			d, err := a.Quantity.decimal()
			if err != nil {
				return models.Transaction{}, fmt.Errorf("transaction %d: %w", rt.Index, err)
			}
			tx.Lines = append(tx.Lines, models.TransactionLine{
				AccountName: p.Account,
				Amount:      &d,
				Currency:    a.Commodity,
				Comment:     comment,
			})
		}
	}
	return tx, nil
}

// EncodeTransaction renders tx as the body of a PUT add request for version v.
// Lines without an account name are skipped.
func EncodeTransaction(v models.APIVersion, tx models.Transaction) ([]byte, error) {
	if !v.IsJSON() {
		return nil, fmt.Errorf("no JSON codec for api version %s", v)
	}

	const index = 1
	txRef, _ := json.Marshal(fmt.Sprint(index))

	out := jsonTransaction{
		Index:       index,
		Date:        tx.LedgerDate(),
		Description: tx.Description,
		Comment:     tx.Comment,
		Status:      "Unmarked",
		Tags:        [][]string{},
		Postings:    []jsonPosting{},
	}

	origin := jsonSourcePos{SourceLine: 1, SourceColumn: 1}
	var err error
	if v == models.APIv1_50 {
		out.SourcePos, err = json.Marshal([]jsonSourcePos{origin, origin})
	} else {
		out.SourcePos, err = json.Marshal(origin)
	}
	if err != nil {
		return nil, err
	}

	for _, line := range tx.Lines {
		if line.AccountName == "" {
			continue
		}
		p := jsonPosting{
			Account:          line.AccountName,
			Amount:           []jsonAmount{},
			Comment:          line.Comment,
			Type:             "RegularPosting",
			Status:           "Unmarked",
			Tags:             [][]string{},
			BalanceAssertion: json.RawMessage("null"),
			Transaction:      txRef,
		}
		if line.Amount != nil {
			p.Amount = append(p.Amount, jsonAmount{
				Commodity: line.Currency,
				Quantity:  newQuantity(*line.Amount),
				Style:     newStyle(line.Currency),
			})
		}
		out.Postings = append(out.Postings, p)
	}

	return json.Marshal(out)
}
