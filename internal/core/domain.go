package core

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	// Thing counts non-monetary items. It is never summed with money.
	Thing Currency = "thing"
	RSD   Currency = "rsd"
	EUR   Currency = "eur"
)

const maxDescriptionLen = 200

type (
	TransactionType string

	// Currency is the lowercase currency code as stored.
	Currency string

	Transaction struct {
		ID          string
		Type        TransactionType
		Amount      decimal.Decimal
		Currency    Currency
		Description string
		Date        time.Time
	}
)

var (
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidCurrency    = errors.New("invalid currency")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
)

// ParseTransactionType accepts "income" or "expense" in any case.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", ErrInvalidType
	}
	return t, nil
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// ParseCurrency normalizes a currency code to its stored lowercase form.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", ErrInvalidCurrency
	}
	return c, nil
}

func (c Currency) Valid() bool {
	switch c {
	case Thing, RSD, EUR:
		return true
	default:
		return false
	}
}

// Code returns the uppercased currency code, e.g. "EUR".
func (c Currency) Code() string {
	return strings.ToUpper(string(c))
}

// IsItem reports whether the currency is the generic item unit.
func (c Currency) IsItem() bool {
	return c == Thing
}

// ParseAmount parses a decimal amount. Both "12.5" and "12,5" are accepted.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// AmountText returns a JSON amount as text for ParseAmount. Clients send
// amounts either as numbers or as strings.
func AmountText(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		return unquoted
	}
	return s
}

// Validate checks the fields a store requires before a write.
func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if !t.Currency.Valid() {
		return ErrInvalidCurrency
	}
	if len([]rune(strings.TrimSpace(t.Description))) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return nil
}

// WithDefaults fills the date with now when the caller did not supply one.
func (t Transaction) WithDefaults(now time.Time) Transaction {
	if t.Date.IsZero() {
		t.Date = now
	}
	t.Description = strings.TrimSpace(t.Description)
	return t
}
