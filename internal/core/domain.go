package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// DefaultBaseCurrency is the currency a bare Amount is assumed denominated in
// when a transaction carries no explicit original currency.
const DefaultBaseCurrency = "IDR"

type (
	TransactionType string

	// Transaction is a single ledger entry. Amount is always positive; the
	// sign is carried by Type. When OriginalCurrency/OriginalAmount are set,
	// Amount is already expressed in the base currency and display
	// conversions must start from the original pair instead.
	Transaction struct {
		ID               string          `json:"id"`
		Title            string          `json:"title"`
		Amount           float64         `json:"amount"`
		Category         string          `json:"category"`
		Type             TransactionType `json:"type"`
		Date             string          `json:"date"` // ISO-8601
		Note             string          `json:"note,omitempty"`
		OriginalCurrency string          `json:"originalCurrency,omitempty"`
		OriginalAmount   float64         `json:"originalAmount,omitempty"`
	}

	// TransactionPatch carries a partial update; nil fields are left
	// untouched both in storage and in the cached record.
	TransactionPatch struct {
		Title            *string          `json:"title,omitempty"`
		Amount           *float64         `json:"amount,omitempty"`
		Category         *string          `json:"category,omitempty"`
		Type             *TransactionType `json:"type,omitempty"`
		Date             *string          `json:"date,omitempty"`
		Note             *string          `json:"note,omitempty"`
		OriginalCurrency *string          `json:"originalCurrency,omitempty"`
		OriginalAmount   *float64         `json:"originalAmount,omitempty"`
	}

	// AppSettings is the singleton user preference record, persisted as one
	// serialized blob.
	AppSettings struct {
		Currency      string `json:"currency"`
		ShowDelta     bool   `json:"showDelta"`
		SelectedWeek  *int   `json:"selectedWeek,omitempty"`
		SelectedMonth string `json:"selectedMonth,omitempty"`
	}

	// SettingsPatch carries a partial settings update; nil fields leave the
	// stored preference untouched. An explicit empty SelectedMonth clears it.
	SettingsPatch struct {
		Currency      *string `json:"currency,omitempty"`
		ShowDelta     *bool   `json:"showDelta,omitempty"`
		SelectedWeek  *int    `json:"selectedWeek,omitempty"`
		SelectedMonth *string `json:"selectedMonth,omitempty"`
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyTitle    = errors.New("empty title")
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrInvalidDate   = errors.New("invalid date")
	ErrNotFound      = errors.New("transaction not found")
)

// DefaultSettings returns the built-in settings used until a stored blob is
// loaded, and retained when the blob is missing or corrupt.
func DefaultSettings() AppSettings {
	return AppSettings{
		Currency:  DefaultBaseCurrency,
		ShowDelta: false,
	}
}

func (tt TransactionType) Valid() bool {
	return tt == Income || tt == Expense
}

func (t Transaction) Validate() error {
	if len(strings.TrimSpace(t.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(t.Title) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	if !validAmount(t.Amount) {
		return ErrInvalidAmount
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if _, err := ParseDate(t.Date); err != nil {
		return ErrInvalidDate
	}
	if t.OriginalCurrency != "" && !validAmount(t.OriginalAmount) {
		return ErrInvalidAmount
	}
	return nil
}

// Day truncates the transaction date to the calendar day (YYYY-MM-DD).
func (t Transaction) Day() string {
	if len(t.Date) >= 10 {
		return t.Date[:10]
	}
	return t.Date
}

// Apply merges the patch into t, leaving nil fields untouched.
func (p TransactionPatch) Apply(t Transaction) Transaction {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Note != nil {
		t.Note = *p.Note
	}
	if p.OriginalCurrency != nil {
		t.OriginalCurrency = *p.OriginalCurrency
	}
	if p.OriginalAmount != nil {
		t.OriginalAmount = *p.OriginalAmount
	}
	return t
}

// IsEmpty reports whether the patch modifies nothing.
func (p TransactionPatch) IsEmpty() bool {
	return p.Title == nil && p.Amount == nil && p.Category == nil &&
		p.Type == nil && p.Date == nil && p.Note == nil &&
		p.OriginalCurrency == nil && p.OriginalAmount == nil
}

// Validate rejects patches that would leave the record malformed.
func (p TransactionPatch) Validate() error {
	if p.Title != nil && len(strings.TrimSpace(*p.Title)) == 0 {
		return ErrEmptyTitle
	}
	if p.Amount != nil && !validAmount(*p.Amount) {
		return ErrInvalidAmount
	}
	if p.Type != nil && !p.Type.Valid() {
		return ErrInvalidType
	}
	if p.Date != nil {
		if _, err := ParseDate(*p.Date); err != nil {
			return ErrInvalidDate
		}
	}
	if p.OriginalAmount != nil && !validAmount(*p.OriginalAmount) {
		return ErrInvalidAmount
	}
	return nil
}

// Apply merges the patch into s, leaving nil fields untouched.
func (p SettingsPatch) Apply(s AppSettings) AppSettings {
	if p.Currency != nil && *p.Currency != "" {
		s.Currency = *p.Currency
	}
	if p.ShowDelta != nil {
		s.ShowDelta = *p.ShowDelta
	}
	if p.SelectedWeek != nil {
		s.SelectedWeek = p.SelectedWeek
	}
	if p.SelectedMonth != nil {
		s.SelectedMonth = *p.SelectedMonth
	}
	return s
}

func validAmount(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ParseDate accepts the date formats the ledger stores: full RFC 3339
// timestamps and bare YYYY-MM-DD days.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", s)
}
