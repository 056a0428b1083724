package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	Income  TxType = "income"
	Expense TxType = "expense"
)

const (
	ScreenHome       Screen = "home"
	ScreenAddIncome  Screen = "addIncome"
	ScreenAddExpense Screen = "addExpense"
)

// DateLayout is the day-precision ISO 8601 layout used for transaction dates.
const DateLayout = "2006-01-02"

// IncomeDescription tags every income entry.
const IncomeDescription = "Ingreso"

type (
	TxType string

	Screen string

	Date struct {
		time.Time
	}

	Transaction struct {
		ID          int64   `json:"id"`
		Type        TxType  `json:"type"`
		Amount      float64 `json:"amount"`
		Category    string  `json:"category,omitempty"` // only set for expenses
		Date        Date    `json:"date"`
		Description string  `json:"description,omitempty"`
	}

	// Snapshot is the persisted unit for one user.
	Snapshot struct {
		Transactions []Transaction `json:"transactions"`
		Screen       Screen        `json:"screen"`
	}
)

func (t TxType) Valid() bool {
	return t == Income || t == Expense
}

// Valid reports whether s is one of the three navigable screens.
func (s Screen) Valid() bool {
	switch s {
	case ScreenHome, ScreenAddIncome, ScreenAddExpense:
		return true
	default:
		return false
	}
}

func (s Screen) String() string {
	return string(s)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location and returns it as a UTC date.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ValidAmount reports whether a is a finite, strictly positive amount.
func ValidAmount(a float64) bool {
	return !math.IsNaN(a) && !math.IsInf(a, 0) && a > 0
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return fmt.Errorf("invalid transaction type %q", t.Type)
	}
	if !ValidAmount(t.Amount) {
		return ErrInvalidAmount
	}
	if t.Type == Expense {
		if _, ok := LookupCategory(t.Category); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownCategory, t.Category)
		}
	}
	return t.Date.Validate()
}

// Clone returns a snapshot whose transaction slice is not shared with s.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Screen: s.Screen}
	if s.Transactions != nil {
		out.Transactions = append([]Transaction(nil), s.Transactions...)
	}
	return out
}

// EmptySnapshot is the state of a user with no stored ledger.
func EmptySnapshot() Snapshot {
	return Snapshot{Transactions: []Transaction{}, Screen: ScreenHome}
}
