package core

import (
	"errors"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

type (
	// Date is a calendar day. The time component is always midnight UTC.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is a single ledger row. A positive amount is income,
	// a negative amount is an expense.
	Transaction struct {
		ID        int64   `json:"id"`
		UserID    string  `json:"user_id"`
		Title     string  `json:"title"`
		Amount    Money   `json:"amount"`
		Category  string  `json:"category"`
		Festival  *string `json:"festival"`
		CreatedAt Date    `json:"created_at"`
	}

	// Summary holds the all-time totals of a user, optionally narrowed to a festival.
	Summary struct {
		Balance  Money `json:"balance"`
		Income   Money `json:"income"`
		Expenses Money `json:"expenses"`
	}
)

var (
	ErrEmptyUserID   = errors.New("empty user id")
	ErrEmptyTitle    = errors.New("empty title")
	ErrEmptyCategory = errors.New("empty category")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
)

// NewDate truncates t to its calendar day.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string. Longer timestamps are accepted and
// truncated to their date part.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
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

// IsIncome reports whether the transaction adds to the balance.
func (t Transaction) IsIncome() bool {
	return t.Amount.Cents > 0
}

// IsExpense reports whether the transaction subtracts from the balance.
func (t Transaction) IsExpense() bool {
	return t.Amount.Cents < 0
}

// Validate checks the fields the store requires. CreatedAt may be zero;
// the caller fills it with the current day.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return ErrEmptyUserID
	}
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if t.Amount.Cents == 0 || t.Amount.Cents > maxAmountCents || t.Amount.Cents < -maxAmountCents {
		return ErrInvalidAmount
	}
	return nil
}

// Normalize trims free text and drops an empty festival label.
func (t Transaction) Normalize() Transaction {
	t.UserID = strings.TrimSpace(t.UserID)
	t.Title = strings.TrimSpace(t.Title)
	t.Category = strings.TrimSpace(t.Category)
	if t.Festival != nil {
		f := strings.TrimSpace(*t.Festival)
		if f == "" {
			t.Festival = nil
		} else {
			t.Festival = &f
		}
	}
	return t
}
