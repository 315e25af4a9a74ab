// Package core provides the transaction model, money handling and the
// period arithmetic shared by the store and the aggregation engine.
//
// Amounts are fixed point. Money keeps integer cents, Number keeps an
// arbitrary precision decimal for derived values such as sums and means.
package core

import (
	"database/sql/driver"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// DECIMAL(10,2) upper bound.
const maxAmountCents = 99_999_999_99

// ParseAmountToCents converts a signed decimal string to cents.
//
// Both dot (12.34) and comma (12,34) separators are accepted; the value is
// rounded half away from zero on the third decimal place.
//
// Examples:
//
//	ParseAmountToCents("-12.34") -> -1234, nil
//	ParseAmountToCents("100")    -> 10000, nil
//	ParseAmountToCents("1.005")  -> 101, nil
func ParseAmountToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Shift(2).Round(0)
	if cents.Abs().GreaterThan(decimal.NewFromInt(maxAmountCents)) {
		return 0, ErrInvalidAmount
	}
	if cents.IsZero() {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON renders the amount as a bare JSON number, e.g. -40 or 12.5.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().String()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		m.Cents = 0
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ErrInvalidAmount
	}
	m.Cents = d.Shift(2).Round(0).IntPart()
	return nil
}

// Number is a derived fixed-point value that serializes as a JSON number.
type Number struct {
	decimal.Decimal
}

func NewNumber(d decimal.Decimal) Number {
	return Number{Decimal: d}
}

// NumberFromCents converts a cents aggregate into currency units.
func NumberFromCents(cents decimal.Decimal) Number {
	return Number{Decimal: cents.Shift(-2)}
}

func (n Number) Add(o Number) Number {
	return Number{Decimal: n.Decimal.Add(o.Decimal)}
}

func (n Number) Sub(o Number) Number {
	return Number{Decimal: n.Decimal.Sub(o.Decimal)}
}

func (n Number) MarshalJSON() ([]byte, error) {
	return []byte(n.Decimal.String()), nil
}

func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		n.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("parse number %q: %w", s, err)
	}
	n.Decimal = d
	return nil
}

// ToDecimalOrZero coerces a store-returned aggregate into a decimal.
//
// Drivers hand back sums and averages as int64, float64, []byte or string
// depending on the backend. Anything that is missing or fails to parse
// counts as zero, so callers never see a non-numeric result.
func ToDecimalOrZero(v any) decimal.Decimal {
	switch x := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return x
	case int64:
		return decimal.NewFromInt(x)
	case int:
		return decimal.NewFromInt(int64(x))
	case int32:
		return decimal.NewFromInt(int64(x))
	case uint64:
		if x > math.MaxInt64 {
			return decimal.Zero
		}
		return decimal.NewFromInt(int64(x))
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(x)
	case float32:
		return ToDecimalOrZero(float64(x))
	case []byte:
		return ToDecimalOrZero(string(x))
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return decimal.Zero
		}
		return d
	case driver.Valuer:
		inner, err := x.Value()
		if err != nil {
			return decimal.Zero
		}
		if _, again := inner.(driver.Valuer); again {
			return decimal.Zero
		}
		return ToDecimalOrZero(inner)
	default:
		return decimal.Zero
	}
}
