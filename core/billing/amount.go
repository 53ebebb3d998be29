package billing

import "github.com/shopspring/decimal"

// Amount is a money value. It behaves exactly like the embedded decimal for
// arithmetic, scanning and parsing, but marshals as a fixed 2-decimal string,
// the wire convention for money fields.
type Amount struct {
	decimal.Decimal
}

func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.StringFixed(2) + `"`), nil
}
