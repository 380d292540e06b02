package pricing

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Price is either a comparable amount or a label such as "Custom" that
// cannot take part in numeric aggregation.
type Price struct {
	amount     decimal.Decimal
	label      string
	comparable bool
}

// Amount builds a price from a number. Negative amounts are not comparable.
func Amount(d decimal.Decimal) Price {
	if d.IsNegative() {
		return Price{label: d.String()}
	}
	return Price{amount: d, comparable: true}
}

// AmountFloat is a convenience for literals in seeds and tests.
func AmountFloat(f float64) Price {
	return Amount(decimal.NewFromFloat(f))
}

// Label builds a non-comparable price.
func Label(s string) Price {
	return Price{label: s}
}

// Comparable reports whether the price can be aggregated.
func (p Price) Comparable() bool {
	return p.comparable
}

// Value returns the amount when the price is comparable.
func (p Price) Value() (decimal.Decimal, bool) {
	if !p.comparable {
		return decimal.Zero, false
	}
	return p.amount, true
}

func (p Price) String() string {
	if p.comparable {
		return p.amount.String()
	}
	return p.label
}

func (p Price) Equal(o Price) bool {
	if p.comparable != o.comparable {
		return false
	}
	if p.comparable {
		return p.amount.Equal(o.amount)
	}
	return p.label == o.label
}

func (p Price) MarshalJSON() ([]byte, error) {
	if p.comparable {
		return []byte(p.amount.String()), nil
	}
	return json.Marshal(p.label)
}

func (p *Price) UnmarshalJSON(data []byte) error {
	parsed, err := parsePrice(strings.TrimSpace(string(data)))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
