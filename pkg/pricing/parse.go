package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// ParseTierSet normalizes a raw pricing document into a TierSet. Prices may
// be numbers or strings; strings always become non-comparable labels even
// when they look numeric.
func ParseTierSet(raw []byte) (TierSet, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errors.New("pricing: invalid JSON")
	}
	doc := gjson.ParseBytes(raw)
	if doc.Type == gjson.Null {
		return TierSet{}, nil
	}
	if !doc.IsObject() {
		return nil, errors.New("pricing: tier set must be an object")
	}

	set := TierSet{}
	var parseErr error
	doc.ForEach(func(key, value gjson.Result) bool {
		name := TierName(strings.ToLower(strings.TrimSpace(key.String())))
		if name == "" {
			return true
		}
		if value.Type == gjson.Null {
			set[name] = nil
			return true
		}
		if !value.IsObject() {
			parseErr = fmt.Errorf("pricing: tier %q must be an object or null", name)
			return false
		}
		tier, err := parseTier(value)
		if err != nil {
			parseErr = fmt.Errorf("pricing: tier %q: %w", name, err)
			return false
		}
		set[name] = tier
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return set, nil
}

func parseTier(value gjson.Result) (*Tier, error) {
	price, err := parsePrice(value.Get("price").Raw)
	if err != nil {
		return nil, err
	}
	return &Tier{
		Price:       price,
		Features:    stringList(value.Get("features")),
		Limitations: stringList(value.Get("limitations")),
	}, nil
}

func parsePrice(raw string) (Price, error) {
	if raw == "" {
		return Label(""), nil
	}
	res := gjson.Parse(raw)
	switch res.Type {
	case gjson.Number:
		d, err := decimal.NewFromString(res.Raw)
		if err != nil {
			return Price{}, fmt.Errorf("bad price %s: %w", res.Raw, err)
		}
		return Amount(d), nil
	case gjson.String:
		return Label(res.Str), nil
	case gjson.Null:
		return Label(""), nil
	default:
		return Price{}, fmt.Errorf("price must be a number or a string, got %s", res.Raw)
	}
}

func stringList(res gjson.Result) []string {
	if !res.IsArray() {
		return []string{}
	}
	out := []string{}
	for _, item := range res.Array() {
		s := strings.TrimSpace(item.String())
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
