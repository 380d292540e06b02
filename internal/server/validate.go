package server

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/stackprice/stackprice/pkg/catalog"
)

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type validationErrors []fieldError

func (v *validationErrors) add(field, format string, args ...interface{}) {
	*v = append(*v, fieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (v *validationErrors) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.add(field, "%s is required", field)
	}
}

// ids checks a list of identifiers: at least min entries, none blank.
func (v *validationErrors) ids(field string, ids []string, min int) {
	if len(ids) < min {
		if min == 1 {
			v.add(field, "at least one id is required")
		} else {
			v.add(field, "at least %d ids are required", min)
		}
		return
	}
	for i, id := range ids {
		if strings.TrimSpace(id) == "" {
			v.add(fmt.Sprintf("%s[%d]", field, i), "id must not be empty")
		}
	}
}

func (v *validationErrors) maxLen(field, value string, n int) {
	if len([]rune(value)) > n {
		v.add(field, "%s must be at most %d characters", field, n)
	}
}

func (v *validationErrors) webURL(field, value string) {
	if value != "" && !catalog.IsWebURL(value) {
		v.add(field, "%s must be an http(s) URL", field)
	}
}

func (v *validationErrors) nonNegative(field string, d *decimal.Decimal) {
	if d == nil {
		v.add(field, "%s is required", field)
		return
	}
	if d.IsNegative() {
		v.add(field, "%s must not be negative", field)
	}
}

func (v validationErrors) failed() bool {
	return len(v) > 0
}
