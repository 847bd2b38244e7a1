package design

import (
	"regexp"
	"strconv"
	"strings"
)

// Budget labels offered by the preferences form.
const (
	BudgetLow    = "฿10,000 - ฿300,000"
	BudgetMedium = "฿300,001 - ฿600,000"
	BudgetHigh   = "฿600,001 - ฿1,000,000"
)

// BudgetLabel maps the form's 0-100 budget slider onto a range label.
func BudgetLabel(slider int) string {
	switch {
	case slider <= 33:
		return BudgetLow
	case slider <= 66:
		return BudgetMedium
	default:
		return BudgetHigh
	}
}

// BudgetRange is the numeric form of a budget label.
type BudgetRange struct {
	Min int64
	Max int64
}

var budgetPattern = regexp.MustCompile(`([\d,]+)\s*-\s*\D*?([\d,]+)`)

// ParseBudget extracts the numeric bounds from labels such as
// "฿300,001 - ฿600,000". ok is false when the label has no range.
func ParseBudget(label string) (BudgetRange, bool) {
	m := budgetPattern.FindStringSubmatch(label)
	if m == nil {
		return BudgetRange{}, false
	}
	lo, err := strconv.ParseInt(strings.ReplaceAll(m[1], ",", ""), 10, 64)
	if err != nil {
		return BudgetRange{}, false
	}
	hi, err := strconv.ParseInt(strings.ReplaceAll(m[2], ",", ""), 10, 64)
	if err != nil || hi < lo {
		return BudgetRange{}, false
	}
	return BudgetRange{Min: lo, Max: hi}, true
}
