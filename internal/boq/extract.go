// Package boq parses and estimates furniture bills of quantities.
package boq

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/raine/room-design-studio/internal/design"
)

var (
	separatorLine  = regexp.MustCompile(`^[\s|:+\-=_]+$`)
	columnSplitter = regexp.MustCompile(`\t+|\s{2,}`)
	nonDigits      = regexp.MustCompile(`\D`)
)

// ExtractFromText parses a provider's tabular furniture listing.
//
// Rows before the header are ignored, as are separator rules. A row becomes
// a line item only when it has at least four non-empty cells, a positive
// integer quantity and a positive price; anything else is dropped.
func ExtractFromText(raw string) []design.LineItem {
	var items []design.LineItem
	headerSeen := false

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !headerSeen {
			headerSeen = isHeader(line)
			continue
		}
		if separatorLine.MatchString(line) {
			continue
		}
		if item, ok := parseRow(splitCells(line)); ok {
			items = append(items, item)
		}
	}

	return items
}

// Parse is ExtractFromText that reports design.ErrParse when no row
// survives.
func Parse(raw string) ([]design.LineItem, error) {
	items := ExtractFromText(raw)
	if len(items) == 0 {
		return nil, design.ErrParse
	}
	return items, nil
}

func isHeader(line string) bool {
	l := strings.ToLower(line)
	return strings.Contains(l, "item") &&
		strings.Contains(l, "dimension") &&
		(strings.Contains(l, "qty") || strings.Contains(l, "quantity")) &&
		strings.Contains(l, "price")
}

// splitCells splits on pipes when present, otherwise on tabs or runs of two
// or more spaces. Empty cells are removed.
func splitCells(line string) []string {
	var parts []string
	if strings.Contains(line, "|") {
		parts = strings.Split(line, "|")
	} else {
		parts = columnSplitter.Split(line, -1)
	}

	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			cells = append(cells, p)
		}
	}
	return cells
}

func parseRow(cells []string) (design.LineItem, bool) {
	if len(cells) < 4 {
		return design.LineItem{}, false
	}

	qty, err := strconv.Atoi(cells[2])
	if err != nil || qty <= 0 {
		return design.LineItem{}, false
	}

	digits := nonDigits.ReplaceAllString(cells[3], "")
	if digits == "" {
		return design.LineItem{}, false
	}
	price, err := strconv.ParseFloat(digits, 64)
	if err != nil || price <= 0 {
		return design.LineItem{}, false
	}

	return design.LineItem{
		Name:       cells[0],
		Dimensions: cells[1],
		Quantity:   qty,
		UnitPrice:  price,
	}, true
}
