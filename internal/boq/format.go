package boq

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/raine/room-design-studio/internal/design"
)

// FormatTable renders items in the pipe table layout ExtractFromText reads.
// Prices are written as plain integers.
func FormatTable(items []design.LineItem) string {
	var b strings.Builder
	b.WriteString("| Item | Dimensions | Qty | Price |\n")
	b.WriteString("|------|------------|-----|-------|\n")
	for _, it := range items {
		fmt.Fprintf(&b, "| %s | %s | %d | %s |\n",
			it.Name, it.Dimensions, it.Quantity, strconv.FormatFloat(it.UnitPrice, 'f', 0, 64))
	}
	return b.String()
}

// Total returns the summed cost of all items.
func Total(items []design.LineItem) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Total()
	}
	return sum
}
