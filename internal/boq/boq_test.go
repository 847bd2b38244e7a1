package boq

import (
	"testing"

	"github.com/raine/room-design-studio/internal/design"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFromText_PipeTable(t *testing.T) {
	raw := `Here is the bill of quantities for your room.

| Item | Dimensions | Qty | Price |
|------|------------|-----|-------|
| Modern Gray Sofa | 220 × 85 × 80 cm | 1 | 29990 |
| Side Table | 45 × 45 × 55 cm | 2 | ฿4,990 |
| **Total** | | | 39970 |

Prices are estimates.`

	items := ExtractFromText(raw)
	require.Len(t, items, 2)
	assert.Equal(t, design.LineItem{Name: "Modern Gray Sofa", Dimensions: "220 × 85 × 80 cm", Quantity: 1, UnitPrice: 29990}, items[0])
	assert.Equal(t, design.LineItem{Name: "Side Table", Dimensions: "45 × 45 × 55 cm", Quantity: 2, UnitPrice: 4990}, items[1])
}

func TestExtractFromText_WhitespaceColumns(t *testing.T) {
	raw := "Item          Dimensions         Qty   Price\n" +
		"-----------------------------------------\n" +
		"Office Chair  65 x 65 x 115 cm   1     8990\n" +
		"Desk\t140 x 70 x 75 cm\t1\t13900\n"

	items := ExtractFromText(raw)
	require.Len(t, items, 2)
	assert.Equal(t, "Office Chair", items[0].Name)
	assert.Equal(t, "65 x 65 x 115 cm", items[0].Dimensions)
	assert.Equal(t, 13900.0, items[1].UnitPrice)
}

func TestExtractFromText_IgnoresRowsBeforeHeader(t *testing.T) {
	raw := "| Sofa | 200 cm | 1 | 1000 |\n" +
		"| Item | Dimensions | Qty | Price |\n" +
		"| Rug | 200 × 300 cm | 1 | 7990 |\n"

	items := ExtractFromText(raw)
	require.Len(t, items, 1)
	assert.Equal(t, "Rug", items[0].Name)
}

func TestExtractFromText_DropsMalformedRows(t *testing.T) {
	raw := `| Item | Dimensions | Qty | Price |
| --- | --- | --- | --- |
| Zero qty | 1 m | 0 | 500 |
| Negative qty | 1 m | -2 | 500 |
| Word qty | 1 m | two | 500 |
| No price | 1 m | 1 | free |
| Zero price | 1 m | 1 | 0 |
| Too few | 1 m | 1 |
| Bookshelf | 90 × 30 × 180 cm | 1 | 10,900 |`

	items := ExtractFromText(raw)
	require.Len(t, items, 1)
	assert.Equal(t, "Bookshelf", items[0].Name)
	for _, it := range items {
		assert.Positive(t, it.Quantity)
		assert.Positive(t, it.UnitPrice)
	}
}

func TestExtractFromText_NoHeader(t *testing.T) {
	assert.Empty(t, ExtractFromText("lorem ipsum\n%%% garbage ### 12"))
	assert.Empty(t, ExtractFromText(""))
}

func TestParse(t *testing.T) {
	_, err := Parse("nothing tabular here")
	assert.ErrorIs(t, err, design.ErrParse)

	items, err := Parse("| Item | Dimensions | Qty | Price |\n| Bed | 160 × 200 cm | 1 | 31900 |")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestFormatTableRoundTrip(t *testing.T) {
	items := []design.LineItem{
		{Name: "Modern Gray Sofa", Dimensions: "220 × 85 × 80 cm", Quantity: 1, UnitPrice: 29990},
		{Name: "Coffee Table - Oak", Dimensions: "120 × 60 × 45 cm", Quantity: 1, UnitPrice: 15490},
		{Name: "Decorative Cushions", Dimensions: "45 × 45 cm", Quantity: 4, UnitPrice: 1290},
	}

	assert.Equal(t, items, ExtractFromText(FormatTable(items)))
}

func TestTierFor(t *testing.T) {
	assert.Equal(t, TierLow, TierFor(design.BudgetLow))
	assert.Equal(t, TierMedium, TierFor(design.BudgetMedium))
	assert.Equal(t, TierHigh, TierFor(design.BudgetHigh))
	assert.Equal(t, TierMedium, TierFor("whatever"))
	assert.Equal(t, "high", TierHigh.String())
}

func TestClassify(t *testing.T) {
	tests := map[string]string{
		"Sofa":          "sofa",
		"Coffee Table":  "coffee table",
		"Dining Table":  "dining table",
		"Dining Chairs": "dining chair",
		"Office Chair":  "office chair",
		"Bed":           "bed",
		"Desk":          "desk",
		"Bookshelf":     "bookshelf",
		"Area Rug":      "rug",
		"Floor Lamp":    "other",
		"TV Stand":      "other",
	}
	for name, want := range tests {
		assert.Equal(t, want, classify(name).keyword, name)
	}
}

func TestEstimateSynthetic(t *testing.T) {
	req := design.Request{
		RoomType:  "living-room",
		Style:     "Modern",
		Budget:    design.BudgetMedium,
		Furniture: []string{"Sofa", "Coffee Table", "Sofa", "Floor Lamp"},
	}

	items := EstimateSynthetic(req)
	require.Len(t, items, len(req.Furniture))
	for i, it := range items {
		assert.Equal(t, req.Furniture[i], it.Name)
		assert.Equal(t, 1, it.Quantity)
		assert.Equal(t, classify(it.Name).prices[TierMedium], it.UnitPrice)
		assert.NotEmpty(t, it.Dimensions)
	}
	assert.Equal(t, items, EstimateSynthetic(req))
}

func TestEstimateSynthetic_TierChangesPrice(t *testing.T) {
	req := design.Request{Furniture: []string{"Bed"}}

	req.Budget = design.BudgetLow
	low := EstimateSynthetic(req)[0].UnitPrice
	req.Budget = design.BudgetHigh
	high := EstimateSynthetic(req)[0].UnitPrice

	assert.Less(t, low, high)
}

func TestEstimateSynthetic_Empty(t *testing.T) {
	assert.Empty(t, EstimateSynthetic(design.Request{Budget: design.BudgetLow}))
}

func TestTotal(t *testing.T) {
	items := []design.LineItem{
		{Name: "Sofa", Quantity: 1, UnitPrice: 100},
		{Name: "Wall Art Set", Quantity: 3, UnitPrice: 10},
		{Name: "Storage Cabinet", Quantity: 2, UnitPrice: 50},
	}
	assert.Equal(t, 230.0, Total(items))
	assert.Zero(t, Total(nil))
}
