package boq

import (
	"strings"

	"github.com/raine/room-design-studio/internal/design"
)

// Tier is a price level derived from the request budget.
type Tier int

const (
	TierLow Tier = iota
	TierMedium
	TierHigh
)

func (t Tier) String() string {
	switch t {
	case TierLow:
		return "low"
	case TierHigh:
		return "high"
	default:
		return "medium"
	}
}

// Budget upper bounds (inclusive) for the low and medium tiers.
const (
	lowTierMax    = 300_000
	mediumTierMax = 600_000
)

// TierFor picks a price tier from a budget label's upper bound. Labels
// without a numeric range fall into the medium tier.
func TierFor(budget string) Tier {
	r, ok := design.ParseBudget(budget)
	switch {
	case !ok:
		return TierMedium
	case r.Max <= lowTierMax:
		return TierLow
	case r.Max <= mediumTierMax:
		return TierMedium
	default:
		return TierHigh
	}
}

type category struct {
	keyword    string
	dimensions string
	prices     [3]float64 // indexed by Tier
}

// categories is matched in order against the lowercased item name; the
// first keyword contained in the name wins. "other" is the catch-all.
var categories = []category{
	{"sofa", "220 × 90 × 85 cm", [3]float64{15900, 35900, 75900}},
	{"coffee table", "120 × 60 × 45 cm", [3]float64{4900, 12900, 28900}},
	{"dining table", "180 × 90 × 75 cm", [3]float64{11900, 27900, 59900}},
	{"dining chair", "45 × 52 × 90 cm", [3]float64{2490, 5990, 13900}},
	{"office chair", "65 × 65 × 115 cm", [3]float64{3990, 8990, 21900}},
	{"bed", "160 × 200 × 45 cm", [3]float64{13900, 31900, 69900}},
	{"desk", "140 × 70 × 75 cm", [3]float64{5900, 13900, 31900}},
	{"bookshelf", "90 × 30 × 180 cm", [3]float64{4490, 10900, 24900}},
	{"rug", "200 × 300 cm", [3]float64{2990, 7990, 19900}},
}

var otherCategory = category{"other", "Standard size", [3]float64{3490, 7990, 17900}}

func classify(name string) category {
	n := strings.ToLower(name)
	for _, c := range categories {
		if strings.Contains(n, c.keyword) {
			return c
		}
	}
	return otherCategory
}

// EstimateSynthetic builds a deterministic bill of quantities for req with
// exactly one line item of quantity 1 per requested furniture name.
func EstimateSynthetic(req design.Request) []design.LineItem {
	tier := TierFor(req.Budget)
	items := make([]design.LineItem, 0, len(req.Furniture))
	for _, name := range req.Furniture {
		c := classify(name)
		items = append(items, design.LineItem{
			Name:       name,
			Dimensions: c.dimensions,
			Quantity:   1,
			UnitPrice:  c.prices[tier],
		})
	}
	return items
}
