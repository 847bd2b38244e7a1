// Package prompt renders design requests into provider prompts.
package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lithammer/dedent"
	"github.com/raine/room-design-studio/internal/design"
)

const imagePromptTemplate = `
	Generate a photorealistic interior design for a %s with the following specifications:
	- Style: %s
	- Color scheme: %s
	- Room dimensions: %s
	- Budget range: %s
	- Required furniture: %s`

const boqPromptTemplate = `
	Create a Bill of Quantities for the furniture of a %s %s with a %s color scheme.
	- Room dimensions: %s
	- Budget range: %s
	- Required furniture: %s

	List ONLY furniture items. Do not include decor, lighting, labour or delivery.
	Respond with a single table using exactly these columns:
	| Item | Dimensions | Qty | Price |

	Rules:
	- Price is the unit price as a whole number, without decimals, currency symbols or thousands separators.
	- Qty is a positive whole number.
	- The total of Qty × Price over all rows must not exceed %s.`

func render(text string, a ...any) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(text)), a...)
}

// BuildImagePrompt renders req as an image generation instruction.
// The output depends only on req.
func BuildImagePrompt(req design.Request) string {
	var b strings.Builder
	b.WriteString(render(imagePromptTemplate,
		req.RoomLabel(),
		req.Style,
		req.ColorScheme,
		formatDimensions(req.Dimensions),
		req.Budget,
		strings.Join(req.Furniture, ", "),
	))

	if strings.TrimSpace(req.SpecialRequirements) != "" {
		b.WriteString("\n- Special requirements: ")
		b.WriteString(strings.TrimSpace(req.SpecialRequirements))
	}

	if strings.TrimSpace(req.RegenerationComment) != "" {
		b.WriteString("\n\nPlease make these specific changes to the previous design: ")
		b.WriteString(strings.TrimSpace(req.RegenerationComment))
	}

	return b.String()
}

// BuildBOQPrompt renders req as an instruction to list the room's furniture
// as an Item/Dimensions/Qty/Price table.
func BuildBOQPrompt(req design.Request) string {
	var b strings.Builder
	b.WriteString(render(boqPromptTemplate,
		strings.ToLower(req.Style),
		req.RoomLabel(),
		strings.ToLower(req.ColorScheme),
		formatDimensions(req.Dimensions),
		req.Budget,
		strings.Join(req.Furniture, ", "),
		budgetCeiling(req.Budget),
	))

	if strings.TrimSpace(req.SpecialRequirements) != "" {
		b.WriteString("\n- Respect these special requirements: ")
		b.WriteString(strings.TrimSpace(req.SpecialRequirements))
	}

	if strings.TrimSpace(req.RegenerationComment) != "" {
		b.WriteString("\n- The design was revised with these changes: ")
		b.WriteString(strings.TrimSpace(req.RegenerationComment))
	}

	return b.String()
}

func formatDimensions(d design.Dimensions) string {
	return fmt.Sprintf("%.1fm × %.1fm × %.1fm", d.Length, d.Width, d.Height)
}

// budgetCeiling returns the label's upper bound as a plain number, or a
// textual fallback when the label has no numeric range.
func budgetCeiling(label string) string {
	r, ok := design.ParseBudget(label)
	if !ok {
		return "the stated budget range"
	}
	return strconv.FormatInt(r.Max, 10)
}
