package design

import (
	"fmt"
	"strings"
	"time"
)

// Dimensions are room measurements in meters.
type Dimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Request describes one design generation attempt.
// It is treated as a value: helpers return modified copies.
type Request struct {
	RoomType            string     `json:"room_type"`
	Style               string     `json:"style"`
	ColorScheme         string     `json:"color_scheme"`
	Dimensions          Dimensions `json:"dimensions"`
	Budget              string     `json:"budget"`
	Furniture           []string   `json:"furniture"`
	SpecialRequirements string     `json:"special_requirements,omitempty"`
	RegenerationComment string     `json:"regeneration_comment,omitempty"`
}

// Validate checks the fields the preferences form requires before a design
// can be generated.
func (r Request) Validate() error {
	var missing []string
	if strings.TrimSpace(r.RoomType) == "" {
		missing = append(missing, "room_type")
	}
	if strings.TrimSpace(r.Style) == "" {
		missing = append(missing, "style")
	}
	if strings.TrimSpace(r.ColorScheme) == "" {
		missing = append(missing, "color_scheme")
	}
	if r.Dimensions.Length <= 0 || r.Dimensions.Width <= 0 || r.Dimensions.Height <= 0 {
		missing = append(missing, "dimensions")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing or invalid %s", ErrInvalidRequest, strings.Join(missing, ", "))
	}
	return nil
}

// WithRegenerationComment returns a copy of the request carrying comment.
func (r Request) WithRegenerationComment(comment string) Request {
	c := r.clone()
	c.RegenerationComment = comment
	return c
}

// WithoutRegenerationComment returns a copy of the request with the
// refinement comment cleared.
func (r Request) WithoutRegenerationComment() Request {
	return r.WithRegenerationComment("")
}

// RoomLabel returns the room type with dashes replaced by spaces,
// e.g. "living-room" -> "living room".
func (r Request) RoomLabel() string {
	return strings.ReplaceAll(r.RoomType, "-", " ")
}

func (r Request) clone() Request {
	c := r
	if r.Furniture != nil {
		c.Furniture = append([]string(nil), r.Furniture...)
	}
	return c
}

// LineItem is one row of a bill of quantities.
type LineItem struct {
	Name       string  `json:"name"`
	Dimensions string  `json:"dimensions"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
}

// Total returns quantity times unit price.
func (i LineItem) Total() float64 {
	return float64(i.Quantity) * i.UnitPrice
}

// ImageSource tells where a result's image came from.
type ImageSource string

const (
	ImageSourceProvider   ImageSource = "provider"
	ImageSourceStockPhoto ImageSource = "stock-photo"
)

// Result is the outcome of a single provider invocation.
// ErrorKind is set if and only if Success is false.
type Result struct {
	Success     bool        `json:"success"`
	ImageRef    string      `json:"image_ref"`
	Caption     string      `json:"caption,omitempty"`
	Furniture   []LineItem  `json:"furniture"`
	ImageSource ImageSource `json:"image_source,omitempty"`
	Provider    string      `json:"provider,omitempty"`
	Model       string      `json:"model,omitempty"`
	ErrorKind   ErrorKind   `json:"error_kind,omitempty"`
	ErrorDetail string      `json:"error_detail,omitempty"`
}

// Failed builds an unsuccessful result for the given provider.
func Failed(provider, model string, kind ErrorKind, detail string) Result {
	return Result{
		Success:     false,
		ImageRef:    "",
		Provider:    provider,
		Model:       model,
		ErrorKind:   kind,
		ErrorDetail: detail,
	}
}

// WithFurniture returns a copy of the result with its furniture replaced.
func (r Result) WithFurniture(items []LineItem) Result {
	c := r
	c.Furniture = append([]LineItem(nil), items...)
	return c
}

// ProviderConfig selects and authenticates a provider for one call.
// It is supplied by the caller and never persisted by the core.
type ProviderConfig struct {
	ProviderID string `json:"provider_id"`
	APIKey     string `json:"api_key,omitempty"`
	ModelID    string `json:"model_id,omitempty"`
}

// IsZero reports whether no provider was chosen.
func (c ProviderConfig) IsZero() bool {
	return strings.TrimSpace(c.ProviderID) == ""
}

// Record is a settled successful design kept in an owner's history.
type Record struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Request   Request   `json:"request"`
	Result    Result    `json:"result"`
	CreatedAt time.Time `json:"created_at"`
}
