// Package provider adapts external generative AI services to design results.
package provider

import (
	"context"
	"errors"
	"time"

	"github.com/raine/room-design-studio/internal/boq"
	"github.com/raine/room-design-studio/internal/design"
	"github.com/rs/zerolog/log"
)

// Kind tells what a provider produces.
type Kind int

const (
	// KindImage providers return a rendered room image.
	KindImage Kind = iota
	// KindText providers return a furniture table as text.
	KindText
)

func (k Kind) String() string {
	if k == KindText {
		return "text"
	}
	return "image"
}

// Provider ids accepted by the registry.
const (
	OpenAI      = "openai"
	StabilityAI = "stabilityai"
	Gemini      = "gemini"
	GeminiText  = "gemini-text"
)

// Default models per provider.
const (
	DefaultOpenAIModel     = "dall-e-3"
	DefaultStabilityModel  = "stable-diffusion-xl"
	DefaultGeminiModel     = "gemini-2.0-flash-preview-image-generation"
	DefaultGeminiTextModel = "gemini-2.0-flash"
)

// Provider generates a design result for a request. Implementations never
// return errors: every failure is reported as an unsuccessful Result.
type Provider interface {
	GenerateDesign(ctx context.Context, req design.Request) design.Result
	Kind() Kind
	Name() string
}

// failure converts err into a failed result, preferring the provider's own
// message when err carries one.
func failure(provider, model string, err error) design.Result {
	kind := design.KindProvider
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = design.KindTimeout
	case errors.Is(err, context.Canceled):
		kind = design.KindCanceled
	}

	var provErr *design.ProviderError
	if errors.As(err, &provErr) {
		return design.Failed(provider, model, kind, provErr.Message)
	}
	return design.Failed(provider, model, kind, err.Error())
}

// imageResult builds a successful image result with the synthetic bill of
// quantities attached.
func imageResult(provider, model string, req design.Request, imageRef, caption string, source design.ImageSource) design.Result {
	return design.Result{
		Success:     true,
		ImageRef:    imageRef,
		Caption:     caption,
		Furniture:   boq.EstimateSynthetic(req),
		ImageSource: source,
		Provider:    provider,
		Model:       model,
	}
}

func logCall(provider, model string, start time.Time, res design.Result) {
	ev := log.Info()
	if !res.Success {
		ev = log.Warn().Str("errorKind", string(res.ErrorKind)).Str("error", res.ErrorDetail)
	}
	ev.Str("provider", provider).
		Str("model", model).
		Dur("duration", time.Since(start)).
		Bool("success", res.Success).
		Int("furnitureItems", len(res.Furniture)).
		Msg("design provider call")
}
