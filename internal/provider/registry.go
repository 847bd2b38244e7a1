package provider

import (
	"strings"
	"time"

	"github.com/raine/room-design-studio/internal/design"
)

// DefaultTimeout bounds a single provider call when Options.Timeout is zero.
const DefaultTimeout = 90 * time.Second

var defaultModels = map[string]string{
	OpenAI:      DefaultOpenAIModel,
	StabilityAI: DefaultStabilityModel,
	Gemini:      DefaultGeminiModel,
	GeminiText:  DefaultGeminiTextModel,
}

var providerKinds = map[string]Kind{
	OpenAI:      KindImage,
	StabilityAI: KindImage,
	Gemini:      KindImage,
	GeminiText:  KindText,
}

// Options configure adapters built by a Registry.
type Options struct {
	// BaseURLs overrides API endpoints per provider id.
	BaseURLs map[string]string
	Timeout  time.Duration
}

// Registry constructs provider adapters by id.
type Registry struct {
	opts Options
}

func NewRegistry(opts Options) *Registry {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Registry{opts: opts}
}

// KindOf returns the kind of provider id builds. ok is false for unknown ids.
func KindOf(id string) (kind Kind, ok bool) {
	kind, ok = providerKinds[normalizeID(id)]
	return kind, ok
}

// DefaultModel returns the model used for id when none is given.
func DefaultModel(id string) string {
	return defaultModels[normalizeID(id)]
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Get returns an adapter for providerID. The id is matched case
// insensitively and an empty modelID selects the provider default. Unknown
// ids and missing API keys are reported as *design.ConfigError.
func (r *Registry) Get(providerID, apiKey, modelID string) (Provider, error) {
	id := normalizeID(providerID)
	def, ok := defaultModels[id]
	if !ok {
		return nil, &design.ConfigError{Provider: providerID, Reason: "unsupported AI provider"}
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, &design.ConfigError{Provider: id, Reason: "API key is required"}
	}

	model := strings.TrimSpace(modelID)
	if model == "" {
		model = def
	}
	baseURL := r.opts.BaseURLs[id]

	switch id {
	case OpenAI:
		return NewOpenAIProvider(apiKey, model, baseURL, r.opts.Timeout), nil
	case StabilityAI:
		return NewStabilityProvider(apiKey, model, baseURL, r.opts.Timeout), nil
	case Gemini:
		p, err := NewGeminiImageProvider(apiKey, model, baseURL, r.opts.Timeout)
		if err != nil {
			return nil, &design.ConfigError{Provider: id, Reason: err.Error()}
		}
		return p, nil
	default:
		p, err := NewGeminiTextProvider(apiKey, model, baseURL, r.opts.Timeout)
		if err != nil {
			return nil, &design.ConfigError{Provider: id, Reason: err.Error()}
		}
		return p, nil
	}
}
