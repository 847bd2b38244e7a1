package provider

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/raine/room-design-studio/internal/design"
	"github.com/raine/room-design-studio/internal/prompt"
)

const StabilityBaseURL = "https://api.stability.ai"

// stabilityEngines maps model aliases to engine ids. Unknown models are
// used as engine ids directly.
var stabilityEngines = map[string]string{
	DefaultStabilityModel: "stable-diffusion-xl-1024-v1-0",
}

type stabilityTextPrompt struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

type stabilityRequest struct {
	TextPrompts []stabilityTextPrompt `json:"text_prompts"`
	CfgScale    int                   `json:"cfg_scale"`
	Height      int                   `json:"height"`
	Width       int                   `json:"width"`
	Samples     int                   `json:"samples"`
	Steps       int                   `json:"steps"`
}

type stabilityResponse struct {
	Artifacts []struct {
		Base64       string `json:"base64"`
		FinishReason string `json:"finishReason"`
	} `json:"artifacts"`
}

type stabilityErrorResponse struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// StabilityProvider renders designs with the Stability AI text-to-image API.
type StabilityProvider struct {
	client *resty.Client
	apiKey string
	model  string
}

func NewStabilityProvider(apiKey, model, baseURL string, timeout time.Duration) *StabilityProvider {
	if baseURL == "" {
		baseURL = StabilityBaseURL
	}
	return &StabilityProvider{
		client: resty.New().
			SetDebug(false).
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		apiKey: apiKey,
		model:  model,
	}
}

func (p *StabilityProvider) Kind() Kind   { return KindImage }
func (p *StabilityProvider) Name() string { return StabilityAI }

func (p *StabilityProvider) engine() string {
	if e, ok := stabilityEngines[p.model]; ok {
		return e
	}
	return p.model
}

func (p *StabilityProvider) GenerateDesign(ctx context.Context, req design.Request) (res design.Result) {
	start := time.Now()
	defer func() { logCall(StabilityAI, p.model, start, res) }()

	result := &stabilityResponse{}
	apiErr := &stabilityErrorResponse{}
	resp, err := p.client.R().
		SetContext(ctx).
		SetAuthToken(p.apiKey).
		SetPathParam("engine", p.engine()).
		SetBody(stabilityRequest{
			TextPrompts: []stabilityTextPrompt{{Text: prompt.BuildImagePrompt(req), Weight: 1}},
			CfgScale:    7,
			Height:      1024,
			Width:       1024,
			Samples:     1,
			Steps:       50,
		}).
		SetResult(result).
		SetError(apiErr).
		Post("/v1/generation/{engine}/text-to-image")
	if err = handleError(StabilityAI, resp, err, apiErr.Message); err != nil {
		return failure(StabilityAI, p.model, err)
	}

	if len(result.Artifacts) == 0 || result.Artifacts[0].Base64 == "" {
		return design.Failed(StabilityAI, p.model, design.KindProvider, "response contained no image")
	}

	ref := "data:image/png;base64," + result.Artifacts[0].Base64
	return imageResult(StabilityAI, p.model, req, ref, "", design.ImageSourceProvider)
}
