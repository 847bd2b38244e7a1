package provider

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/raine/room-design-studio/internal/design"
	"github.com/raine/room-design-studio/internal/prompt"
)

const OpenAIBaseURL = "https://api.openai.com"

type openAIImageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	Quality        string `json:"quality"`
	ResponseFormat string `json:"response_format"`
}

type openAIImageResponse struct {
	Data []struct {
		URL           string `json:"url"`
		B64JSON       string `json:"b64_json"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// OpenAIProvider renders designs with the OpenAI image generation endpoint.
type OpenAIProvider struct {
	client *resty.Client
	apiKey string
	model  string
}

func NewOpenAIProvider(apiKey, model, baseURL string, timeout time.Duration) *OpenAIProvider {
	if baseURL == "" {
		baseURL = OpenAIBaseURL
	}
	return &OpenAIProvider{
		client: resty.New().
			SetDebug(false).
			SetBaseURL(baseURL).
			SetTimeout(timeout),
		apiKey: apiKey,
		model:  model,
	}
}

func (p *OpenAIProvider) Kind() Kind   { return KindImage }
func (p *OpenAIProvider) Name() string { return OpenAI }

func (p *OpenAIProvider) GenerateDesign(ctx context.Context, req design.Request) (res design.Result) {
	start := time.Now()
	defer func() { logCall(OpenAI, p.model, start, res) }()

	result := &openAIImageResponse{}
	apiErr := &openAIErrorResponse{}
	resp, err := p.client.R().
		SetContext(ctx).
		SetAuthToken(p.apiKey).
		SetBody(openAIImageRequest{
			Model:          p.model,
			Prompt:         prompt.BuildImagePrompt(req),
			N:              1,
			Size:           "1024x1024",
			Quality:        "standard",
			ResponseFormat: "url",
		}).
		SetResult(result).
		SetError(apiErr).
		Post("/v1/images/generations")
	if err = handleError(OpenAI, resp, err, apiErr.Error.Message); err != nil {
		return failure(OpenAI, p.model, err)
	}

	if len(result.Data) == 0 {
		return design.Failed(OpenAI, p.model, design.KindProvider, "response contained no image")
	}

	img := result.Data[0]
	ref := img.URL
	if ref == "" && img.B64JSON != "" {
		ref = "data:image/png;base64," + img.B64JSON
	}
	if ref == "" {
		return design.Failed(OpenAI, p.model, design.KindProvider, "response contained no image")
	}

	return imageResult(OpenAI, p.model, req, ref, img.RevisedPrompt, design.ImageSourceProvider)
}
