package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/raine/room-design-studio/internal/boq"
	"github.com/raine/room-design-studio/internal/design"
	"github.com/raine/room-design-studio/internal/prompt"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// generationConfig returns the sampling settings shared by the Gemini
// adapters. Image generation additionally asks for image output.
func generationConfig(withImage bool) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.4),
		TopK:            genai.Ptr[float32](32),
		TopP:            genai.Ptr[float32](1),
		MaxOutputTokens: 2048,
	}
	if withImage {
		config.ResponseModalities = []string{"TEXT", "IMAGE"}
	}
	return config
}

func newGenaiClient(apiKey, baseURL string, timeout time.Duration) (*genai.Client, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  &http.Client{Timeout: timeout},
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// geminiError extracts the API's own message from a genai error.
func geminiError(stage string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return &design.ProviderError{Stage: stage, Provider: Gemini, Message: apiErr.Message}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return &design.ProviderError{Stage: stage, Provider: Gemini, Message: err.Error()}
}

func userContent(text string) []*genai.Content {
	return []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(text)}, genai.RoleUser),
	}
}

func responseParts(resp *genai.GenerateContentResponse) []*genai.Part {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	return resp.Candidates[0].Content.Parts
}

func logUsage(model, msg string, resp *genai.GenerateContentResponse) {
	if resp == nil || resp.UsageMetadata == nil {
		return
	}
	log.Info().
		Str("model", model).
		Int64("inputTokens", int64(resp.UsageMetadata.PromptTokenCount)).
		Int64("outputTokens", int64(resp.UsageMetadata.CandidatesTokenCount)).
		Msg(msg)
}

// GeminiImageProvider renders designs with a Gemini image model. When the
// model answers without an image a stock photo matching the request is used.
type GeminiImageProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiImageProvider(apiKey, model, baseURL string, timeout time.Duration) (*GeminiImageProvider, error) {
	client, err := newGenaiClient(apiKey, baseURL, timeout)
	if err != nil {
		return nil, err
	}
	return &GeminiImageProvider{client: client, model: model}, nil
}

func (p *GeminiImageProvider) Kind() Kind   { return KindImage }
func (p *GeminiImageProvider) Name() string { return Gemini }

func (p *GeminiImageProvider) GenerateDesign(ctx context.Context, req design.Request) (res design.Result) {
	start := time.Now()
	defer func() { logCall(Gemini, p.model, start, res) }()

	resp, err := p.client.Models.GenerateContent(ctx, p.model, userContent(prompt.BuildImagePrompt(req)), generationConfig(true))
	if err != nil {
		return failure(Gemini, p.model, geminiError("image", err))
	}
	logUsage(p.model, "image llm call", resp)

	imageRef, caption := collectParts(responseParts(resp))
	if imageRef == "" {
		log.Info().Str("model", p.model).Msg("no image in gemini response, using stock photo")
		if caption == "" {
			caption = DefaultCaption(req)
		}
		return imageResult(Gemini, p.model, req, StockPhotoURL(req), caption, design.ImageSourceStockPhoto)
	}
	if caption == "" {
		caption = DefaultCaption(req)
	}
	return imageResult(Gemini, p.model, req, imageRef, caption, design.ImageSourceProvider)
}

// collectParts returns the first image part as a data URI and all text parts
// joined into a caption.
func collectParts(parts []*genai.Part) (imageRef, caption string) {
	var texts []string
	for _, part := range parts {
		if part == nil {
			continue
		}
		if part.InlineData != nil && imageRef == "" && strings.HasPrefix(part.InlineData.MIMEType, "image/") && len(part.InlineData.Data) > 0 {
			imageRef = fmt.Sprintf("data:%s;base64,%s", part.InlineData.MIMEType, base64.StdEncoding.EncodeToString(part.InlineData.Data))
			continue
		}
		if t := strings.TrimSpace(part.Text); t != "" && !part.Thought {
			texts = append(texts, t)
		}
	}
	return imageRef, strings.Join(texts, "\n")
}

// DefaultCaption describes req when a provider supplies no caption.
func DefaultCaption(req design.Request) string {
	return fmt.Sprintf("A %s %s with %s color scheme.", req.Style, req.RoomLabel(), req.ColorScheme)
}

// GeminiTextProvider asks a Gemini text model for the room's bill of
// quantities and parses the returned table.
type GeminiTextProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiTextProvider(apiKey, model, baseURL string, timeout time.Duration) (*GeminiTextProvider, error) {
	client, err := newGenaiClient(apiKey, baseURL, timeout)
	if err != nil {
		return nil, err
	}
	return &GeminiTextProvider{client: client, model: model}, nil
}

func (p *GeminiTextProvider) Kind() Kind   { return KindText }
func (p *GeminiTextProvider) Name() string { return GeminiText }

func (p *GeminiTextProvider) GenerateDesign(ctx context.Context, req design.Request) (res design.Result) {
	start := time.Now()
	defer func() { logCall(GeminiText, p.model, start, res) }()

	resp, err := p.client.Models.GenerateContent(ctx, p.model, userContent(prompt.BuildBOQPrompt(req)), generationConfig(false))
	if err != nil {
		return failure(GeminiText, p.model, geminiError("boq", err))
	}
	logUsage(p.model, "boq llm call", resp)

	_, text := collectParts(responseParts(resp))
	log.Debug().Str("response", text).Msg("boq llm output")

	return design.Result{
		Success:   true,
		Caption:   text,
		Furniture: boq.ExtractFromText(text),
		Provider:  GeminiText,
		Model:     p.model,
	}
}
