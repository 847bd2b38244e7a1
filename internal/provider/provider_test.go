package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/raine/room-design-studio/internal/boq"
	"github.com/raine/room-design-studio/internal/design"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func testRequest() design.Request {
	return design.Request{
		RoomType:    "living-room",
		Style:       "Modern",
		ColorScheme: "Neutral",
		Dimensions:  design.Dimensions{Length: 4, Width: 3, Height: 2.5},
		Budget:      design.BudgetMedium,
		Furniture:   []string{"Sofa", "Coffee Table"},
	}
}

func registryFor(id, url string) *Registry {
	return NewRegistry(Options{BaseURLs: map[string]string{id: url}, Timeout: 5 * time.Second})
}

func TestRegistryGet(t *testing.T) {
	r := NewRegistry(Options{})

	for _, id := range []string{"openai", "OpenAI", " stabilityai ", "GEMINI", "gemini-text"} {
		p, err := r.Get(id, "key", "")
		require.NoError(t, err, id)
		require.NotNil(t, p, id)
	}

	p, err := r.Get("gemini-text", "key", "")
	require.NoError(t, err)
	assert.Equal(t, KindText, p.Kind())

	p, err = r.Get("openai", "key", "")
	require.NoError(t, err)
	assert.Equal(t, KindImage, p.Kind())
	assert.Equal(t, DefaultOpenAIModel, p.(*OpenAIProvider).model)
}

func TestRegistryGet_ConfigErrors(t *testing.T) {
	r := NewRegistry(Options{})

	p, err := r.Get("midjourney", "key", "")
	assert.Nil(t, p)
	var cfgErr *design.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "unsupported AI provider")
	assert.Equal(t, design.KindConfig, design.KindOf(err))

	p, err = r.Get("openai", "  ", "")
	assert.Nil(t, p)
	require.ErrorAs(t, err, &cfgErr)
}

func TestRegistryGet_ModelOverride(t *testing.T) {
	p, err := NewRegistry(Options{}).Get("stabilityai", "key", "sd3-custom")
	require.NoError(t, err)
	sp := p.(*StabilityProvider)
	assert.Equal(t, "sd3-custom", sp.model)
	assert.Equal(t, "sd3-custom", sp.engine())

	p, err = NewRegistry(Options{}).Get("stabilityai", "key", "")
	require.NoError(t, err)
	assert.Equal(t, "stable-diffusion-xl-1024-v1-0", p.(*StabilityProvider).engine())
}

func TestOpenAIProvider(t *testing.T) {
	var got openAIImageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images/generations", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"url":"https://images.example/room.png","revised_prompt":"A bright room"}]}`))
	}))
	defer srv.Close()

	p, err := registryFor(OpenAI, srv.URL).Get(OpenAI, "sk-test", "")
	require.NoError(t, err)

	req := testRequest()
	res := p.GenerateDesign(context.Background(), req)

	require.True(t, res.Success)
	assert.Equal(t, "https://images.example/room.png", res.ImageRef)
	assert.Equal(t, "A bright room", res.Caption)
	assert.Equal(t, design.ImageSourceProvider, res.ImageSource)
	assert.Equal(t, boq.EstimateSynthetic(req), res.Furniture)
	assert.Empty(t, res.ErrorKind)

	assert.Equal(t, "dall-e-3", got.Model)
	assert.Equal(t, 1, got.N)
	assert.Equal(t, "1024x1024", got.Size)
	assert.Equal(t, "standard", got.Quality)
	assert.Equal(t, "url", got.ResponseFormat)
	assert.True(t, strings.HasPrefix(got.Prompt, "Generate a photorealistic interior design for a living room"))
}

func TestOpenAIProvider_ErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	p, err := registryFor(OpenAI, srv.URL).Get(OpenAI, "bad", "")
	require.NoError(t, err)

	res := p.GenerateDesign(context.Background(), testRequest())
	assert.False(t, res.Success)
	assert.Empty(t, res.ImageRef)
	assert.Equal(t, design.KindProvider, res.ErrorKind)
	assert.Equal(t, "Incorrect API key provided", res.ErrorDetail)
}

func TestOpenAIProvider_GenericError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p, err := registryFor(OpenAI, srv.URL).Get(OpenAI, "key", "")
	require.NoError(t, err)

	res := p.GenerateDesign(context.Background(), testRequest())
	assert.False(t, res.Success)
	assert.Contains(t, res.ErrorDetail, "status: 502")
}

func TestOpenAIProvider_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	p, err := registryFor(OpenAI, srv.URL).Get(OpenAI, "key", "")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res := p.GenerateDesign(ctx, testRequest())
	assert.False(t, res.Success)
	assert.Equal(t, design.KindTimeout, res.ErrorKind)
}

func TestStabilityProvider(t *testing.T) {
	var got stabilityRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/generation/stable-diffusion-xl-1024-v1-0/text-to-image", r.URL.Path)
		assert.Equal(t, "Bearer sk-stab", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"artifacts":[{"base64":"aGVsbG8=","finishReason":"SUCCESS"}]}`))
	}))
	defer srv.Close()

	p, err := registryFor(StabilityAI, srv.URL).Get(StabilityAI, "sk-stab", "")
	require.NoError(t, err)

	res := p.GenerateDesign(context.Background(), testRequest())
	require.True(t, res.Success)
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", res.ImageRef)
	assert.Len(t, res.Furniture, 2)

	require.Len(t, got.TextPrompts, 1)
	assert.Equal(t, 1.0, got.TextPrompts[0].Weight)
	assert.Equal(t, 7, got.CfgScale)
	assert.Equal(t, 1024, got.Height)
	assert.Equal(t, 1024, got.Width)
	assert.Equal(t, 1, got.Samples)
	assert.Equal(t, 50, got.Steps)
}

func TestStabilityProvider_ErrorAndEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(r.URL.Path, "broken") {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"name":"bad_request","message":"engine not found"}`))
			return
		}
		w.Write([]byte(`{"artifacts":[]}`))
	}))
	defer srv.Close()

	r := registryFor(StabilityAI, srv.URL)

	p, err := r.Get(StabilityAI, "key", "broken")
	require.NoError(t, err)
	res := p.GenerateDesign(context.Background(), testRequest())
	assert.False(t, res.Success)
	assert.Equal(t, "engine not found", res.ErrorDetail)

	p, err = r.Get(StabilityAI, "key", "")
	require.NoError(t, err)
	res = p.GenerateDesign(context.Background(), testRequest())
	assert.False(t, res.Success)
	assert.Equal(t, design.KindProvider, res.ErrorKind)
}

func geminiServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, ":generateContent")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGeminiImageProvider(t *testing.T) {
	srv := geminiServer(t, `{"candidates":[{"content":{"role":"model","parts":[
		{"text":"A calm modern living room."},
		{"inlineData":{"mimeType":"image/png","data":"aGVsbG8="}}
	]}}],"usageMetadata":{"promptTokenCount":10,"candidatesTokenCount":20}}`, http.StatusOK)

	p, err := registryFor(Gemini, srv.URL).Get(Gemini, "g-key", "")
	require.NoError(t, err)

	res := p.GenerateDesign(context.Background(), testRequest())
	require.True(t, res.Success)
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", res.ImageRef)
	assert.Equal(t, "A calm modern living room.", res.Caption)
	assert.Equal(t, design.ImageSourceProvider, res.ImageSource)
}

func TestGeminiImageProvider_StockPhotoFallback(t *testing.T) {
	srv := geminiServer(t, `{"candidates":[{"content":{"role":"model","parts":[]}}]}`, http.StatusOK)

	p, err := registryFor(Gemini, srv.URL).Get(Gemini, "g-key", "")
	require.NoError(t, err)

	req := testRequest()
	res := p.GenerateDesign(context.Background(), req)
	require.True(t, res.Success)
	assert.Equal(t, design.ImageSourceStockPhoto, res.ImageSource)
	assert.Equal(t, StockPhotoURL(req), res.ImageRef)
	assert.Equal(t, "A Modern living room with Neutral color scheme.", res.Caption)
	assert.Equal(t, boq.EstimateSynthetic(req), res.Furniture)
}

func TestGeminiImageProvider_APIError(t *testing.T) {
	srv := geminiServer(t, `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`, http.StatusBadRequest)

	p, err := registryFor(Gemini, srv.URL).Get(Gemini, "bad", "")
	require.NoError(t, err)

	res := p.GenerateDesign(context.Background(), testRequest())
	assert.False(t, res.Success)
	assert.Equal(t, design.KindProvider, res.ErrorKind)
	assert.Contains(t, res.ErrorDetail, "API key not valid")
}

func TestGeminiTextProvider(t *testing.T) {
	table := "| Item | Dimensions | Qty | Price |\\n|---|---|---|---|\\n| Sofa | 220 × 90 cm | 1 | 34900 |\\n| Coffee Table | 120 × 60 cm | 1 | 11900 |"
	srv := geminiServer(t, `{"candidates":[{"content":{"role":"model","parts":[{"text":"`+table+`"}]}}]}`, http.StatusOK)

	p, err := registryFor(GeminiText, srv.URL).Get(GeminiText, "g-key", "")
	require.NoError(t, err)

	res := p.GenerateDesign(context.Background(), testRequest())
	require.True(t, res.Success)
	require.Len(t, res.Furniture, 2)
	assert.Equal(t, "Coffee Table", res.Furniture[1].Name)
	assert.Equal(t, 11900.0, res.Furniture[1].UnitPrice)
}

func TestCollectParts(t *testing.T) {
	parts := []*genai.Part{
		nil,
		{Text: "First."},
		{InlineData: &genai.Blob{MIMEType: "application/pdf", Data: []byte("x")}},
		{InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: []byte("hi")}},
		{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte("second")}},
		{Text: "  Second.  "},
		{Text: "thinking", Thought: true},
	}

	ref, caption := collectParts(parts)
	assert.Equal(t, "data:image/jpeg;base64,aGk=", ref)
	assert.Equal(t, "First.\nSecond.", caption)

	ref, caption = collectParts(nil)
	assert.Empty(t, ref)
	assert.Empty(t, caption)
}

func TestStockPhotoKeywords(t *testing.T) {
	req := testRequest()
	req.RegenerationComment = "add a big oak bookshelf and warm lamps please"

	assert.Equal(t, []string{"interior", "modern", "living-room", "bookshelf", "warm", "lamps", "neutral"}, StockPhotoKeywords(req))
	assert.Equal(t, StockPhotoURL(req), StockPhotoURL(req))
	assert.Equal(t, "https://source.unsplash.com/featured/?interior,modern,living-room,bookshelf,warm,lamps,neutral", StockPhotoURL(req))
}

func TestRotate(t *testing.T) {
	keys := map[string]string{OpenAI: "sk-o", Gemini: "g"}
	first := func(allow []string) string { return allow[0] }

	pc, err := Rotate([]string{"Gemini", "openai"}, keys, first)
	require.NoError(t, err)
	assert.Equal(t, design.ProviderConfig{ProviderID: Gemini, APIKey: "g"}, pc)

	_, err = Rotate(nil, keys, first)
	assert.Equal(t, design.KindConfig, design.KindOf(err))

	_, err = Rotate([]string{"dalle-mini"}, keys, first)
	assert.Equal(t, design.KindConfig, design.KindOf(err))

	// Keyless and unknown providers are never picked.
	pc, err = Rotate([]string{"dalle-mini", StabilityAI, OpenAI}, keys, first)
	require.NoError(t, err)
	assert.Equal(t, OpenAI, pc.ProviderID)

	pc, err = Rotate([]string{GeminiText, OpenAI}, map[string]string{GeminiText: "g", OpenAI: "sk-o"}, first)
	require.NoError(t, err)
	assert.Equal(t, OpenAI, pc.ProviderID)

	_, err = Rotate([]string{StabilityAI}, keys, first)
	assert.Equal(t, design.KindConfig, design.KindOf(err))
}

func TestRandomPicker(t *testing.T) {
	allow := []string{OpenAI, StabilityAI, Gemini}
	seen := map[string]bool{}
	for range 200 {
		id := RandomPicker(allow)
		assert.Contains(t, allow, id)
		seen[id] = true
	}
	assert.Len(t, seen, 3)
	assert.Empty(t, RandomPicker(nil))
}

type memoryBOQCache struct {
	mu    sync.Mutex
	items map[string][]design.LineItem
	fail  bool
}

func (c *memoryBOQCache) GetBOQCache(ctx context.Context, hash string) ([]design.LineItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return nil, errors.New("cache unavailable")
	}
	return c.items[hash], nil
}

func (c *memoryBOQCache) SetBOQCache(ctx context.Context, hash string, items []design.LineItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		c.items = map[string][]design.LineItem{}
	}
	c.items[hash] = items
	return nil
}

func TestCachedExtractor(t *testing.T) {
	items := []design.LineItem{{Name: "Sofa", Dimensions: "2 m", Quantity: 1, UnitPrice: 100}}
	inner := &MockProvider{
		ProviderName: GeminiText,
		ProviderKind: KindText,
		GenerateDesignFunc: func(ctx context.Context, req design.Request) design.Result {
			return design.Result{Success: true, Furniture: items, Provider: GeminiText}
		},
	}
	cache := &memoryBOQCache{}
	c := NewCachedExtractor(inner, cache)
	assert.Equal(t, KindText, c.Kind())
	assert.Equal(t, GeminiText, c.Name())

	req := testRequest()
	first := c.GenerateDesign(context.Background(), req)
	second := c.GenerateDesign(context.Background(), req)

	assert.Equal(t, items, first.Furniture)
	assert.Equal(t, items, second.Furniture)
	assert.Equal(t, 1, inner.CallCount())

	req.Style = "Industrial"
	c.GenerateDesign(context.Background(), req)
	assert.Equal(t, 2, inner.CallCount())
}

func TestCachedExtractor_SkipsEmptyAndCacheErrors(t *testing.T) {
	inner := &MockProvider{
		ProviderKind: KindText,
		GenerateDesignFunc: func(ctx context.Context, req design.Request) design.Result {
			return design.Result{Success: true}
		},
	}
	cache := &memoryBOQCache{}
	c := NewCachedExtractor(inner, cache)

	c.GenerateDesign(context.Background(), testRequest())
	c.GenerateDesign(context.Background(), testRequest())
	assert.Equal(t, 2, inner.CallCount())
	assert.Empty(t, cache.items)

	cache.fail = true
	res := c.GenerateDesign(context.Background(), testRequest())
	assert.True(t, res.Success)
	assert.Equal(t, 3, inner.CallCount())
}

func TestKindOfMatchesRegistry(t *testing.T) {
	r := NewRegistry(Options{})
	for _, id := range []string{OpenAI, StabilityAI, Gemini, GeminiText} {
		kind, ok := KindOf(id)
		require.True(t, ok, id)
		p, err := r.Get(id, "key", "")
		require.NoError(t, err, id)
		assert.Equal(t, p.Kind(), kind, id)
	}

	kind, ok := KindOf(" Gemini-Text ")
	assert.True(t, ok)
	assert.Equal(t, KindText, kind)

	_, ok = KindOf("dalle-mini")
	assert.False(t, ok)
}
