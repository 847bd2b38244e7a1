// Package httpapi exposes design generation and token metering as a JSON
// HTTP API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/raine/room-design-studio/internal/boq"
	"github.com/raine/room-design-studio/internal/design"
	"github.com/raine/room-design-studio/internal/ledger"
	"github.com/raine/room-design-studio/internal/provider"
	"github.com/raine/room-design-studio/internal/studio"
	"github.com/rs/zerolog/log"
)

type designService interface {
	Generate(ctx context.Context, owner string, pc design.ProviderConfig, req design.Request) (*studio.Outcome, error)
	Regenerate(ctx context.Context, owner string, pc design.ProviderConfig, comment string) (*studio.Outcome, error)
}

type settingsStore interface {
	SetProviderSettings(ctx context.Context, owner string, pc design.ProviderConfig) error
	GetProviderSettings(ctx context.Context, owner string) (*design.ProviderConfig, error)
	DeleteProviderSettings(ctx context.Context, owner string) error
}

type historyStore interface {
	DesignsByOwner(ctx context.Context, owner string, limit int) ([]design.Record, error)
}

// Deps are the services behind the API. Settings and History are optional.
type Deps struct {
	Designs   designService
	Ledger    ledger.Ledger
	Purchases ledger.PurchaseRecorder
	Settings  settingsStore
	History   historyStore
}

// Handler serves the JSON API.
type Handler struct {
	deps           Deps
	signupGrant    int
	requestTimeout time.Duration
}

// New returns a Handler. It panics if Designs or Ledger is nil. A
// non-positive requestTimeout selects a default long enough for image
// generation.
func New(deps Deps, signupGrant int, requestTimeout time.Duration) *Handler {
	if deps.Designs == nil || deps.Ledger == nil {
		panic("httpapi.New: nil design service or ledger")
	}
	if requestTimeout <= 0 {
		requestTimeout = 3 * time.Minute
	}
	return &Handler{deps: deps, signupGrant: signupGrant, requestTimeout: requestTimeout}
}

// Routes returns the API mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.HandleFunc("GET /token-packages", h.handlePackages)
	mux.HandleFunc("POST /owners/{owner}", h.handleOpenAccount)
	mux.HandleFunc("GET /owners/{owner}/tokens", h.handleBalance)
	mux.HandleFunc("POST /owners/{owner}/tokens/purchase", h.handlePurchase)
	mux.HandleFunc("GET /owners/{owner}/purchases", h.handlePurchases)
	mux.HandleFunc("PUT /owners/{owner}/provider", h.handleSetProvider)
	mux.HandleFunc("DELETE /owners/{owner}/provider", h.handleDeleteProvider)
	mux.HandleFunc("POST /owners/{owner}/designs", h.handleGenerate)
	mux.HandleFunc("POST /owners/{owner}/designs/regenerate", h.handleRegenerate)
	mux.HandleFunc("GET /owners/{owner}/designs", h.handleHistory)
	return mux
}

type errorPayload struct {
	Kind    design.ErrorKind `json:"kind"`
	Message string           `json:"message"`
}

type response struct {
	Status    string               `json:"status"`
	Error     *errorPayload        `json:"error,omitempty"`
	Balance   *ledger.Balance      `json:"balance,omitempty"`
	Outcome   *studio.Outcome      `json:"outcome,omitempty"`
	Packages  []ledger.Package     `json:"packages,omitempty"`
	Purchase  *ledger.Purchase     `json:"purchase,omitempty"`
	Purchases []ledger.Purchase    `json:"purchases,omitempty"`
	Designs   []designOut          `json:"designs,omitempty"`
	Provider  *providerSettingsOut `json:"provider,omitempty"`
}

type providerSettingsOut struct {
	ProviderID string `json:"provider_id"`
	ModelID    string `json:"model_id,omitempty"`
}

// designOut is a history record with its bill of quantities total.
type designOut struct {
	design.Record
	Total float64 `json:"total"`
}

type generateRequest struct {
	Provider *design.ProviderConfig `json:"provider,omitempty"`
	Request  design.Request         `json:"request"`
	// BudgetSlider is the form's 0-100 slider. It sets request.budget when
	// that is empty.
	BudgetSlider *int `json:"budget_slider,omitempty"`
}

type regenerateRequest struct {
	Provider *design.ProviderConfig `json:"provider,omitempty"`
	Comment  string                 `json:"comment"`
}

type purchaseRequest struct {
	PackageID string `json:"package_id"`
}

var ownerPattern = regexp.MustCompile(`^[A-Za-z0-9_.@-]{1,64}$`)

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	kind := design.KindOf(err)
	if kind == design.KindInternal {
		log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, httpStatus(kind), response{
		Status: "error",
		Error:  &errorPayload{Kind: kind, Message: errorMessage(kind, err)},
	})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, response{
		Status: "error",
		Error:  &errorPayload{Kind: design.KindBadRequest, Message: msg},
	})
}

// decodeJSON decodes exactly one JSON value, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("trailing data after JSON body")
	}
	return nil
}

func owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("owner")
	if !ownerPattern.MatchString(id) {
		badRequest(w, "invalid owner id")
		return "", false
	}
	return id, true
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, response{Status: "ok"})
}

func (h *Handler) handlePackages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, response{Status: "ok", Packages: ledger.Catalog()})
}

func (h *Handler) handleOpenAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := owner(w, r)
	if !ok {
		return
	}
	n, err := h.deps.Ledger.Open(r.Context(), id, h.signupGrant)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Status: "ok", Balance: &ledger.Balance{OwnerID: id, Count: n}})
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := owner(w, r)
	if !ok {
		return
	}
	n, err := h.deps.Ledger.Balance(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Status: "ok", Balance: &ledger.Balance{OwnerID: id, Count: n}})
}

func (h *Handler) handlePurchase(w http.ResponseWriter, r *http.Request) {
	id, ok := owner(w, r)
	if !ok {
		return
	}
	var req purchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}

	p, n, err := ledger.Buy(r.Context(), h.deps.Ledger, h.deps.Purchases, id, req.PackageID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Status: "ok", Purchase: &p, Balance: &ledger.Balance{OwnerID: id, Count: n}})
}

func (h *Handler) handlePurchases(w http.ResponseWriter, r *http.Request) {
	id, ok := owner(w, r)
	if !ok {
		return
	}
	if h.deps.Purchases == nil {
		writeJSON(w, http.StatusOK, response{Status: "ok"})
		return
	}
	purchases, err := h.deps.Purchases.Purchases(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Status: "ok", Purchases: purchases})
}

func (h *Handler) handleSetProvider(w http.ResponseWriter, r *http.Request) {
	id, ok := owner(w, r)
	if !ok {
		return
	}
	if h.deps.Settings == nil {
		settingsUnavailable(w)
		return
	}

	var pc design.ProviderConfig
	if err := decodeJSON(r, &pc); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	pc.ProviderID = strings.ToLower(strings.TrimSpace(pc.ProviderID))
	kind, ok := provider.KindOf(pc.ProviderID)
	if !ok {
		writeError(w, &design.ConfigError{Provider: pc.ProviderID, Reason: "unsupported AI provider"})
		return
	}
	if kind != provider.KindImage {
		writeError(w, &design.ConfigError{Provider: pc.ProviderID, Reason: "provider does not generate images"})
		return
	}
	if strings.TrimSpace(pc.APIKey) == "" {
		writeError(w, &design.ConfigError{Provider: pc.ProviderID, Reason: "API key is required"})
		return
	}

	if err := h.deps.Settings.SetProviderSettings(r.Context(), id, pc); err != nil {
		writeError(w, err)
		return
	}
	model := strings.TrimSpace(pc.ModelID)
	if model == "" {
		model = provider.DefaultModel(pc.ProviderID)
	}
	writeJSON(w, http.StatusOK, response{Status: "ok", Provider: &providerSettingsOut{ProviderID: pc.ProviderID, ModelID: model}})
}

func (h *Handler) handleDeleteProvider(w http.ResponseWriter, r *http.Request) {
	id, ok := owner(w, r)
	if !ok {
		return
	}
	if h.deps.Settings == nil {
		settingsUnavailable(w)
		return
	}
	if err := h.deps.Settings.DeleteProviderSettings(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Status: "ok"})
}

func settingsUnavailable(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotImplemented, response{
		Status: "error",
		Error:  &errorPayload{Kind: design.KindConfig, Message: "provider settings are not stored by this server"},
	})
}

// providerFor returns the explicit provider config, or the owner's stored
// settings, or a zero config which selects rotation.
func (h *Handler) providerFor(ctx context.Context, id string, explicit *design.ProviderConfig) (design.ProviderConfig, error) {
	if explicit != nil && !explicit.IsZero() {
		return *explicit, nil
	}
	if h.deps.Settings == nil {
		return design.ProviderConfig{}, nil
	}
	stored, err := h.deps.Settings.GetProviderSettings(ctx, id)
	if err != nil {
		return design.ProviderConfig{}, fmt.Errorf("failed to load provider settings: %w", err)
	}
	if stored == nil {
		return design.ProviderConfig{}, nil
	}
	return *stored, nil
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	id, ok := owner(w, r)
	if !ok {
		return
	}
	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	if req.BudgetSlider != nil {
		if *req.BudgetSlider < 0 || *req.BudgetSlider > 100 {
			badRequest(w, "budget_slider must be between 0 and 100")
			return
		}
		if strings.TrimSpace(req.Request.Budget) == "" {
			req.Request.Budget = design.BudgetLabel(*req.BudgetSlider)
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	pc, err := h.providerFor(ctx, id, req.Provider)
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := h.deps.Designs.Generate(ctx, id, pc, req.Request)
	h.writeOutcome(w, out, err)
}

func (h *Handler) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	id, ok := owner(w, r)
	if !ok {
		return
	}
	var req regenerateRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	pc, err := h.providerFor(ctx, id, req.Provider)
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := h.deps.Designs.Regenerate(ctx, id, pc, req.Comment)
	h.writeOutcome(w, out, err)
}

func (h *Handler) writeOutcome(w http.ResponseWriter, out *studio.Outcome, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	if !out.Result.Success {
		writeJSON(w, httpStatus(out.Result.ErrorKind), response{
			Status:  "error",
			Error:   &errorPayload{Kind: out.Result.ErrorKind, Message: out.Result.ErrorDetail},
			Outcome: out,
		})
		return
	}
	writeJSON(w, http.StatusOK, response{Status: "ok", Outcome: out})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := owner(w, r)
	if !ok {
		return
	}
	if h.deps.History == nil {
		writeJSON(w, http.StatusOK, response{Status: "ok"})
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			badRequest(w, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	records, err := h.deps.History.DesignsByOwner(r.Context(), id, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	designs := make([]designOut, 0, len(records))
	for _, rec := range records {
		designs = append(designs, designOut{Record: rec, Total: boq.Total(rec.Result.Furniture)})
	}
	writeJSON(w, http.StatusOK, response{Status: "ok", Designs: designs})
}
