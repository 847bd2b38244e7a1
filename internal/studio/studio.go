// Package studio orchestrates design generation: validation, token checks,
// the image stage, the bill of quantities stage and token settlement.
package studio

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raine/room-design-studio/internal/boq"
	"github.com/raine/room-design-studio/internal/design"
	"github.com/raine/room-design-studio/internal/ledger"
	"github.com/raine/room-design-studio/internal/provider"
	"github.com/rs/zerolog/log"
)

// GenerationCost is the number of tokens a successful design costs.
const GenerationCost = 1

// Resolver constructs providers by id. *provider.Registry implements it.
type Resolver interface {
	Get(providerID, apiKey, modelID string) (provider.Provider, error)
}

// Recorder keeps the history of successful designs.
type Recorder interface {
	RecordDesign(ctx context.Context, rec design.Record) error
}

// History reads back recorded designs, newest first.
type History interface {
	DesignsByOwner(ctx context.Context, owner string, limit int) ([]design.Record, error)
}

// Config wires an Orchestrator.
type Config struct {
	Ledger    ledger.Ledger
	Providers Resolver

	// Rotation is the provider allow-list used when a call names no
	// provider; DefaultKeys supplies their API keys.
	Rotation    []string
	DefaultKeys map[string]string
	Picker      provider.Picker

	// BOQProvider selects the text provider for the bill of quantities.
	// When zero, the synthetic estimate from the image stage is kept.
	BOQProvider design.ProviderConfig
	BOQCache    provider.BOQCache

	ProviderTimeout time.Duration

	Recorder Recorder
	// History restores an owner's latest design for Regenerate when it is
	// not held in memory, e.g. after a restart.
	History History
	Journal *Journal
}

type session struct {
	lastRequest    design.Request
	lastResult     design.Result
	hasDesign      bool
	pendingComment string
}

// Orchestrator runs design generations. Runs for the same owner are
// serialized; different owners proceed concurrently.
type Orchestrator struct {
	cfg Config

	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	sessions map[string]*session
}

func New(cfg Config) *Orchestrator {
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = provider.DefaultTimeout
	}
	if cfg.Picker == nil {
		cfg.Picker = provider.RandomPicker
	}
	return &Orchestrator{
		cfg:      cfg,
		locks:    make(map[string]*sync.Mutex),
		sessions: make(map[string]*session),
	}
}

func (o *Orchestrator) ownerLock(owner string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.locks[owner]
	if !ok {
		l = &sync.Mutex{}
		o.locks[owner] = l
	}
	return l
}

func (o *Orchestrator) session(owner string) *session {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[owner]
	if !ok {
		s = &session{}
		o.sessions[owner] = s
	}
	return s
}

// Generate runs one design generation for owner.
//
// Validation errors, design.ErrInsufficientTokens and *design.ConfigError
// are returned before any provider is called. A failed image stage is not
// an error: the returned Outcome is settled as a failure and no token is
// debited.
func (o *Orchestrator) Generate(ctx context.Context, owner string, pc design.ProviderConfig, req design.Request) (*Outcome, error) {
	lock := o.ownerLock(owner)
	lock.Lock()
	defer lock.Unlock()

	o.cfg.Journal.Start(owner)
	return o.run(ctx, owner, pc, req)
}

// Regenerate re-runs the owner's latest successful design with a
// refinement comment. An empty comment falls back to the one stored with
// SetRegenerationComment.
func (o *Orchestrator) Regenerate(ctx context.Context, owner string, pc design.ProviderConfig, comment string) (*Outcome, error) {
	lock := o.ownerLock(owner)
	lock.Lock()
	defer lock.Unlock()

	s := o.session(owner)
	o.mu.Lock()
	hasDesign, last, pending := s.hasDesign, s.lastRequest, s.pendingComment
	o.mu.Unlock()

	if !hasDesign {
		rec, err := o.restoreLatest(ctx, owner)
		if err != nil {
			return nil, err
		}
		last = rec.Request.WithoutRegenerationComment()
	}

	comment = strings.TrimSpace(comment)
	if comment == "" {
		comment = strings.TrimSpace(pending)
	}
	if comment == "" {
		return nil, design.ErrEmptyComment
	}

	out, err := o.run(ctx, owner, pc, last.WithRegenerationComment(comment))
	if err != nil || out.State == StateSettledFailure {
		o.SetRegenerationComment(owner, comment)
	}
	return out, err
}

// restoreLatest loads the owner's latest recorded design into the session.
func (o *Orchestrator) restoreLatest(ctx context.Context, owner string) (design.Record, error) {
	if o.cfg.History == nil {
		return design.Record{}, design.ErrNoPriorDesign
	}
	records, err := o.cfg.History.DesignsByOwner(ctx, owner, 1)
	if err != nil {
		return design.Record{}, fmt.Errorf("failed to load latest design: %w", err)
	}
	if len(records) == 0 {
		return design.Record{}, design.ErrNoPriorDesign
	}

	rec := records[0]
	s := o.session(owner)
	o.mu.Lock()
	s.lastRequest = rec.Request.WithoutRegenerationComment()
	s.lastResult = rec.Result
	s.hasDesign = true
	o.mu.Unlock()

	log.Info().Str("owner", owner).Str("designID", rec.ID).Msg("restored latest design from history")
	return rec, nil
}

// SetRegenerationComment stores a refinement comment for the owner's next
// Regenerate call.
func (o *Orchestrator) SetRegenerationComment(owner, comment string) {
	s := o.session(owner)
	o.mu.Lock()
	s.pendingComment = comment
	o.mu.Unlock()
}

// Latest returns the owner's latest successful request and result.
func (o *Orchestrator) Latest(owner string) (design.Request, design.Result, bool) {
	s := o.session(owner)
	o.mu.Lock()
	defer o.mu.Unlock()
	return s.lastRequest, s.lastResult, s.hasDesign
}

// run executes the pipeline. The caller holds the owner's lock.
func (o *Orchestrator) run(ctx context.Context, owner string, pc design.ProviderConfig, req design.Request) (*Outcome, error) {
	out := &Outcome{ID: uuid.NewString(), Request: req}
	out.enter(StateIdle)
	out.enter(StateValidating)
	o.cfg.Journal.State(owner, "validating design %s (room=%s style=%s)", out.ID, req.RoomType, req.Style)

	if err := req.Validate(); err != nil {
		o.cfg.Journal.Error(owner, "validation failed: %v", err)
		return nil, err
	}

	balance, err := o.cfg.Ledger.Balance(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to read token balance: %w", err)
	}
	if balance < GenerationCost {
		o.cfg.Journal.Error(owner, "insufficient tokens (balance=%d)", balance)
		return nil, design.ErrInsufficientTokens
	}

	imageProvider, err := o.resolveImageProvider(pc)
	if err != nil {
		o.cfg.Journal.Error(owner, "provider config: %v", err)
		return nil, err
	}

	out.enter(StateGeneratingImage)
	o.cfg.Journal.State(owner, "generating image with %s", imageProvider.Name())

	imageCtx, cancel := context.WithTimeout(ctx, o.cfg.ProviderTimeout)
	res := imageProvider.GenerateDesign(imageCtx, req)
	cancel()

	if !res.Success {
		out.Result = res
		out.Balance = balance
		out.enter(StateSettledFailure)
		o.cfg.Journal.API(owner, "%s failed: %s: %s", imageProvider.Name(), res.ErrorKind, res.ErrorDetail)
		o.cfg.Journal.State(owner, "settled failure, no tokens debited")
		log.Warn().
			Str("owner", owner).
			Str("designID", out.ID).
			Str("provider", imageProvider.Name()).
			Str("errorKind", string(res.ErrorKind)).
			Str("error", res.ErrorDetail).
			Msg("design generation failed")
		return out, nil
	}
	o.cfg.Journal.API(owner, "%s returned image (%s, %d furniture items)", imageProvider.Name(), res.ImageSource, len(res.Furniture))

	out.enter(StateGeneratingBOQ)
	res = o.runBOQ(ctx, owner, out, req, res)

	// A finished generation is charged even if the caller went away.
	settleCtx := context.WithoutCancel(ctx)
	newBalance, err := o.cfg.Ledger.Debit(settleCtx, owner, GenerationCost)
	if err != nil {
		log.Error().Err(err).Str("owner", owner).Str("designID", out.ID).Msg("failed to debit token after successful generation")
		o.cfg.Journal.Error(owner, "debit failed: %v", err)
		out.diagnose("settle", design.KindOf(err), err.Error())
	} else {
		o.cfg.Journal.Ledger(owner, "debited %d token, balance=%d", GenerationCost, newBalance)
	}
	out.Balance = newBalance

	out.Result = res
	out.Total = boq.Total(res.Furniture)
	out.enter(StateSettledSuccess)
	o.cfg.Journal.State(owner, "settled success")

	s := o.session(owner)
	o.mu.Lock()
	s.lastRequest = req.WithoutRegenerationComment()
	s.lastResult = res
	s.hasDesign = true
	s.pendingComment = ""
	o.mu.Unlock()

	if o.cfg.Recorder != nil {
		rec := design.Record{ID: out.ID, OwnerID: owner, Request: req, Result: res, CreatedAt: time.Now()}
		if err := o.cfg.Recorder.RecordDesign(settleCtx, rec); err != nil {
			log.Warn().Err(err).Str("owner", owner).Str("designID", out.ID).Msg("failed to record design history")
		}
	}

	log.Info().
		Str("owner", owner).
		Str("designID", out.ID).
		Str("provider", res.Provider).
		Str("imageSource", string(res.ImageSource)).
		Int("furnitureItems", len(res.Furniture)).
		Int("balance", out.Balance).
		Msg("design generated")

	return out, nil
}

func (o *Orchestrator) resolveImageProvider(pc design.ProviderConfig) (provider.Provider, error) {
	if pc.IsZero() {
		rotated, err := provider.Rotate(o.cfg.Rotation, o.cfg.DefaultKeys, o.cfg.Picker)
		if err != nil {
			return nil, err
		}
		pc = rotated
	}

	p, err := o.cfg.Providers.Get(pc.ProviderID, pc.APIKey, pc.ModelID)
	if err != nil {
		return nil, err
	}
	if p.Kind() != provider.KindImage {
		return nil, &design.ConfigError{Provider: pc.ProviderID, Reason: "provider does not generate images"}
	}
	return p, nil
}

// runBOQ replaces res.Furniture with the text provider's table when it
// yields at least one item. Otherwise the synthetic estimate is kept and a
// diagnostic is recorded.
func (o *Orchestrator) runBOQ(ctx context.Context, owner string, out *Outcome, req design.Request, res design.Result) design.Result {
	if o.cfg.BOQProvider.IsZero() {
		return res
	}

	bc := o.cfg.BOQProvider
	textProvider, err := o.cfg.Providers.Get(bc.ProviderID, bc.APIKey, bc.ModelID)
	if err != nil {
		out.diagnose("boq", design.KindOf(err), err.Error())
		o.cfg.Journal.Error(owner, "boq provider: %v", err)
		return res
	}
	if textProvider.Kind() != provider.KindText {
		err := &design.ConfigError{Provider: bc.ProviderID, Reason: "provider does not extract text"}
		out.diagnose("boq", design.KindConfig, err.Error())
		o.cfg.Journal.Error(owner, "boq provider: %v", err)
		return res
	}
	if o.cfg.BOQCache != nil {
		textProvider = provider.NewCachedExtractor(textProvider, o.cfg.BOQCache)
	}

	boqCtx, cancel := context.WithTimeout(ctx, o.cfg.ProviderTimeout)
	defer cancel()
	text := textProvider.GenerateDesign(boqCtx, req)

	switch {
	case !text.Success:
		out.diagnose("boq", text.ErrorKind, text.ErrorDetail)
		o.cfg.Journal.API(owner, "%s failed, keeping estimate: %s", textProvider.Name(), text.ErrorDetail)
		return res
	case len(text.Furniture) == 0:
		out.diagnose("boq", design.KindParse, design.ErrParse.Error())
		o.cfg.Journal.API(owner, "%s returned no table rows, keeping estimate", textProvider.Name())
		return res
	}

	o.cfg.Journal.API(owner, "%s returned %d furniture items", textProvider.Name(), len(text.Furniture))
	return res.WithFurniture(text.Furniture)
}
