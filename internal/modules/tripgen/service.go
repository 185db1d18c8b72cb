// README: Trip generation orchestrator: preferences -> prompt -> completion -> parse -> persist.
package tripgen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultCompletionTimeout bounds a single completion call.
const DefaultCompletionTimeout = 60 * time.Second

var progressMessages = map[State]string{
	StateFetchingPreferences: "Fetching your travel preferences...",
	StateBuildingPrompt:      "Crafting your personalized itinerary...",
	StateAwaitingCompletion:  "Generating AI recommendations...",
	StateParsing:             "Processing AI response...",
	StatePersisting:          "Saving your trip...",
	StateSucceeded:           "Your trip is ready!",
}

// ProgressFunc receives every state the attempt enters, with a display message.
type ProgressFunc func(state State, message string)

type Deps struct {
	Preferences PreferenceStore
	Records     RecordStore
	Completion  CompletionService
	IDs         IDGenerator
	// Locker is optional; nil disables per-owner serialization.
	Locker Locker
}

type Options struct {
	Template          string
	CompletionTimeout time.Duration
	StrictPlan        bool
}

// Generator runs one linear generation attempt per Generate call. It holds no
// per-attempt state, so it is safe for concurrent use.
type Generator struct {
	prefs      PreferenceStore
	records    RecordStore
	completion CompletionService
	ids        IDGenerator
	locker     Locker
	opts       Options
	logger     *zap.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

func NewGenerator(deps Deps, opts Options, logger *zap.Logger) *Generator {
	if opts.Template == "" {
		opts.Template = DefaultPromptTemplate
	}
	if opts.CompletionTimeout <= 0 {
		opts.CompletionTimeout = DefaultCompletionTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		prefs:      deps.Preferences,
		records:    deps.Records,
		completion: deps.Completion,
		ids:        deps.IDs,
		locker:     deps.Locker,
		opts:       opts,
		logger:     logger.Named("tripgen"),
		tracer:     otel.Tracer("wander/tripgen"),
		now:        time.Now,
	}
}

type generateConfig struct {
	progress ProgressFunc
}

type GenerateOption func(*generateConfig)

func WithProgress(fn ProgressFunc) GenerateOption {
	return func(c *generateConfig) { c.progress = fn }
}

// attempt tracks the state of a single Generate call.
type attempt struct {
	state    State
	progress ProgressFunc
	logger   *zap.Logger
}

func (a *attempt) enter(next State) {
	if !CanTransition(a.state, next) {
		// Programmer error: the flow below only walks the table.
		panic(fmt.Sprintf("tripgen: invalid transition %s -> %s", a.state, next))
	}
	a.logger.Debug("state transition", zap.String("from", string(a.state)), zap.String("to", string(next)))
	a.state = next
	if a.progress != nil {
		if msg, ok := progressMessages[next]; ok {
			a.progress(next, msg)
		}
	}
}

func (a *attempt) fail(err error) Outcome {
	a.logger.Warn("trip generation failed", zap.String("stage", string(a.state)), zap.Error(err))
	a.state = StateFailed
	if a.progress != nil {
		a.progress(StateFailed, UserMessage(err))
	}
	return Outcome{State: StateFailed, Err: err}
}

// Generate runs the pipeline for req. owner is the caller's identity; an empty
// owner skips the preference fetch and per-owner locking.
func (g *Generator) Generate(ctx context.Context, req TripRequest, owner string, opts ...GenerateOption) Outcome {
	var cfg generateConfig
	for _, o := range opts {
		o(&cfg)
	}

	ctx, span := g.tracer.Start(ctx, "tripgen.Generate", trace.WithAttributes(
		attribute.String("trip.destination", req.Destination),
		attribute.Int("trip.total_days", req.TotalDays),
		attribute.Bool("trip.anonymous", owner == ""),
	))
	defer span.End()

	a := &attempt{
		state:    StateIdle,
		progress: cfg.progress,
		logger:   g.logger.With(zap.String("owner", owner), zap.String("destination", req.Destination)),
	}

	out := g.run(ctx, a, req, owner)
	if out.Err != nil {
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, out.Err.Error())
	} else {
		span.SetAttributes(attribute.String("trip.id", out.RecordID))
	}
	return out
}

func (g *Generator) run(ctx context.Context, a *attempt, req TripRequest, owner string) Outcome {
	if err := req.Validate(); err != nil {
		return a.fail(err)
	}
	req = cloneRequest(req)

	if owner != "" && g.locker != nil {
		unlock, err := g.locker.Lock(ctx, owner)
		if err != nil {
			if ctx.Err() != nil {
				return a.fail(fmt.Errorf("%w: waiting for owner lock: %v", ErrCancelled, err))
			}
			if !errors.Is(err, ErrStoreUnavailable) {
				err = fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
			return a.fail(err)
		}
		defer unlock()
	}

	a.logger.Info("trip generation started")

	var fetched []string
	if owner != "" {
		a.enter(StateFetchingPreferences)
		fetched = g.fetchPreferences(ctx, a, owner)
		if ctx.Err() != nil {
			return a.fail(fmt.Errorf("%w: %v", ErrCancelled, ctx.Err()))
		}
	}
	snapshot := mergePreferences(fetched, req.Preferences)

	a.enter(StateBuildingPrompt)
	promptReq := req
	promptReq.Preferences = snapshot
	prompt, err := BuildPrompt(g.opts.Template, promptReq)
	if err != nil {
		return a.fail(err)
	}
	a.logger.Debug("prompt built", zap.Int("prompt_len", len(prompt)), zap.Int("preferences", len(snapshot)))

	a.enter(StateAwaitingCompletion)
	text, err := g.complete(ctx, prompt)
	if err != nil {
		return a.fail(err)
	}

	a.enter(StateParsing)
	plan, err := ParsePlan(text, g.opts.StrictPlan)
	if err != nil {
		a.logger.Debug("unparsable completion", zap.String("raw", truncate(text, 512)))
		return a.fail(err)
	}

	if ctx.Err() != nil {
		return a.fail(fmt.Errorf("%w: %v", ErrCancelled, ctx.Err()))
	}

	a.enter(StatePersisting)
	rec := &TripRecord{
		ID:                 g.ids.NextID(),
		OwnerIdentity:      owner,
		Plan:               plan,
		Request:            req,
		PreferenceSnapshot: snapshot,
		CreatedAt:          g.now().UTC(),
	}
	if err := g.persist(ctx, rec); err != nil {
		return a.fail(err)
	}

	a.enter(StateSucceeded)
	a.logger.Info("trip generation succeeded", zap.String("trip_id", rec.ID))
	return Outcome{State: StateSucceeded, RecordID: rec.ID, Record: rec}
}

// fetchPreferences never fails the attempt: on error the plan is generated
// without wishlist data.
func (g *Generator) fetchPreferences(ctx context.Context, a *attempt, owner string) []string {
	if g.prefs == nil {
		return nil
	}
	ctx, span := g.tracer.Start(ctx, "tripgen.fetch_preferences")
	defer span.End()

	prefs, err := g.prefs.Preferences(ctx, owner)
	if err != nil {
		span.RecordError(err)
		a.logger.Warn("preference fetch failed, continuing without wishlist", zap.Error(err))
		return nil
	}
	span.SetAttributes(attribute.Int("preferences.count", len(prefs)))
	return prefs
}

func (g *Generator) complete(ctx context.Context, prompt string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, g.opts.CompletionTimeout)
	defer cancel()
	cctx, span := g.tracer.Start(cctx, "tripgen.complete")
	defer span.End()

	start := g.now()
	text, err := g.completion.Complete(cctx, prompt)
	if err == nil {
		span.SetAttributes(attribute.Int64("completion.duration_ms", g.now().Sub(start).Milliseconds()))
		return text, nil
	}
	span.RecordError(err)

	switch {
	case ctx.Err() != nil:
		return "", fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	case errors.Is(cctx.Err(), context.DeadlineExceeded):
		return "", fmt.Errorf("%w after %s", ErrCompletionTimeout, g.opts.CompletionTimeout)
	case errors.Is(err, ErrCompletion):
		return "", err
	default:
		return "", fmt.Errorf("%w: %v", ErrCompletion, err)
	}
}

func (g *Generator) persist(ctx context.Context, rec *TripRecord) error {
	ctx, span := g.tracer.Start(ctx, "tripgen.persist", trace.WithAttributes(attribute.String("trip.id", rec.ID)))
	defer span.End()

	err := g.records.CreateTrip(ctx, rec)
	if err == nil {
		return nil
	}
	span.RecordError(err)
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// mergePreferences keeps the stored wishlist order and appends request-supplied
// items that are not already present.
func mergePreferences(fetched, requested []string) []string {
	out := make([]string, 0, len(fetched)+len(requested))
	seen := make(map[string]struct{}, len(fetched)+len(requested))
	for _, list := range [][]string{fetched, requested} {
		for _, p := range list {
			if _, ok := seen[p]; ok || p == "" {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

func cloneRequest(req TripRequest) TripRequest {
	if req.Location != nil {
		loc := *req.Location
		req.Location = &loc
	}
	req.Preferences = append([]string(nil), req.Preferences...)
	return req
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
