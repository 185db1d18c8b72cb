// README: Trip handlers: generate (plain and SSE), list, get, delete.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wander/internal/http/middleware"
	"wander/internal/modules/tripgen"
)

const resolveTimeout = 5 * time.Second

type TripGenerator interface {
	Generate(ctx context.Context, req tripgen.TripRequest, owner string, opts ...tripgen.GenerateOption) tripgen.Outcome
}

type TripReader interface {
	List(ctx context.Context, owner string) ([]tripgen.TripRecord, error)
	Get(ctx context.Context, owner, id string) (*tripgen.TripRecord, error)
	Delete(ctx context.Context, owner, id string) error
}

// QuotaGuard meters generations per owner. Anonymous owners are never metered.
type QuotaGuard interface {
	Consume(ctx context.Context, owner string) error
	Refund(ctx context.Context, owner string)
}

type DestinationResolver interface {
	Resolve(ctx context.Context, query string) (*tripgen.Location, error)
}

type TripHandlerDeps struct {
	Generator TripGenerator
	Trips     TripReader
	// Quota and Resolver are optional.
	Quota    QuotaGuard
	Resolver DestinationResolver
}

type TripHandler struct {
	gen      TripGenerator
	trips    TripReader
	quota    QuotaGuard
	resolver DestinationResolver
	logger   *zap.Logger
}

func NewTripHandler(deps TripHandlerDeps, logger *zap.Logger) *TripHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TripHandler{
		gen:      deps.Generator,
		trips:    deps.Trips,
		quota:    deps.Quota,
		resolver: deps.Resolver,
		logger:   logger.Named("trips_http"),
	}
}

type generateReq struct {
	Destination string                  `json:"destination"`
	Location    *tripgen.Location       `json:"location"`
	TotalDays   int                     `json:"total_days"`
	Traveler    tripgen.TravelerProfile `json:"traveler"`
	Budget      string                  `json:"budget"`
	Preferences []string                `json:"preferences"`
}

// prepare binds and validates the body, resolves the destination and takes a
// quota slot. On false the error response has already been written.
func (h *TripHandler) prepare(c *gin.Context) (tripgen.TripRequest, string, bool) {
	var body generateReq
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return tripgen.TripRequest{}, "", false
	}

	req := tripgen.TripRequest{
		Destination: strings.TrimSpace(body.Destination),
		Location:    body.Location,
		TotalDays:   body.TotalDays,
		Traveler:    body.Traveler,
		Budget:      tripgen.BudgetTier(body.Budget),
		Preferences: body.Preferences,
	}
	if tier, err := tripgen.ParseBudgetTier(body.Budget); err == nil {
		req.Budget = tier
	}
	if err := req.Validate(); err != nil {
		writeDomainError(c, err)
		return tripgen.TripRequest{}, "", false
	}

	if req.Location == nil && h.resolver != nil {
		rctx, cancel := context.WithTimeout(c.Request.Context(), resolveTimeout)
		loc, err := h.resolver.Resolve(rctx, req.Destination)
		cancel()
		if err != nil {
			h.logger.Info("destination not resolved", zap.String("destination", req.Destination), zap.Error(err))
		} else {
			req.Location = loc
		}
	}

	owner := middleware.CallerOwner(c)
	if h.quota != nil {
		if err := h.quota.Consume(c.Request.Context(), owner); err != nil {
			writeDomainError(c, err)
			return tripgen.TripRequest{}, "", false
		}
	}
	return req, owner, true
}

func (h *TripHandler) release(ctx context.Context, owner string, out tripgen.Outcome) {
	if out.Succeeded() || h.quota == nil {
		return
	}
	h.quota.Refund(context.WithoutCancel(ctx), owner)
}

// Generate handles POST /api/trips/generate.
func (h *TripHandler) Generate(c *gin.Context) {
	req, owner, ok := h.prepare(c)
	if !ok {
		return
	}

	out := h.gen.Generate(c.Request.Context(), req, owner)
	h.release(c.Request.Context(), owner, out)
	if !out.Succeeded() {
		writeDomainError(c, out.Err)
		return
	}
	writeJSON(c, http.StatusCreated, out.Record)
}

type progressEvent struct {
	State   tripgen.State `json:"state"`
	Message string        `json:"message"`
}

type outcomeEvent struct {
	State   tripgen.State       `json:"state"`
	TripID  string              `json:"trip_id,omitempty"`
	Trip    *tripgen.TripRecord `json:"trip,omitempty"`
	Error   string              `json:"error,omitempty"`
	Message string              `json:"message,omitempty"`
}

// Stream handles POST /api/trips/generate/stream. Progress is sent as "progress"
// events and the attempt ends with a single "outcome" event.
func (h *TripHandler) Stream(c *gin.Context) {
	req, owner, ok := h.prepare(c)
	if !ok {
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		h.release(c.Request.Context(), owner, tripgen.Outcome{State: tripgen.StateFailed})
		writeError(c, http.StatusInternalServerError, "streaming not supported")
		return
	}
	setSSEHeaders(c.Writer)
	c.Status(http.StatusOK)
	sseWrite(c.Writer, "ping", "ready")
	flusher.Flush()

	out := h.gen.Generate(c.Request.Context(), req, owner, tripgen.WithProgress(func(state tripgen.State, message string) {
		sseWrite(c.Writer, "progress", progressEvent{State: state, Message: message})
		flusher.Flush()
	}))
	h.release(c.Request.Context(), owner, out)

	ev := outcomeEvent{State: out.State, TripID: out.RecordID, Trip: out.Record}
	if !out.Succeeded() {
		_, ev.Error = classify(out.Err)
		ev.Message = userMessage(out.Err)
		_ = c.Error(out.Err)
	}
	sseWrite(c.Writer, "outcome", ev)
	flusher.Flush()
}

// List handles GET /api/trips.
func (h *TripHandler) List(c *gin.Context) {
	recs, err := h.trips.List(c.Request.Context(), middleware.CallerOwner(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if recs == nil {
		recs = []tripgen.TripRecord{}
	}
	writeJSON(c, http.StatusOK, gin.H{"trips": recs})
}

// Get handles GET /api/trips/:id.
func (h *TripHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid id")
		return
	}
	rec, err := h.trips.Get(c.Request.Context(), middleware.CallerOwner(c), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, rec)
}

// Delete handles DELETE /api/trips/:id.
func (h *TripHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.trips.Delete(c.Request.Context(), middleware.CallerOwner(c), id); err != nil {
		writeDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func setSSEHeaders(w http.ResponseWriter) {
	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
}

func sseWrite(w http.ResponseWriter, event string, data any) {
	payload := marshalPayload(data)
	if event != "" {
		_, _ = fmt.Fprintf(w, "event: %s\n", event)
	}
	for _, line := range strings.Split(payload, "\n") {
		_, _ = fmt.Fprintf(w, "data: %s\n", line)
	}
	_, _ = fmt.Fprint(w, "\n")
}

func marshalPayload(data any) string {
	switch payload := data.(type) {
	case string:
		return payload
	case []byte:
		return string(payload)
	default:
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Sprintf("%v", data)
		}
		return string(b)
	}
}
