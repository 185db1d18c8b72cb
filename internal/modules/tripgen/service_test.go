package tripgen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPreferences struct {
	prefs []string
	err   error
	calls int
}

func (s *stubPreferences) Preferences(_ context.Context, _ string) ([]string, error) {
	s.calls++
	return s.prefs, s.err
}

// spyRecords records every CreateTrip call.
type spyRecords struct {
	mu      sync.Mutex
	created []*TripRecord
	err     error
}

func (s *spyRecords) CreateTrip(_ context.Context, rec *TripRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.created = append(s.created, rec)
	return nil
}

func (s *spyRecords) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.created)
}

type stubCompletion struct {
	text    string
	err     error
	block   bool
	prompts []string
}

func (s *stubCompletion) Complete(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.text, s.err
}

type counterIDs struct{ n atomic.Int64 }

func (c *counterIDs) NextID() string { return fmt.Sprint(c.n.Add(1)) }

func parisRequest() TripRequest {
	return TripRequest{
		Destination: "Paris",
		TotalDays:   3,
		Traveler:    TravelerProfile{Title: "Couple"},
		Budget:      BudgetModerate,
		Preferences: []string{},
	}
}

func newTestGenerator(prefs PreferenceStore, records RecordStore, completion CompletionService, opts Options) *Generator {
	return NewGenerator(Deps{
		Preferences: prefs,
		Records:     records,
		Completion:  completion,
		IDs:         &counterIDs{},
		Locker:      NewLocalLocker(),
	}, opts, nil)
}

func TestGenerate_ScenarioA_Succeeds(t *testing.T) {
	prefs := &stubPreferences{prefs: []string{}}
	records := &spyRecords{}
	completion := &stubCompletion{text: `{"trip_details":{"destination":"Paris"}}`}
	g := newTestGenerator(prefs, records, completion, Options{})

	out := g.Generate(context.Background(), parisRequest(), "alice@example.com")

	require.NoError(t, out.Err)
	assert.Equal(t, StateSucceeded, out.State)
	require.Equal(t, 1, records.count())
	rec := records.created[0]
	assert.Equal(t, out.RecordID, rec.ID)
	assert.Equal(t, "alice@example.com", rec.OwnerIdentity)
	assert.Empty(t, rec.PreferenceSnapshot)
	assert.Equal(t, "Paris", rec.Plan.Destination())
	assert.Equal(t, "Paris", rec.Request.Destination)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Equal(t, 1, prefs.calls)
	require.Len(t, completion.prompts, 1)
	assert.Contains(t, completion.prompts[0], "No specific preferences")
}

func TestGenerate_ScenarioB_MalformedPlanWritesNothing(t *testing.T) {
	records := &spyRecords{}
	g := newTestGenerator(&stubPreferences{}, records, &stubCompletion{text: "not json"}, Options{})

	out := g.Generate(context.Background(), parisRequest(), "alice@example.com")

	assert.Equal(t, StateFailed, out.State)
	assert.True(t, errors.Is(out.Err, ErrMalformedPlan), "got %v", out.Err)
	assert.Empty(t, out.RecordID)
	assert.Equal(t, 0, records.count())
}

func TestGenerate_ScenarioC_PreferenceFailureDegrades(t *testing.T) {
	records := &spyRecords{}
	completion := &stubCompletion{text: `{"trip_details":{"destination":"Paris"}}`}
	g := newTestGenerator(&stubPreferences{err: fmt.Errorf("%w: connection reset", ErrStoreUnavailable)}, records, completion, Options{})

	var states []State
	out := g.Generate(context.Background(), parisRequest(), "alice@example.com", WithProgress(func(s State, _ string) {
		states = append(states, s)
	}))

	require.NoError(t, out.Err)
	assert.Equal(t, StateSucceeded, out.State)
	require.Equal(t, 1, records.count())
	assert.Empty(t, records.created[0].PreferenceSnapshot)
	assert.Contains(t, states, StateBuildingPrompt)
	assert.NotContains(t, states, StateFailed)
}

func TestGenerate_ProgressSequence(t *testing.T) {
	g := newTestGenerator(&stubPreferences{prefs: []string{"Louvre"}}, &spyRecords{}, &stubCompletion{text: `{}`}, Options{})

	var states []State
	var messages []string
	out := g.Generate(context.Background(), parisRequest(), "alice@example.com", WithProgress(func(s State, msg string) {
		states = append(states, s)
		messages = append(messages, msg)
	}))

	require.True(t, out.Succeeded())
	assert.Equal(t, []State{
		StateFetchingPreferences,
		StateBuildingPrompt,
		StateAwaitingCompletion,
		StateParsing,
		StatePersisting,
		StateSucceeded,
	}, states)
	for _, m := range messages {
		assert.NotEmpty(t, m)
	}
}

func TestGenerate_AnonymousSkipsPreferenceFetch(t *testing.T) {
	prefs := &stubPreferences{prefs: []string{"should not be used"}}
	records := &spyRecords{}
	g := newTestGenerator(prefs, records, &stubCompletion{text: `{}`}, Options{})

	var states []State
	out := g.Generate(context.Background(), parisRequest(), "", WithProgress(func(s State, _ string) {
		states = append(states, s)
	}))

	require.True(t, out.Succeeded())
	assert.Equal(t, 0, prefs.calls)
	assert.Equal(t, StateBuildingPrompt, states[0])
	assert.Empty(t, records.created[0].PreferenceSnapshot)
}

func TestGenerate_MergesFetchedAndRequestedPreferences(t *testing.T) {
	records := &spyRecords{}
	completion := &stubCompletion{text: `{}`}
	g := newTestGenerator(&stubPreferences{prefs: []string{"Louvre", "Seine cruise"}}, records, completion, Options{})

	req := parisRequest()
	req.Preferences = []string{"Seine cruise", "Bakeries"}
	out := g.Generate(context.Background(), req, "alice@example.com")

	require.True(t, out.Succeeded())
	assert.Equal(t, []string{"Louvre", "Seine cruise", "Bakeries"}, records.created[0].PreferenceSnapshot)
	assert.Contains(t, completion.prompts[0], "Louvre, Seine cruise, Bakeries")
}

func TestGenerate_InvalidRequest(t *testing.T) {
	cases := map[string]func(*TripRequest){
		"zero days":      func(r *TripRequest) { r.TotalDays = 0 },
		"no destination": func(r *TripRequest) { r.Destination = " " },
		"unknown budget": func(r *TripRequest) { r.Budget = "Platinum" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			completion := &stubCompletion{text: `{}`}
			records := &spyRecords{}
			g := newTestGenerator(&stubPreferences{}, records, completion, Options{})

			req := parisRequest()
			mutate(&req)
			out := g.Generate(context.Background(), req, "alice@example.com")

			assert.Equal(t, StateFailed, out.State)
			assert.True(t, errors.Is(out.Err, ErrInvalidRequest), "got %v", out.Err)
			assert.Empty(t, completion.prompts)
			assert.Equal(t, 0, records.count())
		})
	}
}

func TestGenerate_CompletionErrorIsFatal(t *testing.T) {
	records := &spyRecords{}
	g := newTestGenerator(&stubPreferences{}, records, &stubCompletion{err: errors.New("503 from upstream")}, Options{})

	out := g.Generate(context.Background(), parisRequest(), "alice@example.com")

	assert.Equal(t, StateFailed, out.State)
	assert.True(t, errors.Is(out.Err, ErrCompletion), "got %v", out.Err)
	assert.Equal(t, 0, records.count())
}

func TestGenerate_CompletionTimeout(t *testing.T) {
	records := &spyRecords{}
	g := newTestGenerator(&stubPreferences{}, records, &stubCompletion{block: true}, Options{CompletionTimeout: 20 * time.Millisecond})

	out := g.Generate(context.Background(), parisRequest(), "alice@example.com")

	assert.Equal(t, StateFailed, out.State)
	assert.True(t, errors.Is(out.Err, ErrCompletionTimeout), "got %v", out.Err)
	assert.Equal(t, 0, records.count())
}

func TestGenerate_CallerCancellation(t *testing.T) {
	records := &spyRecords{}
	g := newTestGenerator(&stubPreferences{}, records, &stubCompletion{block: true}, Options{CompletionTimeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	out := g.Generate(ctx, parisRequest(), "alice@example.com")

	assert.Equal(t, StateFailed, out.State)
	assert.True(t, errors.Is(out.Err, ErrCancelled), "got %v", out.Err)
	assert.Equal(t, 0, records.count())
}

func TestGenerate_PersistFailureIsFatal(t *testing.T) {
	records := &spyRecords{err: errors.New("deadline exceeded talking to firestore")}
	g := newTestGenerator(&stubPreferences{}, records, &stubCompletion{text: `{}`}, Options{})

	out := g.Generate(context.Background(), parisRequest(), "alice@example.com")

	assert.Equal(t, StateFailed, out.State)
	assert.True(t, errors.Is(out.Err, ErrStoreUnavailable), "got %v", out.Err)
	assert.Empty(t, out.RecordID)
}

func TestGenerate_StrictPlanRejectsMissingSections(t *testing.T) {
	records := &spyRecords{}
	g := newTestGenerator(&stubPreferences{}, records, &stubCompletion{text: `{"trip_details":{"destination":"Paris"}}`}, Options{StrictPlan: true})

	out := g.Generate(context.Background(), parisRequest(), "alice@example.com")

	assert.True(t, errors.Is(out.Err, ErrSchemaMismatch), "got %v", out.Err)
	assert.Equal(t, 0, records.count())
}

func TestGenerate_TemplateError(t *testing.T) {
	completion := &stubCompletion{text: `{}`}
	g := newTestGenerator(&stubPreferences{}, &spyRecords{}, completion, Options{Template: "trip to {location}"})

	out := g.Generate(context.Background(), parisRequest(), "alice@example.com")

	assert.True(t, errors.Is(out.Err, ErrTemplate), "got %v", out.Err)
	assert.Empty(t, completion.prompts)
}

func TestGenerate_SequentialIDsAreDistinct(t *testing.T) {
	ids, err := NewSnowflakeIDs(1)
	require.NoError(t, err)
	records := &spyRecords{}
	g := NewGenerator(Deps{
		Preferences: &stubPreferences{},
		Records:     records,
		Completion:  &stubCompletion{text: `{}`},
		IDs:         ids,
	}, Options{}, nil)

	const n = 200
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		out := g.Generate(context.Background(), parisRequest(), "alice@example.com")
		require.True(t, out.Succeeded())
		_, dup := seen[out.RecordID]
		require.False(t, dup, "duplicate id %s", out.RecordID)
		seen[out.RecordID] = struct{}{}
	}
	assert.Equal(t, n, records.count())
}

// overlapCompletion fails the test if two completions run at the same time.
type overlapCompletion struct {
	active atomic.Int32
	max    atomic.Int32
}

func (c *overlapCompletion) Complete(_ context.Context, _ string) (string, error) {
	n := c.active.Add(1)
	defer c.active.Add(-1)
	for {
		m := c.max.Load()
		if n <= m || c.max.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return `{}`, nil
}

func TestGenerate_SerializesSameOwner(t *testing.T) {
	completion := &overlapCompletion{}
	records := &spyRecords{}
	g := newTestGenerator(&stubPreferences{}, records, completion, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out := g.Generate(context.Background(), parisRequest(), "alice@example.com")
			assert.True(t, out.Succeeded())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), completion.max.Load())
	assert.Equal(t, 8, records.count())
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to State
		want     bool
	}{
		{StateIdle, StateFetchingPreferences, true},
		{StateIdle, StateBuildingPrompt, true},
		{StateFetchingPreferences, StateBuildingPrompt, true},
		{StateBuildingPrompt, StateAwaitingCompletion, true},
		{StateAwaitingCompletion, StateParsing, true},
		{StateParsing, StatePersisting, true},
		{StatePersisting, StateSucceeded, true},
		{StateParsing, StateFailed, true},
		// no skipping ahead
		{StateAwaitingCompletion, StatePersisting, false},
		{StateBuildingPrompt, StateSucceeded, false},
		// terminal states have no outgoing transitions
		{StateSucceeded, StateIdle, false},
		{StateFailed, StateBuildingPrompt, false},
		// no loops back
		{StateParsing, StateAwaitingCompletion, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
