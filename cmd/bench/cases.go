// README: Bench cases: environment, migrations, HTTP contract, SSE stream and load checks.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"wander/internal/infra"
	"wander/migrations"
)

const (
	statusPass    = "PASS"
	statusFail    = "FAIL"
	statusPending = "PENDING"
	statusSkip    = "SKIP"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 2 * time.Minute},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-7s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}

	return results
}

func sampleTrip() map[string]any {
	return map[string]any{
		"destination": "Kyoto",
		"total_days":  3,
		"traveler":    map[string]any{"title": "Couple", "description": "Two travelers in tandem"},
		"budget":      "Moderate",
	}
}

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	invalid := sampleTrip()
	invalid["total_days"] = 0

	return []TestCase{
		{
			Name: "Env: Postgres connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: statusSkip, Note: "db not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name: "Env: Redis connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: statusSkip, Note: "redis not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name: "Migration: apply (optional)",
			Run: func(ctx context.Context, r *Runner) Result {
				if !r.cfg.ApplyMigration || r.db == nil {
					return Result{Status: statusSkip, Note: "disabled"}
				}
				var fsys fs.FS = migrations.FS
				if r.cfg.MigrationsDir != "" {
					fsys = os.DirFS(r.cfg.MigrationsDir)
				}
				if err := infra.ApplyMigrations(ctx, r.db, fsys); err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name: "Migration: tables exist",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: statusSkip, Note: "db not configured"}
				}
				var missing []string
				for _, table := range []string{"wishlist_items", "user_trips", "generation_quota"} {
					var reg *string
					if err := r.db.QueryRow(ctx, "SELECT to_regclass($1)::text", table).Scan(&reg); err != nil || reg == nil {
						missing = append(missing, table)
					}
				}
				if len(missing) > 0 {
					return Result{Status: statusFail, Note: "missing " + strings.Join(missing, ", ")}
				}
				return Result{Status: statusPass}
			},
		},
		httpCaseMethod("API: health", http.MethodGet, base+"/health", nil, "", []int{200}, nil),
		httpCaseMethod("API: generate requires auth", http.MethodPost, base+"/api/trips/generate", sampleTrip(), "", []int{401}, nil),
		r.signedIn("API: generate rejects zero days", http.MethodPost, base+"/api/trips/generate", invalid, []int{400}),
		httpCaseMethod("API: trips list requires auth", http.MethodGet, base+"/api/trips", nil, "", []int{401}, nil),
		httpCaseMethod("API: wishlist requires auth", http.MethodGet, base+"/api/wishlist", nil, "", []int{401}, nil),
		// Model-side failures (502/504) depend on the provider, not on this service.
		r.signedInPending("API: signed-in generate", http.MethodPost, base+"/api/trips/generate", sampleTrip(), []int{201}, []int{502, 504}),
		{
			Name: "API: generate stream emits outcome",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.cfg.IDToken == "" {
					return Result{Status: statusSkip, Note: "no id token"}
				}
				return streamOutcome(ctx, r, base+"/api/trips/generate/stream", sampleTrip())
			},
		},
		r.signedIn("API: signed-in trips list", http.MethodGet, base+"/api/trips", nil, []int{200}),
		r.signedIn("API: signed-in wishlist add", http.MethodPost, base+"/api/wishlist", map[string]any{"item": "temples"}, []int{201}),
		{
			Name: "API: concurrent same-owner generations all finish",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.cfg.IDToken == "" {
					return Result{Status: statusSkip, Note: "no id token"}
				}
				return concurrentGenerate(ctx, r, base+"/api/trips/generate", 3)
			},
		},
		{
			Name: "Perf: health load",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, base+"/health")
			},
		},
	}
}

func (r *Runner) signedIn(name, method, url string, body any, ok []int) TestCase {
	return r.signedInPending(name, method, url, body, ok, nil)
}

func (r *Runner) signedInPending(name, method, url string, body any, ok, pending []int) TestCase {
	if r.cfg.IDToken == "" {
		return manualCase(name, "no id token")
	}
	return httpCaseMethod(name, method, url, body, r.cfg.IDToken, ok, pending)
}

func newRequest(ctx context.Context, method, url string, body any, token string) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func httpCaseMethod(name, method, url string, body any, token string, okStatuses, pendingStatuses []int) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			req, err := newRequest(ctx, method, url, body, token)
			if err != nil {
				return Result{Status: statusFail, Note: err.Error()}
			}
			start := time.Now()
			resp, err := r.httpc.Do(req)
			if err != nil {
				return Result{Status: statusFail, Note: err.Error()}
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			latency := time.Since(start)

			note := fmt.Sprintf("status=%d", resp.StatusCode)
			if contains(okStatuses, resp.StatusCode) {
				return Result{Status: statusPass, Latency: latency, Note: note}
			}
			if contains(pendingStatuses, resp.StatusCode) {
				return Result{Status: statusPending, Latency: latency, Note: note}
			}
			return Result{Status: statusFail, Latency: latency, Note: note}
		},
	}
}

func manualCase(name, note string) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			return Result{Status: statusSkip, Note: note}
		},
	}
}

// streamOutcome reads the SSE body until the "outcome" event.
func streamOutcome(ctx context.Context, r *Runner, url string, body any) Result {
	req, err := newRequest(ctx, http.MethodPost, url, body, r.cfg.IDToken)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	start := time.Now()
	resp, err := r.httpc.Do(req)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	defer resp.Body.Close()
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		return Result{Status: statusFail, Note: fmt.Sprintf("status=%d content-type=%s", resp.StatusCode, resp.Header.Get("Content-Type"))}
	}

	progress := 0
	event := ""
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
			if event == "progress" {
				progress++
			}
		case strings.HasPrefix(line, "data: ") && event == "outcome":
			note := fmt.Sprintf("progress=%d", progress)
			if strings.Contains(line, `"state":"succeeded"`) {
				return Result{Status: statusPass, Latency: time.Since(start), Note: note}
			}
			return Result{Status: statusPending, Latency: time.Since(start), Note: note + " " + strings.TrimPrefix(line, "data: ")}
		}
	}
	return Result{Status: statusFail, Note: "stream ended without outcome"}
}

// concurrentGenerate fires n generations for the same owner; the API serialises
// them, so every request must finish with a terminal status.
func concurrentGenerate(ctx context.Context, r *Runner, url string, n int) Result {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		statuses []int
	)
	start := time.Now()
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, err := newRequest(ctx, http.MethodPost, url, sampleTrip(), r.cfg.IDToken)
			if err != nil {
				return
			}
			resp, err := r.httpc.Do(req)
			if err != nil {
				return
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			mu.Lock()
			statuses = append(statuses, resp.StatusCode)
			mu.Unlock()
		}()
	}
	wg.Wait()

	note := fmt.Sprintf("statuses=%v", statuses)
	if len(statuses) != n {
		return Result{Status: statusFail, Latency: time.Since(start), Note: note}
	}
	for _, s := range statuses {
		if s != http.StatusCreated && s != http.StatusTooManyRequests {
			return Result{Status: statusPending, Latency: time.Since(start), Note: note}
		}
	}
	return Result{Status: statusPass, Latency: time.Since(start), Note: note}
}

func perfLoad(ctx context.Context, r *Runner, url string) Result {
	end := time.Now().Add(r.cfg.Duration)
	var count, errCount int64
	var mu sync.Mutex
	wg := sync.WaitGroup{}

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
				resp, err := r.httpc.Do(req)
				mu.Lock()
				if err != nil {
					errCount++
					mu.Unlock()
					continue
				}
				count++
				mu.Unlock()
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: statusFail, Note: "no requests completed"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: statusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}

func contains(list []int, v int) bool {
	for _, i := range list {
		if i == v {
			return true
		}
	}
	return false
}
