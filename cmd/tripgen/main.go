// README: Command-line trip generator; runs one generation and prints the plan as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"wander/internal/ai"
	"wander/internal/infra"
	"wander/internal/modules/tripgen"
)

type listFlag []string

func (l *listFlag) String() string     { return strings.Join(*l, ", ") }
func (l *listFlag) Set(v string) error { *l = append(*l, v); return nil }

// stdoutRecords prints the record instead of storing it.
type stdoutRecords struct{}

func (stdoutRecords) CreateTrip(_ context.Context, rec *tripgen.TripRecord) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}

func main() {
	_ = godotenv.Load()

	var (
		prefs    listFlag
		req      tripgen.TripRequest
		budget   string
		provider string
		timeout  time.Duration
		strict   bool
		verbose  bool
	)
	flag.StringVar(&req.Destination, "destination", "", "destination name (required)")
	flag.IntVar(&req.TotalDays, "days", 3, "trip length in days")
	flag.StringVar(&req.Traveler.Title, "traveler", "Just Me", "traveler profile title")
	flag.StringVar(&req.Traveler.Description, "traveler-desc", "", "traveler profile description")
	flag.StringVar(&budget, "budget", "Moderate", "Cheap, Moderate or Luxury")
	flag.Var(&prefs, "pref", "preference item (repeatable)")
	flag.StringVar(&provider, "provider", envOrDefault("WANDER_AI_PROVIDER", "gemini"), "gemini or openai")
	flag.DurationVar(&timeout, "timeout", tripgen.DefaultCompletionTimeout, "completion timeout")
	flag.BoolVar(&strict, "strict", false, "require every plan section")
	flag.BoolVar(&verbose, "v", false, "debug logging")
	flag.Parse()

	req, err := finishRequest(req, budget, prefs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	env := "production"
	if verbose {
		env = "development"
	}
	logger, err := infra.NewLogger(env)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	completer, closeFn, err := newCompleter(ctx, provider, logger)
	if err != nil {
		log.Fatalf("Failed to initialize AI provider: %v", err)
	}
	defer closeFn()

	ids, err := tripgen.NewSnowflakeIDs(0)
	if err != nil {
		log.Fatal(err)
	}
	gen := tripgen.NewGenerator(tripgen.Deps{
		Records:    stdoutRecords{},
		Completion: completer,
		IDs:        ids,
	}, tripgen.Options{CompletionTimeout: timeout, StrictPlan: strict}, logger)

	out := gen.Generate(ctx, req, "", tripgen.WithProgress(func(_ tripgen.State, message string) {
		fmt.Fprintln(os.Stderr, message)
	}))
	if !out.Succeeded() {
		fmt.Fprintln(os.Stderr, tripgen.UserMessage(out.Err))
		logger.Debug("generation failed", zap.Error(out.Err))
		os.Exit(1)
	}
}

// finishRequest normalises the budget flag to its canonical tier and validates
// the request before any provider is built.
func finishRequest(req tripgen.TripRequest, budget string, prefs []string) (tripgen.TripRequest, error) {
	tier, err := tripgen.ParseBudgetTier(budget)
	if err != nil {
		return req, err
	}
	req.Budget = tier
	req.Preferences = prefs
	return req, req.Validate()
}

func newCompleter(ctx context.Context, provider string, logger *zap.Logger) (ai.Completer, func(), error) {
	switch strings.ToLower(provider) {
	case "openai":
		p, err := ai.NewOpenAIProvider(ai.OpenAIConfig{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			Model:   os.Getenv("OPENAI_MODEL"),
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return p, func() {}, nil
	case "gemini":
		p, err := ai.NewGeminiProvider(ctx, os.Getenv("GEMINI_API_KEY"), os.Getenv("GEMINI_MODEL"), logger)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown provider %q", provider)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
