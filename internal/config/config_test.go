package config

import (
	"strings"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"WANDER_ENV", "WANDER_NODE_ID", "WANDER_HTTP_ADDR", "WANDER_STORE", "WANDER_DB_DSN",
		"WANDER_REDIS_ADDR", "WANDER_FIREBASE_PROJECT_ID", "WANDER_FIREBASE_CREDENTIALS",
		"WANDER_AI_PROVIDER", "GEMINI_API_KEY", "GEMINI_MODEL", "OPENAI_API_KEY", "OPENAI_MODEL",
		"OPENAI_BASE_URL", "GOOGLE_MAPS_API_KEY", "WANDER_COMPLETION_TIMEOUT", "WANDER_STRICT_PLAN",
		"WANDER_PROMPT_FILE", "WANDER_MONTHLY_QUOTA", "WANDER_TRACE_STDOUT",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("WANDER_FIREBASE_PROJECT_ID", "wander-test")
	t.Setenv("GEMINI_API_KEY", "key")
}

func TestFromEnvDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := fromEnv()
	if err != nil {
		t.Fatalf("fromEnv: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("addr = %q", cfg.HTTP.Addr)
	}
	if cfg.Store != StoreFirestore || cfg.AI.Provider != ProviderGemini {
		t.Errorf("store/provider = %q/%q", cfg.Store, cfg.AI.Provider)
	}
	if cfg.Generation.CompletionTimeout != 60*time.Second {
		t.Errorf("timeout = %v", cfg.Generation.CompletionTimeout)
	}
	if cfg.Generation.MonthlyQuota != 30 || cfg.Generation.StrictPlan {
		t.Errorf("generation = %+v", cfg.Generation)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("WANDER_STORE", "Postgres")
	t.Setenv("WANDER_AI_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("WANDER_COMPLETION_TIMEOUT", "90")
	t.Setenv("WANDER_STRICT_PLAN", "true")
	t.Setenv("WANDER_MONTHLY_QUOTA", "0")
	t.Setenv("WANDER_NODE_ID", "7")

	cfg, err := fromEnv()
	if err != nil {
		t.Fatalf("fromEnv: %v", err)
	}
	if cfg.Store != StorePostgres || cfg.AI.Provider != ProviderOpenAI {
		t.Errorf("store/provider = %q/%q", cfg.Store, cfg.AI.Provider)
	}
	if cfg.Generation.CompletionTimeout != 90*time.Second {
		t.Errorf("timeout = %v", cfg.Generation.CompletionTimeout)
	}
	if !cfg.Generation.StrictPlan || cfg.Generation.MonthlyQuota != 0 || cfg.NodeID != 7 {
		t.Errorf("unexpected cfg %+v", cfg)
	}
}

func TestFromEnvErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing gemini key", map[string]string{"GEMINI_API_KEY": ""}, "GEMINI_API_KEY"},
		{"missing openai key", map[string]string{"WANDER_AI_PROVIDER": "openai"}, "OPENAI_API_KEY"},
		{"unknown provider", map[string]string{"WANDER_AI_PROVIDER": "llama"}, "WANDER_AI_PROVIDER"},
		{"unknown store", map[string]string{"WANDER_STORE": "sqlite"}, "WANDER_STORE"},
		{"firestore without project", map[string]string{"WANDER_FIREBASE_PROJECT_ID": ""}, "WANDER_FIREBASE_PROJECT_ID"},
		{"node id out of range", map[string]string{"WANDER_NODE_ID": "4096"}, "WANDER_NODE_ID"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := fromEnv()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %s, got %v", tc.want, err)
			}
		})
	}
}
