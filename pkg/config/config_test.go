package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		MongoURI:          DefaultMongoURI,
		MongoDatabaseName: DefaultMongoDatabaseName,
		MongoConnTimeout:  DefaultMongoConnTimeout,
		StoreBackend:      StoreBackendMongo,
		Port:              DefaultPort,
		RateLimitRequests: DefaultRateLimitRequests,
		RateLimitWindow:   DefaultRateLimitWindow,
		RequestTimeout:    DefaultRequestTimeout,
		IdempotencyTTL:    DefaultIdempotencyTTL,
		MaxRequestSize:    DefaultMaxRequestSize,
		ReadTimeout:       DefaultReadTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
		ShutdownTimeout:   DefaultShutdownTimeout,
		LoadingTimeout:    DefaultLoadingTimeout,
		JoinConcurrency:   DefaultJoinConcurrency,
		DateParseMode:     DefaultDateParseMode,
		ReconcileSchedule: DefaultReconcileSchedule,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Port = "99999" },
			wantErr: "Port must be between",
		},
		{
			name:    "bad mongo scheme",
			mutate:  func(c *Config) { c.MongoURI = "postgres://localhost" },
			wantErr: "MongoURI must start with",
		},
		{
			name: "memory backend ignores mongo settings",
			mutate: func(c *Config) {
				c.StoreBackend = StoreBackendMemory
				c.MongoURI = ""
			},
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.StoreBackend = "redis" },
			wantErr: "StoreBackend must be one of",
		},
		{
			name:    "unknown date mode",
			mutate:  func(c *Config) { c.DateParseMode = "guess" },
			wantErr: "DateParseMode must be",
		},
		{
			name:    "non positive loading timeout",
			mutate:  func(c *Config) { c.LoadingTimeout = 0 },
			wantErr: "LoadingTimeout must be positive",
		},
		{
			name:    "non positive join concurrency",
			mutate:  func(c *Config) { c.JoinConcurrency = 0 },
			wantErr: "JoinConcurrency must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_NumbersEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "0"
	cfg.ReadTimeout = -time.Second

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "1. ") || !strings.Contains(err.Error(), "2. ") {
		t.Errorf("expected numbered problems, got %q", err.Error())
	}
}

func TestRedactMongoURI(t *testing.T) {
	got := redactMongoURI("mongodb://admin:secret@db:27017")
	if strings.Contains(got, "secret") {
		t.Errorf("credentials leaked: %s", got)
	}
	if got != "mongodb://***:***@db:27017" {
		t.Errorf("unexpected redaction %q", got)
	}
}

func TestGetEnvFallbacks(t *testing.T) {
	t.Setenv("AUTOSNAP_TEST_NUM", "not-a-number")
	t.Setenv("AUTOSNAP_TEST_DUR", "15s")

	if got := getEnvNum("AUTOSNAP_TEST_NUM", 7); got != 7 {
		t.Errorf("expected fallback 7, got %d", got)
	}
	if got := getEnvDuration("AUTOSNAP_TEST_DUR", time.Second); got != 15*time.Second {
		t.Errorf("expected 15s, got %s", got)
	}
	if got := getEnvStr("AUTOSNAP_TEST_MISSING", "x"); got != "x" {
		t.Errorf("expected fallback x, got %s", got)
	}
}

func TestFeatureSwitches(t *testing.T) {
	cfg := validConfig()
	if !cfg.UsesMongo() {
		t.Error("mongo backend expected by default")
	}
	if cfg.StrictDates() {
		t.Error("lenient dates expected by default")
	}
	if cfg.TwilioEnabled() {
		t.Error("twilio must be disabled without credentials")
	}

	cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber = "AC1", "tok", "+15005550006"
	if !cfg.TwilioEnabled() {
		t.Error("twilio should be enabled with full credentials")
	}
}
