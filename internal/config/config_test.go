package config

import (
	"strings"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "DB_DRIVER", "DB_DSN", "SESSION_BACKEND", "SESSION_TTL",
		"COMPLETED_RETENTION", "ABANDONED_TTL", "REDIS_DB", "RABBITMQ_URI", "LOG_MODE",
		"DEFAULT_MAX_QUESTIONS", "CORS_ORIGINS"} {
		t.Setenv(k, "")
	}

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.DB.Driver != "sqlite" || cfg.Sessions.Backend != "sql" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Sessions.CompletedRetention != 168*time.Hour {
		t.Errorf("CompletedRetention = %v", cfg.Sessions.CompletedRetention)
	}
	if cfg.Sessions.AbandonedTTL != 0 {
		t.Errorf("AbandonedTTL = %v, want disabled", cfg.Sessions.AbandonedTTL)
	}
	if cfg.MaxQuestions != 10 || cfg.RabbitMQ.Exchange != "quiz.events" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "postgres://db/quiz")
	t.Setenv("SESSION_BACKEND", "redis")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("ABANDONED_TTL", "30m")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("LOG_MODE", "prod")
	t.Setenv("DEFAULT_MAX_QUESTIONS", "15")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.DB.Driver != "postgres" || cfg.DB.DSN != "postgres://db/quiz" {
		t.Errorf("DB = %+v", cfg.DB)
	}
	if cfg.Sessions.Backend != "redis" || cfg.Sessions.TTL != 2*time.Hour || cfg.Sessions.AbandonedTTL != 30*time.Minute {
		t.Errorf("Sessions = %+v", cfg.Sessions)
	}
	if cfg.Redis.DB != 3 || cfg.LogMode != "prod" || cfg.MaxQuestions != 15 {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		key, val, want string
	}{
		{"SESSION_TTL", "soon", "SESSION_TTL"},
		{"REDIS_DB", "x", "REDIS_DB"},
		{"DB_DRIVER", "oracle", "DB_DRIVER"},
		{"SESSION_BACKEND", "memcached", "SESSION_BACKEND"},
		{"LOG_MODE", "verbose", "LOG_MODE"},
		{"DEFAULT_MAX_QUESTIONS", "0", "DEFAULT_MAX_QUESTIONS"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := FromEnv()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not name %s", err, tt.want)
			}
		})
	}
}
