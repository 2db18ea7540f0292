package appctx

import (
	"testing"
	"time"
)

func TestParseOptionsFromFlags(t *testing.T) {
	opts, err := ParseOptions([]string{
		"--redis", "redis://localhost:6379",
		"--channel", "env",
		"--workers", "4",
		"--idle", "5s",
		"--grace", "1s",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if opts.RedisURL != "redis://localhost:6379" {
		t.Errorf("unexpected RedisURL: %s", opts.RedisURL)
	}
	if opts.Channel != "env" {
		t.Errorf("unexpected Channel: %s", opts.Channel)
	}
	if opts.Workers == nil || *opts.Workers != 4 {
		t.Errorf("unexpected Workers: %v", opts.Workers)
	}
	if opts.IdleTimeout == nil || *opts.IdleTimeout != 5*time.Second {
		t.Errorf("unexpected IdleTimeout: %v", opts.IdleTimeout)
	}
	if opts.GraceTimeout == nil || *opts.GraceTimeout != time.Second {
		t.Errorf("unexpected GraceTimeout: %v", opts.GraceTimeout)
	}
}

func TestParseOptionsOptionalFieldsStayNil(t *testing.T) {
	opts, err := ParseOptions([]string{"--redis", "redis://localhost:6379", "--channel", "env"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if opts.Workers != nil {
		t.Errorf("expected Workers to stay nil when absent, got %v", *opts.Workers)
	}
	if opts.IdleTimeout != nil {
		t.Errorf("expected IdleTimeout to stay nil when absent, got %v", *opts.IdleTimeout)
	}
	if opts.GraceTimeout != nil {
		t.Errorf("expected GraceTimeout to stay nil when absent, got %v", *opts.GraceTimeout)
	}
}

func TestParseOptionsMissingRedisFails(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	t.Setenv("BROADCAST_CHANNEL", "env")

	_, err := ParseOptions([]string{"--channel", "env"})
	if err == nil {
		t.Fatal("expected error when redis url is unset")
	}
}

func TestParseOptionsEnvFallback(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://env-host:6379")
	t.Setenv("BROADCAST_CHANNEL", "env-channel")

	opts, err := ParseOptions(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if opts.RedisURL != "redis://env-host:6379" {
		t.Errorf("expected RedisURL from env, got %s", opts.RedisURL)
	}
	if opts.Channel != "env-channel" {
		t.Errorf("expected Channel from env, got %s", opts.Channel)
	}
}
