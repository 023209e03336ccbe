package main

import (
	"testing"
	"time"

	"github.com/kailas-cloud/agentmart/internal/session"
)

func TestParseFlags_Defaults(t *testing.T) {
	t.Setenv("AGENTMART_URL", "")
	t.Setenv("AGENTMART_API_KEY", "from-env")

	o, err := parseFlags(nil)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if o.url != "http://localhost:8080" || o.apiKey != "from-env" {
		t.Errorf("url=%q apiKey=%q", o.url, o.apiKey)
	}
	if o.debounce != session.DefaultDebounce || o.minQueryLength != session.DefaultMinQueryLength {
		t.Errorf("debounce=%v minQueryLength=%d", o.debounce, o.minQueryLength)
	}
}

func TestParseFlags_Overrides(t *testing.T) {
	o, err := parseFlags([]string{
		"-u", "https://api.example.com", "--debounce", "150ms", "--min-query-length", "3",
		"-n", "5", "-s", "newest", "--timeout", "2s",
	})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if o.url != "https://api.example.com" || o.debounce != 150*time.Millisecond ||
		o.minQueryLength != 3 || o.limit != 5 || o.sort != "newest" || o.timeout != 2*time.Second {
		t.Errorf("unexpected options %+v", o)
	}
}

func TestParseFlags_Unknown(t *testing.T) {
	if _, err := parseFlags([]string{"--colour"}); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

func TestClientLogger(t *testing.T) {
	if clientLogger("debug") == nil {
		t.Error("expected a logger for a valid level")
	}
	if clientLogger("loud") != nil {
		t.Error("expected nil for an invalid level")
	}
}
