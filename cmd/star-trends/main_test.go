package main

import (
	"testing"
	"time"

	"github.com/qyzhao/star-trends/internal/config"
)

func TestValidDate(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"2025-12-20", true},
		{"2025-02-29", false},
		{"20-12-2025", false},
		{"", false},
		{"2025-12-20 00:00:00", false},
	}

	for _, tt := range tests {
		if got := validDate(tt.input); got != tt.want {
			t.Errorf("validDate(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestDatedPath(t *testing.T) {
	if got := datedPath("data/raw.json", "2025-12-20"); got != "data/raw_2025-12-20.json" {
		t.Errorf("Unexpected dated path %q", got)
	}
	if got := datedPath("raw", "2025-12-20"); got != "raw_2025-12-20" {
		t.Errorf("Unexpected dated path %q", got)
	}
}

func TestResolveDelay(t *testing.T) {
	cfg := &config.Config{}
	cfg.Classify.DelayMS = 500

	if d := resolveDelay(options{NoDelay: true, Delay: 2}, cfg); d != 0 {
		t.Errorf("Expected no delay, got %v", d)
	}
	if d := resolveDelay(options{Delay: 1.5}, cfg); d != 1500*time.Millisecond {
		t.Errorf("Expected 1.5s, got %v", d)
	}
	if d := resolveDelay(options{Delay: -1}, cfg); d != 500*time.Millisecond {
		t.Errorf("Expected config default 500ms, got %v", d)
	}
	if d := resolveDelay(options{Delay: 0}, cfg); d != 0 {
		t.Errorf("Expected explicit zero delay, got %v", d)
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := &config.Config{}
	cfg.Fetch.Workers = 10
	cfg.Classify.Enhanced = true
	cfg.Oracle.Model = "deepseek-chat"

	opts := options{Model: "custom", Workers: 0}
	applyOverrides(&opts, cfg)

	if cfg.Oracle.Model != "custom" {
		t.Errorf("Expected model override, got %q", cfg.Oracle.Model)
	}
	if opts.Workers != 10 {
		t.Errorf("Expected workers from config, got %d", opts.Workers)
	}
	if !opts.Enhanced {
		t.Error("Expected enhanced mode from config")
	}
}
