package config

import (
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Port != 8909 {
		t.Errorf("Port = %d, want 8909", cfg.Port)
	}
	if cfg.RedisAddr != "127.0.0.1:6379" {
		t.Errorf("RedisAddr = %q", cfg.RedisAddr)
	}
	if cfg.AckTimeout != 4*time.Second {
		t.Errorf("AckTimeout = %v, want 4s", cfg.AckTimeout)
	}
	if cfg.PollTick != time.Second {
		t.Errorf("PollTick = %v, want 1s", cfg.PollTick)
	}
	if cfg.HighFreqWindow != 10*time.Second {
		t.Errorf("HighFreqWindow = %v, want 10s", cfg.HighFreqWindow)
	}
}

func TestParseOverrides(t *testing.T) {
	cfg, err := Parse([]string{"--port=9000", "--filePrefix=test", "--ackTimeout=2s"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port)
	}
	if cfg.AckTimeout != 2*time.Second {
		t.Errorf("AckTimeout = %v, want 2s", cfg.AckTimeout)
	}
	if got := cfg.FollowFileName(); got != "test-machined-follow.json" {
		t.Errorf("FollowFileName = %q", got)
	}
}

func TestParseInvalidPort(t *testing.T) {
	if _, err := Parse([]string{"--port=0"}); err == nil {
		t.Fatal("expected an error for port 0")
	}
	if _, err := Parse([]string{"--port=99999"}); err == nil {
		t.Fatal("expected an error for an out-of-range port")
	}
}

func TestFollowFileNameNoPrefix(t *testing.T) {
	cfg := Config{}
	if got := cfg.FollowFileName(); got != "machined-follow.json" {
		t.Errorf("FollowFileName = %q, want machined-follow.json", got)
	}
}
