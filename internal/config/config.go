// Package config parses the daemon's CLI surface: out of scope
// for the replication core's semantics, carried here the way the
// teacher's own main.go carries flat process configuration.
package config

import (
	"flag"
	"fmt"
	"time"
)

// Config is the parsed CLI configuration.
type Config struct {
	Port           int
	FilePrefix     string
	RedisAddr      string
	AckTimeout     time.Duration
	PollTick       time.Duration
	HighFreqWindow time.Duration
}

// Parse parses args (typically os.Args[1:]) into a Config, applying
// documented defaults.
func Parse(args []string) (Config, error) {
	fs := flag.NewFlagSet("machined", flag.ContinueOnError)

	cfg := Config{}
	fs.IntVar(&cfg.Port, "port", 8909, "HTTP listen port")
	fs.StringVar(&cfg.FilePrefix, "filePrefix", "", "prefix for the follow-file name, enabling multi-instance tests")
	fs.StringVar(&cfg.RedisAddr, "redisAddr", "127.0.0.1:6379", "address of the Redis instance backing storage and pub/sub")
	fs.DurationVar(&cfg.AckTimeout, "ackTimeout", 4*time.Second, "T_ack: how long a reader's send waits for a matching NewInputs")
	fs.DurationVar(&cfg.PollTick, "pollTick", time.Second, "T_tick: the Poller's tick interval")
	fs.DurationVar(&cfg.HighFreqWindow, "highFreqWindow", 10*time.Second, "initial HighFreq polling budget after subscribe/refresh")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("config: invalid port %d", cfg.Port)
	}
	return cfg, nil
}

// FollowFileName returns the follow-file's basename for this config,
// honouring FilePrefix.
func (c Config) FollowFileName() string {
	if c.FilePrefix == "" {
		return "machined-follow.json"
	}
	return c.FilePrefix + "-machined-follow.json"
}
