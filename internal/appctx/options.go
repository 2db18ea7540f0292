// Package appctx holds the glue every service task shares: parsed
// options, process identity, the cancellation token, and the broadcast
// bus, mirroring the original's ctx module (Options, Info, State).
package appctx

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
)

// Options is the service's configuration, populated from CLI flags with
// an environment-variable fallback, per spec.md §6. Workers, IdleTimeout,
// and GraceTimeout are optional the way the original's clap definitions
// are Option<T>: a nil pointer means "unset", and each consumer applies
// its own default at the point of use rather than baking one in here.
type Options struct {
	RedisURL     string
	Channel      string
	Workers      *int
	IdleTimeout  *time.Duration
	GraceTimeout *time.Duration
	Home         string
}

// ParseOptions parses args (typically os.Args[1:]) into Options, falling
// back to REDIS_URL, BROADCAST_CHANNEL, and SERVANT_HOME when the
// matching flag is absent. It fails if RedisURL or Channel end up unset.
func ParseOptions(args []string) (*Options, error) {
	fs := pflag.NewFlagSet("subscriber", pflag.ContinueOnError)

	redisURL := fs.String("redis", "", "redis pub/sub endpoint url")
	channel := fs.StringP("channel", "c", "", "redis channel to subscribe to")
	workers := fs.IntP("workers", "w", 0, "max concurrent job workers (absent = unbounded)")
	idle := fs.DurationP("idle", "t", 0, "idle timeout duration for a unit of work (default 5s)")
	grace := fs.DurationP("grace", "g", 0, "grace period on shutdown (default 1s where used as a timeout)")
	home := fs.String("home", "", "application home directory")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if *redisURL == "" {
		*redisURL = os.Getenv("REDIS_URL")
	}
	if *channel == "" {
		*channel = os.Getenv("BROADCAST_CHANNEL")
	}
	if *home == "" {
		*home = os.Getenv("SERVANT_HOME")
	}

	if *redisURL == "" {
		return nil, fmt.Errorf("missing required option: --redis (or REDIS_URL)")
	}
	if *channel == "" {
		return nil, fmt.Errorf("missing required option: --channel (or BROADCAST_CHANNEL)")
	}

	opts := &Options{
		RedisURL: *redisURL,
		Channel:  *channel,
		Home:     *home,
	}

	if fs.Changed("workers") {
		w := *workers
		opts.Workers = &w
	}
	if fs.Changed("idle") {
		d := *idle
		opts.IdleTimeout = &d
	}
	if fs.Changed("grace") {
		d := *grace
		opts.GraceTimeout = &d
	}

	return opts, nil
}
