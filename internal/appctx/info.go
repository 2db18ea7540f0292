package appctx

import (
	"os"
	"strings"
)

// Info captures process identity the way the original's Info struct does,
// used both for log context and for the shutdown-targeting check in
// env.shutdown messages (spec.md §4.9): a shutdown command only applies to
// this process if its own name appears in the message's services list.
type Info struct {
	App      string
	User     string
	Hostname string
	WorkDir  string
}

// NewInfo gathers process identity for appName. Hostname is truncated at
// its first '.' to match the short hostname the original reports.
func NewInfo(appName string) (*Info, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, err
	}
	if i := strings.IndexByte(hostname, '.'); i >= 0 {
		hostname = hostname[:i]
	}

	workDir, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	return &Info{
		App:      appName,
		User:     os.Getenv("USER"),
		Hostname: hostname,
		WorkDir:  workDir,
	}, nil
}

// MyName returns the identifier this process checks against a
// env.shutdown message's target services list.
func (i *Info) MyName() string {
	return i.App
}
