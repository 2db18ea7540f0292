//go:build linux || bsd || darwin
// +build linux bsd darwin

package main

import (
	"os"
	"syscall"
)

var shutdownSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
