//go:build unix

package main

import (
	"os"
	"syscall"
)

func resetSignals() []os.Signal {
	return []os.Signal{syscall.SIGUSR1}
}
