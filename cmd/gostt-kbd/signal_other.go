//go:build !unix

package main

import "os"

func resetSignals() []os.Signal {
	return nil
}
