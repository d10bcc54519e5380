package logging

import (
	"io"
	"log"
	"os"
)

// New returns a logger with a consistent prefix to simplify traceability.
func New(component string) *log.Logger {
	prefix := component
	if prefix != "" {
		prefix = "[" + component + "] "
	}

	return log.New(os.Stdout, prefix, log.LstdFlags|log.Lmicroseconds)
}

// Nop returns a logger that discards everything. Used by tests that
// exercise noisy components.
func Nop() *log.Logger {
	return log.New(io.Discard, "", 0)
}
