package logger

import (
	"log"
	"os"
)

// New returns the stdout logger injected throughout the service.
func New() *log.Logger {
	return log.New(os.Stdout, "", log.LstdFlags)
}
