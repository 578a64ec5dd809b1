package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
	shutdownTimeout = 30 * time.Second

	// staleSessionSweep is how often open reading sessions are checked for staleness.
	staleSessionSweep = time.Hour
)
