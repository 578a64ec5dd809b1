// Package main provides the entry point for the ReadUp progress engine.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/listenupapp/readup/internal/di"
	"github.com/listenupapp/readup/internal/di/providers"
	"github.com/listenupapp/readup/internal/logger"
)

func main() {
	injector := di.NewContainer()

	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		// Release whatever was opened before the failure.
		_ = injector.Shutdown()
		os.Exit(1)
	}

	log := do.MustInvoke[*logger.Logger](injector)
	if boot, err := do.Invoke[*providers.BootReconciliation](injector); err == nil {
		log.Info("Ready",
			"main_corrections", boot.Report.MainCorrections,
			"plan_corrections", boot.Report.PlanCorrections,
			"challenge_corrections", boot.Report.ChallengeCorrections,
		)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gracefully...")

	// The container shuts services down in reverse dependency order: the HTTP
	// server and workers first, then the SSE manager, then both stores.
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}

	log.Info("Goodbye")
}
