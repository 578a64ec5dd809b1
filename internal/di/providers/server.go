package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/listenupapp/readup/internal/api"
	"github.com/listenupapp/readup/internal/config"
	"github.com/listenupapp/readup/internal/logger"
	"github.com/listenupapp/readup/internal/service"
	"github.com/listenupapp/readup/internal/state"
)

// Version is reported in the OpenAPI document. Overridden at build time.
var Version = "dev"

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	ledger := do.MustInvoke[*LedgerHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	st := do.MustInvoke[*state.Manager](i)
	log := do.MustInvoke[*logger.Logger](i)

	// Requests are served only after boot reconciliation.
	_ = do.MustInvoke[*BootReconciliation](i)

	services := &api.Services{
		Progress:       do.MustInvoke[*service.ProgressService](i),
		Stats:          do.MustInvoke[*service.StatsService](i),
		Achievements:   do.MustInvoke[*service.AchievementService](i),
		Reactions:      do.MustInvoke[*service.ReactionService](i),
		ReadingSession: do.MustInvoke[*service.ReadingSessionService](i),
	}

	handler := api.NewServer(services, ledger.Store, st.Loaded, sseHandle.Manager, api.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Version:        Version,
		WriteRPS:       cfg.Server.WriteRPS,
		WriteBurst:     cfg.Server.WriteBurst,
	}, log.Component("api"))

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}
