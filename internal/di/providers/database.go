package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/listenupapp/readup/internal/config"
	"github.com/listenupapp/readup/internal/logger"
	"github.com/listenupapp/readup/internal/sse"
	"github.com/listenupapp/readup/internal/store"
	"github.com/listenupapp/readup/internal/store/sqlite"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Component("sse"))

	ctx, cancel := context.WithCancel(context.Background())
	manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// LedgerHandle wraps the sqlite ledger with shutdown capability.
type LedgerHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *LedgerHandle) Shutdown() error {
	return h.Close()
}

// ProvideLedger opens the sqlite completion ledger.
func ProvideLedger(i do.Injector) (*LedgerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	loc, err := cfg.Reader.Location()
	if err != nil {
		return nil, err
	}

	db, err := sqlite.Open(cfg.Data.LedgerPath(), log.Component("ledger"), sqlite.WithLocation(loc))
	if err != nil {
		return nil, err
	}

	log.Info("Ledger opened", "path", cfg.Data.LedgerPath(), "timezone", loc.String())
	return &LedgerHandle{Store: db}, nil
}

// StateStoreHandle wraps the badger session state store with shutdown capability.
type StateStoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StateStoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStateStore opens the badger session state store and makes sure the
// install record exists.
func ProvideStateStore(i do.Injector) (*StateStoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	kv, err := store.New(cfg.Data.StatePath(), log.Component("state-store"))
	if err != nil {
		return nil, err
	}

	inst, err := kv.EnsureInstall(context.Background(), time.Now())
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	log.Info("Session state store opened",
		"path", cfg.Data.StatePath(),
		"install_id", inst.ID,
		"installed_at", inst.CreatedAt,
	)
	return &StateStoreHandle{Store: kv}, nil
}
