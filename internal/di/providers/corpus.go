package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/listenupapp/readup/internal/achievement"
	"github.com/listenupapp/readup/internal/config"
	"github.com/listenupapp/readup/internal/corpus"
	"github.com/listenupapp/readup/internal/logger"
)

// ProvideCorpus loads the content index.
func ProvideCorpus(i do.Injector) (*corpus.Holder, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	c, err := corpus.Load(cfg.Corpus.Path)
	if err != nil {
		return nil, err
	}

	log.Info("Corpus loaded",
		"path", cfg.Corpus.Path,
		"segments", c.SegmentCount(),
		"books", len(c.Books()),
		"plans", len(c.Plans()),
		"challenges", len(c.Challenges()),
	)
	return corpus.NewHolder(c), nil
}

// ProvideTestamentRule builds the configured testament classification rule.
func ProvideTestamentRule(i do.Injector) (corpus.TestamentRule, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return corpus.NewTestamentRule(cfg.Reader.TestamentRule, cfg.Reader.TestamentBoundary)
}

// ProvideCatalog loads the achievement catalog, falling back to the built-in one.
func ProvideCatalog(i do.Injector) (*achievement.Catalog, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Achievements.CatalogPath == "" {
		return achievement.Default(), nil
	}
	catalog, err := achievement.Load(cfg.Achievements.CatalogPath)
	if err != nil {
		return nil, err
	}
	log.Info("Achievement catalog loaded", "path", cfg.Achievements.CatalogPath, "entries", catalog.Len())
	return catalog, nil
}

// CorpusWatcherHandle stops the corpus file watcher on shutdown.
type CorpusWatcherHandle struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *CorpusWatcherHandle) Shutdown() error {
	h.cancel()
	return nil
}

// ProvideCorpusWatcher reloads the corpus when its file changes.
func ProvideCorpusWatcher(i do.Injector) (*CorpusWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	holder := do.MustInvoke[*corpus.Holder](i)
	rule := do.MustInvoke[corpus.TestamentRule](i)

	ctx, cancel := context.WithCancel(context.Background())
	if !cfg.Corpus.Watch {
		log.Info("Corpus watching disabled by configuration")
		return &CorpusWatcherHandle{cancel: cancel}, nil
	}

	watchLog := log.Component("corpus")
	go func() {
		err := corpus.Watch(ctx, cfg.Corpus.Path, holder, watchLog, func(c *corpus.Corpus) {
			if rule.Mode != corpus.RuleOrdinal {
				return
			}
			if disagree := c.CheckTestamentBoundary(rule.Boundary); len(disagree) > 0 {
				watchLog.Warn("reloaded corpus disagrees with testament boundary",
					"boundary", rule.Boundary,
					"segments", len(disagree))
			}
		})
		if err != nil {
			watchLog.Error("corpus watcher stopped", "error", err)
		}
	}()

	log.Info("Corpus watcher started", "path", cfg.Corpus.Path)
	return &CorpusWatcherHandle{cancel: cancel}, nil
}
