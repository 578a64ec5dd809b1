package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/listenupapp/readup/internal/domain"
)

// SessionState is everything the session-state database holds, loaded in one
// read transaction.
type SessionState struct {
	Plans        map[string]*domain.Progress
	ActivePlanID string
	Challenges   map[string]*domain.Progress
	Main         map[string]domain.MainMark
	LastRead     *domain.LastRead
}

// Install identifies this data directory.
type Install struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// LoadSessionState reads every session-state record.
func (s *Store) LoadSessionState(ctx context.Context) (*SessionState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	state := &SessionState{
		Plans:      make(map[string]*domain.Progress),
		Challenges: make(map[string]*domain.Progress),
		Main:       make(map[string]domain.MainMark),
	}

	err := s.db.View(func(txn *badger.Txn) error {
		if err := scanPrefix(txn, prefixPlan, func(_ string, val []byte) error {
			var p domain.Progress
			if err := json.Unmarshal(val, &p); err != nil {
				return err
			}
			state.Plans[p.ID] = &p
			return nil
		}); err != nil {
			return fmt.Errorf("load plans: %w", err)
		}

		var active string
		if err := getTxn(txn, []byte(keyActivePlan), &active); err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("load active plan: %w", err)
		}
		state.ActivePlanID = active

		var challenges map[string]*domain.Progress
		if err := getTxn(txn, []byte(keyChallenges), &challenges); err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("load challenges: %w", err)
		}
		for id, p := range challenges {
			if p != nil {
				state.Challenges[id] = p
			}
		}

		if err := scanPrefix(txn, prefixMainMark, func(segmentID string, val []byte) error {
			var m domain.MainMark
			if err := json.Unmarshal(val, &m); err != nil {
				return err
			}
			state.Main[segmentID] = m
			return nil
		}); err != nil {
			return fmt.Errorf("load main mirror: %w", err)
		}

		var last domain.LastRead
		err := getTxn(txn, []byte(keyLastRead), &last)
		switch {
		case err == nil:
			state.LastRead = &last
		case !errors.Is(err, ErrNotFound):
			return fmt.Errorf("load last read: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// SavePlans writes the given plan records and the active pointer in one
// transaction. An empty activeID clears the pointer.
func (s *Store) SavePlans(ctx context.Context, plans []*domain.Progress, activeID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, p := range plans {
			if err := s.Plans.putTxn(txn, p.ID, p); err != nil {
				return fmt.Errorf("save plan %s: %w", p.ID, err)
			}
		}
		if activeID == "" {
			return txn.Delete([]byte(keyActivePlan))
		}
		return setTxn(txn, []byte(keyActivePlan), activeID)
	})
}

// SaveChallenges overwrites the aggregate challenge record.
func (s *Store) SaveChallenges(ctx context.Context, challenges map[string]*domain.Progress) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.set([]byte(keyChallenges), challenges)
}

// PutMainMark writes one main-completion mirror entry.
func (s *Store) PutMainMark(ctx context.Context, mark domain.MainMark) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.set(mainKey(mark.SegmentID), mark)
}

// GetMainMark reads one mirror entry. Returns ErrNotFound when absent.
func (s *Store) GetMainMark(ctx context.Context, segmentID string) (domain.MainMark, error) {
	var m domain.MainMark
	if err := ctx.Err(); err != nil {
		return m, err
	}
	err := s.get(mainKey(segmentID), &m)
	return m, err
}

// ReplaceMainMirror makes the mirror equal to marks in one transaction.
func (s *Store) ReplaceMainMirror(ctx context.Context, marks map[string]domain.MainMark) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		var stale [][]byte
		if err := scanPrefix(txn, prefixMainMark, func(segmentID string, _ []byte) error {
			if _, keep := marks[segmentID]; !keep {
				stale = append(stale, mainKey(segmentID))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, k := range stale {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		for segmentID, m := range marks {
			m.SegmentID = segmentID
			if err := setTxn(txn, mainKey(segmentID), m); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetLastRead records the last visited segment.
func (s *Store) SetLastRead(ctx context.Context, last domain.LastRead) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.set([]byte(keyLastRead), last)
}

// ClearLastRead removes the last-read record.
func (s *Store) ClearLastRead(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.delete([]byte(keyLastRead))
}

// EnsureInstall returns the install record, creating it on first use.
func (s *Store) EnsureInstall(ctx context.Context, now time.Time) (Install, error) {
	var inst Install
	if err := ctx.Err(); err != nil {
		return inst, err
	}

	ok, err := s.exists([]byte(keyInstall))
	if err != nil {
		return inst, err
	}
	if ok {
		err = s.get([]byte(keyInstall), &inst)
		return inst, err
	}

	inst = Install{ID: uuid.NewString(), CreatedAt: now.UTC()}
	if err := s.set([]byte(keyInstall), inst); err != nil {
		return Install{}, err
	}
	if s.logger != nil {
		s.logger.Info("created install record", "install_id", inst.ID)
	}
	return inst, nil
}

// scanPrefix calls fn for every key under prefix with the key suffix and value.
func scanPrefix(txn *badger.Txn, prefix string, fn func(suffix string, val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)

	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		suffix := string(item.Key()[len(prefix):])
		if err := item.Value(func(val []byte) error {
			return fn(suffix, val)
		}); err != nil {
			return err
		}
	}
	return nil
}
