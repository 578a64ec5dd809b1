// Package service holds the application operations the API exposes: the
// completion façade, aggregate queries, achievements, reactions and reading
// sessions.
package service

import (
	"github.com/listenupapp/readup/internal/domain"
	domainerrors "github.com/listenupapp/readup/internal/errors"
)

// EventEmitter broadcasts changes to connected clients.
type EventEmitter interface {
	Emit(event any)
}

type noopEmitter struct{}

func (noopEmitter) Emit(any) {}

func emitterOrNoop(e EventEmitter) EventEmitter {
	if e == nil {
		return noopEmitter{}
	}
	return e
}

// parseContext turns the wire form of a completion context into a value. An
// empty kind means main.
func parseContext(kind, refID string) (domain.CompletionContext, error) {
	cc, err := domain.ParseCompletionContext(kind, refID)
	if err != nil {
		return domain.CompletionContext{}, domainerrors.Wrap(err, domainerrors.CodeValidation, "invalid completion context")
	}
	return cc, nil
}
