package service

import (
	"context"
	"log/slog"

	"github.com/listenupapp/readup/internal/corpus"
	"github.com/listenupapp/readup/internal/domain"
	domainerrors "github.com/listenupapp/readup/internal/errors"
	"github.com/listenupapp/readup/internal/id"
	"github.com/listenupapp/readup/internal/sse"
	"github.com/listenupapp/readup/internal/store/sqlite"
	"github.com/listenupapp/readup/internal/validation"
)

// ReactionRequest leaves or removes an emoji on a content block. Emoji may be
// a palette glyph or its name.
type ReactionRequest struct {
	SegmentID string `json:"segment_id" validate:"required,ident"`
	BlockID   string `json:"block_id" validate:"required,max=128"`
	Emoji     string `json:"emoji" validate:"required,max=32"`
}

// ReactionService manages emoji reactions.
type ReactionService struct {
	ledger       *sqlite.Store
	corpus       *corpus.Holder
	achievements *AchievementService
	events       EventEmitter
	validator    *validation.Validator
	logger       *slog.Logger
}

// NewReactionService creates a new reaction service.
func NewReactionService(ledger *sqlite.Store, holder *corpus.Holder, achievements *AchievementService, events EventEmitter, logger *slog.Logger) *ReactionService {
	return &ReactionService{
		ledger:       ledger,
		corpus:       holder,
		achievements: achievements,
		events:       emitterOrNoop(events),
		validator:    validation.New(),
		logger:       logger,
	}
}

func (s *ReactionService) resolve(req ReactionRequest) (domain.Reaction, error) {
	if err := s.validator.Validate(req); err != nil {
		return domain.Reaction{}, err
	}
	if !s.corpus.Current().HasSegment(req.SegmentID) {
		return domain.Reaction{}, domainerrors.NotFoundf("segment %q not found", req.SegmentID)
	}
	name, ok := domain.EmojiName(req.Emoji)
	if !ok {
		return domain.Reaction{}, domainerrors.Validationf("emoji %q is not in the palette", req.Emoji)
	}
	var glyph string
	for _, k := range domain.EmojiKinds {
		if k.Name == name {
			glyph = domain.NormalizeEmoji(k.Glyph)
		}
	}
	return domain.Reaction{
		SegmentID: req.SegmentID,
		BlockID:   req.BlockID,
		Emoji:     glyph,
		Name:      name,
	}, nil
}

// AddReaction stores a reaction. Adding the same emoji to a block twice keeps
// the first one and reports created=false.
func (s *ReactionService) AddReaction(ctx context.Context, req ReactionRequest) (domain.Reaction, bool, error) {
	r, err := s.resolve(req)
	if err != nil {
		return domain.Reaction{}, false, err
	}
	if r.ID, err = id.Generate(id.PrefixReaction); err != nil {
		return domain.Reaction{}, false, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate reaction id")
	}
	r.CreatedAt = s.ledger.Now()

	ctx = context.WithoutCancel(ctx)
	created, err := s.ledger.SetReaction(ctx, r)
	if err != nil {
		return domain.Reaction{}, false, err
	}
	if created {
		s.events.Emit(sse.NewReactionChangedEvent(r, false))
		s.achievements.syncQuietly(ctx)
	}
	return r, created, nil
}

// RemoveReaction deletes a reaction. Removing an absent reaction is not an
// error and reports removed=false.
func (s *ReactionService) RemoveReaction(ctx context.Context, req ReactionRequest) (bool, error) {
	r, err := s.resolve(req)
	if err != nil {
		return false, err
	}

	ctx = context.WithoutCancel(ctx)
	removed, err := s.ledger.RemoveReaction(ctx, r.BlockID, r.Emoji)
	if err != nil {
		return false, err
	}
	if removed {
		s.events.Emit(sse.NewReactionChangedEvent(r, true))
		s.achievements.syncQuietly(ctx)
	}
	return removed, nil
}

// ListReactions returns the reactions left on a segment.
func (s *ReactionService) ListReactions(ctx context.Context, segmentID string) ([]domain.Reaction, error) {
	return s.ledger.ListReactions(ctx, segmentID)
}
