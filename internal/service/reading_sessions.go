package service

import (
	"context"
	"log/slog"

	"github.com/listenupapp/readup/internal/corpus"
	"github.com/listenupapp/readup/internal/domain"
	domainerrors "github.com/listenupapp/readup/internal/errors"
	"github.com/listenupapp/readup/internal/id"
	"github.com/listenupapp/readup/internal/store/sqlite"
	"github.com/listenupapp/readup/internal/validation"
)

// StartSessionRequest opens a reading session on a segment.
type StartSessionRequest struct {
	SegmentID string `json:"segment_id" validate:"required,ident"`
	Context   string `json:"context" validate:"omitempty,oneof=main plan challenge"`
	RefID     string `json:"ref_id" validate:"omitempty,ident"`
}

// ReadingSessionService tracks time spent reading. Ending a session may unlock
// reading-time achievements.
type ReadingSessionService struct {
	ledger       *sqlite.Store
	corpus       *corpus.Holder
	achievements *AchievementService
	validator    *validation.Validator
	logger       *slog.Logger
}

// NewReadingSessionService creates a new reading session service.
func NewReadingSessionService(ledger *sqlite.Store, holder *corpus.Holder, achievements *AchievementService, logger *slog.Logger) *ReadingSessionService {
	return &ReadingSessionService{
		ledger:       ledger,
		corpus:       holder,
		achievements: achievements,
		validator:    validation.New(),
		logger:       logger,
	}
}

// Start opens a session.
func (s *ReadingSessionService) Start(ctx context.Context, req StartSessionRequest) (*domain.ReadingSession, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	cc, err := parseContext(req.Context, req.RefID)
	if err != nil {
		return nil, err
	}
	if !s.corpus.Current().HasSegment(req.SegmentID) {
		return nil, domainerrors.NotFoundf("segment %q not found", req.SegmentID)
	}

	sessionID, err := id.Generate(id.PrefixSession)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate session id")
	}
	rs := domain.NewReadingSession(sessionID, req.SegmentID, cc, s.ledger.Now())
	if err := s.ledger.StartReadingSession(context.WithoutCancel(ctx), rs); err != nil {
		return nil, err
	}

	s.logger.Debug("reading session started", "session_id", rs.ID, "segment_id", rs.SegmentID)
	return rs, nil
}

// End closes a session. A session left open past the stale threshold is
// closed with zero duration.
func (s *ReadingSessionService) End(ctx context.Context, sessionID string) (*domain.ReadingSession, error) {
	ctx = context.WithoutCancel(ctx)
	rs, err := s.ledger.EndReadingSession(ctx, sessionID, s.ledger.Now())
	if err != nil {
		return nil, err
	}
	if rs.DurationMs > 0 {
		s.achievements.syncQuietly(ctx)
	}
	return rs, nil
}

// Get returns a session by id.
func (s *ReadingSessionService) Get(ctx context.Context, sessionID string) (*domain.ReadingSession, error) {
	return s.ledger.GetReadingSession(ctx, sessionID)
}

// CloseStale closes sessions left open past the stale threshold with zero
// duration.
func (s *ReadingSessionService) CloseStale(ctx context.Context) (int, error) {
	return s.ledger.CloseStaleSessions(ctx, s.ledger.Now().Add(-domain.SessionStaleThreshold))
}
