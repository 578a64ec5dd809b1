package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/readup/internal/domain"
	"github.com/listenupapp/readup/internal/service"
)

func (s *Server) registerSessionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "startReadingSession",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions",
		Summary:     "Start reading session",
		Description: "Opens a timed reading session on a segment",
		Tags:        []string{"Sessions"},
	}, s.handleStartSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "endReadingSession",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/end",
		Summary:     "End reading session",
		Description: "Closes a session and records its duration",
		Tags:        []string{"Sessions"},
	}, s.handleEndSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "getReadingSession",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions/{id}",
		Summary:     "Get reading session",
		Tags:        []string{"Sessions"},
	}, s.handleGetSession)
}

// === DTOs ===

// StartSessionBody is the request body for opening a session.
type StartSessionBody struct {
	SegmentID string `json:"segment_id" doc:"Segment ID" minLength:"1"`
	Context   string `json:"context,omitempty" enum:"main,plan,challenge" doc:"Completion context (default main)"`
	RefID     string `json:"ref_id,omitempty" doc:"Plan or challenge ID"`
}

// StartSessionInput wraps the start request for Huma.
type StartSessionInput struct {
	Body StartSessionBody
}

// SessionIDInput identifies a reading session.
type SessionIDInput struct {
	ID string `path:"id" doc:"Session ID"`
}

// SessionOutput wraps a reading session for Huma.
type SessionOutput struct {
	Body *domain.ReadingSession
}

// === Handlers ===

func (s *Server) handleStartSession(ctx context.Context, input *StartSessionInput) (*SessionOutput, error) {
	rs, err := s.services.ReadingSession.Start(ctx, service.StartSessionRequest{
		SegmentID: input.Body.SegmentID,
		Context:   input.Body.Context,
		RefID:     input.Body.RefID,
	})
	if err != nil {
		return nil, err
	}
	return &SessionOutput{Body: rs}, nil
}

func (s *Server) handleEndSession(ctx context.Context, input *SessionIDInput) (*SessionOutput, error) {
	rs, err := s.services.ReadingSession.End(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &SessionOutput{Body: rs}, nil
}

func (s *Server) handleGetSession(ctx context.Context, input *SessionIDInput) (*SessionOutput, error) {
	rs, err := s.services.ReadingSession.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &SessionOutput{Body: rs}, nil
}
