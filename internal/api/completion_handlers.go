package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/readup/internal/service"
)

func (s *Server) registerCompletionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "markComplete",
		Method:      http.MethodPost,
		Path:        "/api/v1/completions",
		Summary:     "Mark segment complete",
		Description: "Records a completion in the ledger, then updates streak, book and plan or challenge progress",
		Tags:        []string{"Completions"},
	}, s.handleMarkComplete)

	huma.Register(s.api, huma.Operation{
		OperationID: "queryCompletion",
		Method:      http.MethodGet,
		Path:        "/api/v1/completions/{segmentID}",
		Summary:     "Query completion",
		Description: "Reports whether a segment has been completed in a context",
		Tags:        []string{"Completions"},
	}, s.handleQueryCompletion)

	huma.Register(s.api, huma.Operation{
		OperationID: "getState",
		Method:      http.MethodGet,
		Path:        "/api/v1/state",
		Summary:     "Session state",
		Description: "Returns the session state snapshot the UI renders from",
		Tags:        []string{"State"},
	}, s.handleGetState)
}

// === DTOs ===

// MarkCompleteBody is the request body for recording a completion.
type MarkCompleteBody struct {
	SegmentID   string `json:"segment_id" doc:"Segment ID" minLength:"1"`
	Context     string `json:"context,omitempty" enum:"main,plan,challenge" doc:"Completion context (default main)"`
	RefID       string `json:"ref_id,omitempty" doc:"Plan or challenge ID for non-main contexts"`
	ReaderColor string `json:"reader_color,omitempty" maxLength:"32" doc:"Highlight color chosen by the reader"`
}

// MarkCompleteInput wraps the completion request for Huma.
type MarkCompleteInput struct {
	Body MarkCompleteBody
}

// MarkCompleteOutput wraps the completion result for Huma.
type MarkCompleteOutput struct {
	Body *service.MarkCompleteResult
}

// QueryCompletionInput contains parameters for querying a completion.
type QueryCompletionInput struct {
	SegmentID string `path:"segmentID" doc:"Segment ID"`
	Context   string `query:"context" enum:"main,plan,challenge" doc:"Completion context (default main)"`
	RefID     string `query:"ref_id" doc:"Plan or challenge ID"`
}

// CompletionStatusResponse answers a completion query.
type CompletionStatusResponse struct {
	SegmentID   string  `json:"segment_id" doc:"Segment ID"`
	IsCompleted bool    `json:"is_completed" doc:"At least one completion exists"`
	Color       *string `json:"color" doc:"Reader color of the latest completion"`
}

// CompletionStatusOutput wraps the completion status for Huma.
type CompletionStatusOutput struct {
	Body CompletionStatusResponse
}

// StateOutput wraps the session state snapshot for Huma.
type StateOutput struct {
	Body service.Snapshot
}

// === Handlers ===

func (s *Server) handleMarkComplete(ctx context.Context, input *MarkCompleteInput) (*MarkCompleteOutput, error) {
	res, err := s.services.Progress.MarkComplete(ctx, service.MarkCompleteRequest{
		SegmentID:   input.Body.SegmentID,
		Context:     input.Body.Context,
		RefID:       input.Body.RefID,
		ReaderColor: input.Body.ReaderColor,
	})
	if err != nil {
		return nil, err
	}
	return &MarkCompleteOutput{Body: res}, nil
}

func (s *Server) handleQueryCompletion(ctx context.Context, input *QueryCompletionInput) (*CompletionStatusOutput, error) {
	status, err := s.services.Progress.QueryCompletion(ctx, input.SegmentID, input.Context, input.RefID)
	if err != nil {
		return nil, err
	}
	return &CompletionStatusOutput{
		Body: CompletionStatusResponse{
			SegmentID:   input.SegmentID,
			IsCompleted: status.IsCompleted,
			Color:       status.Color,
		},
	}, nil
}

func (s *Server) handleGetState(_ context.Context, _ *struct{}) (*StateOutput, error) {
	return &StateOutput{Body: s.services.Progress.Snapshot()}, nil
}
