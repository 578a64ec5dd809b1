package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/readup/internal/domain"
	"github.com/listenupapp/readup/internal/service"
)

func (s *Server) registerReactionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "addReaction",
		Method:      http.MethodPost,
		Path:        "/api/v1/reactions",
		Summary:     "Add reaction",
		Description: "Leaves an emoji on a content block. Repeating a reaction is a no-op",
		Tags:        []string{"Reactions"},
	}, s.handleAddReaction)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeReaction",
		Method:      http.MethodDelete,
		Path:        "/api/v1/reactions",
		Summary:     "Remove reaction",
		Description: "Removes an emoji from a content block",
		Tags:        []string{"Reactions"},
	}, s.handleRemoveReaction)

	huma.Register(s.api, huma.Operation{
		OperationID: "listSegmentReactions",
		Method:      http.MethodGet,
		Path:        "/api/v1/segments/{segmentID}/reactions",
		Summary:     "List reactions",
		Description: "Returns the reactions left on a segment",
		Tags:        []string{"Reactions"},
	}, s.handleListReactions)
}

// === DTOs ===

// ReactionBody identifies a reaction. Emoji may be a glyph or its palette name.
type ReactionBody struct {
	SegmentID string `json:"segment_id" doc:"Segment ID" minLength:"1"`
	BlockID   string `json:"block_id" doc:"Content block ID" minLength:"1" maxLength:"128"`
	Emoji     string `json:"emoji" doc:"Emoji glyph or name" minLength:"1" maxLength:"32"`
}

// AddReactionInput wraps the add reaction request for Huma.
type AddReactionInput struct {
	Body ReactionBody
}

// AddReactionResponse reports the stored reaction.
type AddReactionResponse struct {
	Reaction domain.Reaction `json:"reaction" doc:"Stored reaction"`
	Created  bool            `json:"created" doc:"False when the reaction already existed"`
}

// AddReactionOutput wraps the add reaction response for Huma.
type AddReactionOutput struct {
	Body AddReactionResponse
}

// RemoveReactionInput identifies the reaction to remove.
type RemoveReactionInput struct {
	SegmentID string `query:"segment_id" required:"true" doc:"Segment ID"`
	BlockID   string `query:"block_id" required:"true" doc:"Content block ID"`
	Emoji     string `query:"emoji" required:"true" doc:"Emoji glyph or name"`
}

// RemoveReactionResponse reports whether anything was removed.
type RemoveReactionResponse struct {
	Removed bool `json:"removed" doc:"True when a reaction was deleted"`
}

// RemoveReactionOutput wraps the remove response for Huma.
type RemoveReactionOutput struct {
	Body RemoveReactionResponse
}

// ListReactionsInput contains parameters for listing reactions.
type ListReactionsInput struct {
	SegmentID string `path:"segmentID" doc:"Segment ID"`
}

// ListReactionsResponse lists reactions on a segment.
type ListReactionsResponse struct {
	Reactions []domain.Reaction `json:"reactions" doc:"Reactions, oldest first"`
}

// ListReactionsOutput wraps the reaction list for Huma.
type ListReactionsOutput struct {
	Body ListReactionsResponse
}

// === Handlers ===

func (s *Server) handleAddReaction(ctx context.Context, input *AddReactionInput) (*AddReactionOutput, error) {
	reaction, created, err := s.services.Reactions.AddReaction(ctx, service.ReactionRequest{
		SegmentID: input.Body.SegmentID,
		BlockID:   input.Body.BlockID,
		Emoji:     input.Body.Emoji,
	})
	if err != nil {
		return nil, err
	}
	return &AddReactionOutput{Body: AddReactionResponse{Reaction: reaction, Created: created}}, nil
}

func (s *Server) handleRemoveReaction(ctx context.Context, input *RemoveReactionInput) (*RemoveReactionOutput, error) {
	removed, err := s.services.Reactions.RemoveReaction(ctx, service.ReactionRequest{
		SegmentID: input.SegmentID,
		BlockID:   input.BlockID,
		Emoji:     input.Emoji,
	})
	if err != nil {
		return nil, err
	}
	return &RemoveReactionOutput{Body: RemoveReactionResponse{Removed: removed}}, nil
}

func (s *Server) handleListReactions(ctx context.Context, input *ListReactionsInput) (*ListReactionsOutput, error) {
	reactions, err := s.services.Reactions.ListReactions(ctx, input.SegmentID)
	if err != nil {
		return nil, err
	}
	if reactions == nil {
		reactions = []domain.Reaction{}
	}
	return &ListReactionsOutput{Body: ListReactionsResponse{Reactions: reactions}}, nil
}
