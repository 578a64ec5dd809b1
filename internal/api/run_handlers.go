package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/readup/internal/domain"
	"github.com/listenupapp/readup/internal/service"
)

type runAction struct {
	id      string
	path    string
	summary string
	fn      func(ctx context.Context, id string) (*domain.Progress, error)
}

func (s *Server) registerRunRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listPlans",
		Method:      http.MethodGet,
		Path:        "/api/v1/plans",
		Summary:     "List plans",
		Description: "Returns every reading plan with the reader's progress",
		Tags:        []string{"Plans"},
	}, s.handleListPlans)

	huma.Register(s.api, huma.Operation{
		OperationID: "listChallenges",
		Method:      http.MethodGet,
		Path:        "/api/v1/challenges",
		Summary:     "List challenges",
		Description: "Returns every challenge with the reader's progress",
		Tags:        []string{"Challenges"},
	}, s.handleListChallenges)

	p := s.services.Progress
	plans := []runAction{
		{"startPlan", "/api/v1/plans/{id}/start", "Start plan", p.StartPlan},
		{"pausePlan", "/api/v1/plans/{id}/pause", "Pause plan", p.PausePlan},
		{"resumePlan", "/api/v1/plans/{id}/resume", "Resume plan", p.ResumePlan},
		{"switchPlan", "/api/v1/plans/{id}/switch", "Switch plan", p.SwitchPlan},
	}
	for _, a := range plans {
		s.registerRunAction(a, "Plans")
	}

	challenges := []runAction{
		{"startChallenge", "/api/v1/challenges/{id}/start", "Start challenge", p.StartChallenge},
		{"pauseChallenge", "/api/v1/challenges/{id}/pause", "Pause challenge", p.PauseChallenge},
		{"resumeChallenge", "/api/v1/challenges/{id}/resume", "Resume challenge", p.ResumeChallenge},
		{"restartChallenge", "/api/v1/challenges/{id}/restart", "Restart challenge", p.RestartChallenge},
	}
	for _, a := range challenges {
		s.registerRunAction(a, "Challenges")
	}
}

func (s *Server) registerRunAction(a runAction, tag string) {
	huma.Register(s.api, huma.Operation{
		OperationID: a.id,
		Method:      http.MethodPost,
		Path:        a.path,
		Summary:     a.summary,
		Tags:        []string{tag},
	}, func(ctx context.Context, input *RunActionInput) (*RunOutput, error) {
		progress, err := a.fn(ctx, input.ID)
		if err != nil {
			return nil, err
		}
		return &RunOutput{Body: progress}, nil
	})
}

// === DTOs ===

// RunActionInput identifies a plan or challenge.
type RunActionInput struct {
	ID string `path:"id" doc:"Plan or challenge ID"`
}

// RunOutput wraps a plan or challenge record for Huma.
type RunOutput struct {
	Body *domain.Progress
}

// ListRunsResponse lists plans or challenges.
type ListRunsResponse struct {
	Runs []service.RunView `json:"runs" doc:"Runs in corpus order"`
}

// ListRunsOutput wraps the run list for Huma.
type ListRunsOutput struct {
	Body ListRunsResponse
}

// === Handlers ===

func (s *Server) handleListPlans(_ context.Context, _ *struct{}) (*ListRunsOutput, error) {
	return &ListRunsOutput{Body: ListRunsResponse{Runs: s.services.Progress.ListPlans()}}, nil
}

func (s *Server) handleListChallenges(_ context.Context, _ *struct{}) (*ListRunsOutput, error) {
	return &ListRunsOutput{Body: ListRunsResponse{Runs: s.services.Progress.ListChallenges()}}, nil
}
