package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/readup/internal/achievement"
	"github.com/listenupapp/readup/internal/domain"
)

func (s *Server) registerStatsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getReadingStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/stats",
		Summary:     "Reading statistics",
		Description: "Returns totals, streaks, testament progress and source breakdown",
		Tags:        []string{"Stats"},
	}, s.handleGetReadingStats)

	huma.Register(s.api, huma.Operation{
		OperationID: "getStreak",
		Method:      http.MethodGet,
		Path:        "/api/v1/stats/streak",
		Summary:     "Streak",
		Description: "Returns the current and best daily streaks",
		Tags:        []string{"Stats"},
	}, s.handleGetStreak)

	huma.Register(s.api, huma.Operation{
		OperationID: "getStreakCalendar",
		Method:      http.MethodGet,
		Path:        "/api/v1/stats/calendar",
		Summary:     "Streak calendar",
		Description: "Returns one entry per day ending today",
		Tags:        []string{"Stats"},
	}, s.handleGetCalendar)

	huma.Register(s.api, huma.Operation{
		OperationID: "getEmojiStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/stats/emoji",
		Summary:     "Emoji statistics",
		Description: "Returns reaction counts per emoji and palette coverage",
		Tags:        []string{"Stats"},
	}, s.handleGetEmojiStats)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBookCompletion",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{code}/completion",
		Summary:     "Book completion",
		Description: "Reports whether every segment of a book has been read",
		Tags:        []string{"Stats"},
	}, s.handleGetBookCompletion)

	huma.Register(s.api, huma.Operation{
		OperationID: "listAchievements",
		Method:      http.MethodGet,
		Path:        "/api/v1/achievements",
		Summary:     "Achievements",
		Description: "Returns every achievement with live progress",
		Tags:        []string{"Achievements"},
	}, s.handleListAchievements)
}

// === DTOs ===

// ReadingStatsOutput wraps the reading stats for Huma.
type ReadingStatsOutput struct {
	Body domain.ReadingStats
}

// StreakOutput wraps the streak summary for Huma.
type StreakOutput struct {
	Body domain.StreakSummary
}

// CalendarInput contains parameters for the streak calendar.
type CalendarInput struct {
	Days int `query:"days" minimum:"0" maximum:"366" doc:"Number of days (default 84)"`
}

// CalendarResponse lists calendar days, oldest first.
type CalendarResponse struct {
	Days []domain.StreakDay `json:"days" doc:"Calendar days, oldest first"`
}

// CalendarOutput wraps the calendar for Huma.
type CalendarOutput struct {
	Body CalendarResponse
}

// EmojiStatsResponse combines counts and palette coverage.
type EmojiStatsResponse struct {
	Stats      domain.EmojiStats      `json:"stats" doc:"Reaction counts"`
	Collection domain.EmojiCollection `json:"collection" doc:"Palette coverage"`
}

// EmojiStatsOutput wraps emoji stats for Huma.
type EmojiStatsOutput struct {
	Body EmojiStatsResponse
}

// BookCompletionInput identifies a book.
type BookCompletionInput struct {
	Code string `path:"code" doc:"Book code"`
}

// BookCompletionResponse reports book completion.
type BookCompletionResponse struct {
	Code      string `json:"code" doc:"Book code"`
	Completed bool   `json:"completed" doc:"Every segment of the book has been read"`
}

// BookCompletionOutput wraps book completion for Huma.
type BookCompletionOutput struct {
	Body BookCompletionResponse
}

// AchievementsResponse lists achievements.
type AchievementsResponse struct {
	Achievements []achievement.Trophy `json:"achievements" doc:"Achievements in catalog order"`
}

// AchievementsOutput wraps achievements for Huma.
type AchievementsOutput struct {
	Body AchievementsResponse
}

// === Handlers ===

func (s *Server) handleGetReadingStats(ctx context.Context, _ *struct{}) (*ReadingStatsOutput, error) {
	stats, err := s.services.Stats.GetReadingStats(ctx)
	if err != nil {
		return nil, err
	}
	return &ReadingStatsOutput{Body: stats}, nil
}

func (s *Server) handleGetStreak(ctx context.Context, _ *struct{}) (*StreakOutput, error) {
	streak, err := s.services.Stats.GetStreak(ctx)
	if err != nil {
		return nil, err
	}
	return &StreakOutput{Body: streak}, nil
}

func (s *Server) handleGetCalendar(ctx context.Context, input *CalendarInput) (*CalendarOutput, error) {
	days, err := s.services.Stats.Calendar(ctx, input.Days)
	if err != nil {
		return nil, err
	}
	return &CalendarOutput{Body: CalendarResponse{Days: days}}, nil
}

func (s *Server) handleGetEmojiStats(ctx context.Context, _ *struct{}) (*EmojiStatsOutput, error) {
	stats, err := s.services.Stats.GetEmojiStats(ctx)
	if err != nil {
		return nil, err
	}
	collection, err := s.services.Stats.CheckEmojiCollection(ctx)
	if err != nil {
		return nil, err
	}
	return &EmojiStatsOutput{Body: EmojiStatsResponse{Stats: stats, Collection: collection}}, nil
}

func (s *Server) handleGetBookCompletion(ctx context.Context, input *BookCompletionInput) (*BookCompletionOutput, error) {
	done, err := s.services.Stats.CheckBookCompletion(ctx, input.Code)
	if err != nil {
		return nil, err
	}
	return &BookCompletionOutput{Body: BookCompletionResponse{Code: input.Code, Completed: done}}, nil
}

func (s *Server) handleListAchievements(ctx context.Context, _ *struct{}) (*AchievementsOutput, error) {
	trophies, err := s.services.Achievements.List(ctx)
	if err != nil {
		return nil, err
	}
	return &AchievementsOutput{Body: AchievementsResponse{Achievements: trophies}}, nil
}
