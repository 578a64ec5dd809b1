package api

import (
	"github.com/listenupapp/readup/internal/service"
)

// Services groups the business logic services used by the API server.
type Services struct {
	Progress       *service.ProgressService
	Stats          *service.StatsService
	Achievements   *service.AchievementService
	Reactions      *service.ReactionService
	ReadingSession *service.ReadingSessionService
}
