package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"ledger": s.checkLedger(ctx),
		"state":  s.checkState(),
		"sse":    s.checkStream(),
	}

	overall := "healthy"
	for _, c := range components {
		switch {
		case c.Status == "unhealthy":
			overall = "unhealthy"
		case c.Status == "degraded" && overall == "healthy":
			overall = "degraded"
		}
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Components: components,
		},
	}, nil
}

// checkLedger verifies the SQLite ledger answers.
func (s *Server) checkLedger(ctx context.Context) ComponentHealth {
	if s.ledger == nil {
		return ComponentHealth{Status: "degraded", Message: "ledger not configured"}
	}

	start := time.Now()
	err := s.ledger.Ping(ctx)
	latency := time.Since(start)
	if err != nil {
		return ComponentHealth{
			Status:  "unhealthy",
			Latency: latency.String(),
			Message: "ledger unreachable",
		}
	}
	return ComponentHealth{Status: "healthy", Latency: latency.String()}
}

// checkState reports whether session state finished loading.
func (s *Server) checkState() ComponentHealth {
	if s.stateReady == nil {
		return ComponentHealth{Status: "degraded", Message: "session state not configured"}
	}
	if !s.stateReady() {
		return ComponentHealth{Status: "unhealthy", Message: "session state not loaded"}
	}
	return ComponentHealth{Status: "healthy"}
}

// checkStream reports connected event stream clients and the newest event.
func (s *Server) checkStream() ComponentHealth {
	if s.sseManager == nil {
		return ComponentHealth{Status: "degraded", Message: "event stream not configured"}
	}
	return ComponentHealth{Status: "healthy", Message: streamStatus(s.sseManager.ClientCount(), s.sseManager.LastSeq())}
}

func streamStatus(clients int, lastSeq uint64) string {
	var who string
	switch clients {
	case 0:
		who = "no connected clients"
	case 1:
		who = "1 connected client"
	default:
		who = strconv.Itoa(clients) + " connected clients"
	}
	if lastSeq == 0 {
		return who
	}
	return who + ", last event " + strconv.FormatUint(lastSeq, 10)
}
