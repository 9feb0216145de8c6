package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/castarr/internal/stream"
)

// SessionHandler exposes the live concat session registry.
type SessionHandler struct {
	registry *stream.Registry
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(registry *stream.Registry) *SessionHandler {
	return &SessionHandler{registry: registry}
}

// ListSessionsOutput is the output for listing live sessions.
type ListSessionsOutput struct {
	Body []stream.SessionInfo
}

// Register registers the session routes with the API.
func (h *SessionHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listSessions",
		Method:      "GET",
		Path:        "/api/v1/sessions",
		Summary:     "List live concat sessions",
		Description: "Returns a snapshot of open concat sessions with attempt counters.",
		Tags:        []string{"Sessions"},
	}, h.ListSessions)
}

// ListSessions returns a snapshot of the open sessions.
func (h *SessionHandler) ListSessions(ctx context.Context, _ *struct{}) (*ListSessionsOutput, error) {
	return &ListSessionsOutput{Body: h.registry.Snapshot()}, nil
}
