package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/castarr/internal/version"
)

// VersionHandler serves build version information.
type VersionHandler struct{}

// NewVersionHandler creates a new version handler.
func NewVersionHandler() *VersionHandler {
	return &VersionHandler{}
}

// VersionOutput is the output for the version endpoint.
type VersionOutput struct {
	Body version.Info
}

// Register registers the version route with the API.
func (h *VersionHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getVersion",
		Method:      "GET",
		Path:        "/api/v1/version",
		Summary:     "Build version",
		Tags:        []string{"System"},
	}, h.GetVersion)
}

// GetVersion returns the build-time version information.
func (h *VersionHandler) GetVersion(ctx context.Context, _ *struct{}) (*VersionOutput, error) {
	return &VersionOutput{Body: version.GetInfo()}, nil
}
