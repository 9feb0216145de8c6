package handlers

import (
	"context"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/castarr/internal/models"
	"github.com/jmylchreest/castarr/internal/repository"
)

// SettingsHandler handles the encoder settings endpoints.
type SettingsHandler struct {
	settings repository.SettingsRepository
	logger   *slog.Logger
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(settings repository.SettingsRepository) *SettingsHandler {
	return &SettingsHandler{
		settings: settings,
		logger:   slog.Default(),
	}
}

// WithLogger sets the logger for the handler.
func (h *SettingsHandler) WithLogger(logger *slog.Logger) *SettingsHandler {
	h.logger = logger
	return h
}

// FFmpegSettingsOutput wraps the settings singleton response.
type FFmpegSettingsOutput struct {
	Body *models.FFmpegSettings
}

// UpdateFFmpegSettingsInput is the input for replacing the settings singleton.
type UpdateFFmpegSettingsInput struct {
	Body models.FFmpegSettings
}

// Register registers the settings routes with the API.
func (h *SettingsHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getFFmpegSettings",
		Method:      "GET",
		Path:        "/api/v1/settings/ffmpeg",
		Summary:     "Get encoder settings",
		Tags:        []string{"Settings"},
	}, h.GetFFmpegSettings)

	huma.Register(api, huma.Operation{
		OperationID: "updateFFmpegSettings",
		Method:      "PUT",
		Path:        "/api/v1/settings/ffmpeg",
		Summary:     "Update encoder settings",
		Description: "Replaces the encoder settings singleton. Changes apply to the next encoder spawn; running encoders are untouched.",
		Tags:        []string{"Settings"},
	}, h.UpdateFFmpegSettings)
}

// GetFFmpegSettings returns the settings singleton, falling back to defaults
// when the row does not exist yet.
func (h *SettingsHandler) GetFFmpegSettings(ctx context.Context, _ *struct{}) (*FFmpegSettingsOutput, error) {
	settings, err := h.settings.Get(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("loading settings", err)
	}
	if settings == nil {
		settings = models.DefaultFFmpegSettings()
	}
	return &FFmpegSettingsOutput{Body: settings}, nil
}

// UpdateFFmpegSettings replaces the settings singleton.
func (h *SettingsHandler) UpdateFFmpegSettings(ctx context.Context, input *UpdateFFmpegSettingsInput) (*FFmpegSettingsOutput, error) {
	settings := input.Body
	if err := settings.Validate(); err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid settings", err)
	}
	if err := h.settings.Save(ctx, &settings); err != nil {
		return nil, huma.Error500InternalServerError("saving settings", err)
	}
	h.logger.Info("encoder settings updated",
		slog.String("video_encoder", settings.VideoEncoder),
		slog.String("audio_encoder", settings.AudioEncoder))
	return &FFmpegSettingsOutput{Body: &settings}, nil
}
