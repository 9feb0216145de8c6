package handlers

import (
	"context"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/castarr/internal/models"
	"github.com/jmylchreest/castarr/internal/repository"
)

// FillerHandler handles filler show management endpoints.
type FillerHandler struct {
	fillers repository.FillerRepository
	logger  *slog.Logger
}

// NewFillerHandler creates a new filler handler.
func NewFillerHandler(fillers repository.FillerRepository) *FillerHandler {
	return &FillerHandler{
		fillers: fillers,
		logger:  slog.Default(),
	}
}

// WithLogger sets the logger for the handler.
func (h *FillerHandler) WithLogger(logger *slog.Logger) *FillerHandler {
	h.logger = logger
	return h
}

// ListFillersOutput is the output for listing filler shows.
type ListFillersOutput struct {
	Body []*models.FillerShow
}

// CreateFillerInput is the input for creating a filler show with its clips.
type CreateFillerInput struct {
	Body models.FillerShow
}

// FillerOutput wraps a single filler show response.
type FillerOutput struct {
	Body *models.FillerShow
}

// FillerIDInput identifies a filler show by its UUID.
type FillerIDInput struct {
	ID string `path:"id" doc:"Filler show UUID"`
}

// DeleteFillerOutput is the (empty) output for deleting a filler show.
type DeleteFillerOutput struct{}

// Register registers the filler routes with the API.
func (h *FillerHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listFillers",
		Method:      "GET",
		Path:        "/api/v1/fillers",
		Summary:     "List filler shows",
		Tags:        []string{"Fillers"},
	}, h.ListFillers)

	huma.Register(api, huma.Operation{
		OperationID:   "createFiller",
		Method:        "POST",
		Path:          "/api/v1/fillers",
		Summary:       "Create a filler show",
		Description:   "Creates a filler show together with its clips.",
		Tags:          []string{"Fillers"},
		DefaultStatus: 201,
	}, h.CreateFiller)

	huma.Register(api, huma.Operation{
		OperationID:   "deleteFiller",
		Method:        "DELETE",
		Path:          "/api/v1/fillers/{id}",
		Summary:       "Delete a filler show",
		Description:   "Deletes a filler show and its clips. Channel collections referencing it stop yielding candidates.",
		Tags:          []string{"Fillers"},
		DefaultStatus: 204,
	}, h.DeleteFiller)
}

// ListFillers returns all filler shows with clips preloaded.
func (h *FillerHandler) ListFillers(ctx context.Context, _ *struct{}) (*ListFillersOutput, error) {
	shows, err := h.fillers.GetAllShows(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing filler shows", err)
	}
	return &ListFillersOutput{Body: shows}, nil
}

// CreateFiller creates a filler show with its clips.
func (h *FillerHandler) CreateFiller(ctx context.Context, input *CreateFillerInput) (*FillerOutput, error) {
	show := input.Body
	if err := show.Validate(); err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid filler show", err)
	}
	if err := h.fillers.CreateShow(ctx, &show); err != nil {
		return nil, huma.Error500InternalServerError("creating filler show", err)
	}
	h.logger.Info("filler show created",
		slog.String("name", show.Name),
		slog.Int("clips", len(show.Clips)))
	return &FillerOutput{Body: &show}, nil
}

// DeleteFiller deletes a filler show and its clips.
func (h *FillerHandler) DeleteFiller(ctx context.Context, input *FillerIDInput) (*DeleteFillerOutput, error) {
	id, err := models.ParseID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid filler show id", err)
	}
	existing, err := h.fillers.GetShow(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("loading filler show", err)
	}
	if existing == nil {
		return nil, huma.Error404NotFound("filler show not found")
	}
	if err := h.fillers.DeleteShow(ctx, id); err != nil {
		return nil, huma.Error500InternalServerError("deleting filler show", err)
	}
	return &DeleteFillerOutput{}, nil
}
