package handlers

import (
	"context"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/castarr/internal/models"
	"github.com/jmylchreest/castarr/internal/repository"
)

// ChannelHandler handles channel management endpoints.
type ChannelHandler struct {
	channels repository.ChannelRepository
	logger   *slog.Logger
}

// NewChannelHandler creates a new channel handler.
func NewChannelHandler(channels repository.ChannelRepository) *ChannelHandler {
	return &ChannelHandler{
		channels: channels,
		logger:   slog.Default(),
	}
}

// WithLogger sets the logger for the handler.
func (h *ChannelHandler) WithLogger(logger *slog.Logger) *ChannelHandler {
	h.logger = logger
	return h
}

// ListChannelsInput is the input for listing channels.
type ListChannelsInput struct {
	IncludeStealth bool `query:"include_stealth" doc:"Include stealth channels hidden from guides and discovery"`
}

// ListChannelsOutput is the output for listing channels.
type ListChannelsOutput struct {
	Body []*models.Channel
}

// ChannelIDInput identifies a channel by its UUID.
type ChannelIDInput struct {
	ID string `path:"id" doc:"Channel UUID"`
}

// ChannelOutput wraps a single channel response.
type ChannelOutput struct {
	Body *models.Channel
}

// ChannelBody is the create/update request payload: the channel fields plus
// an optional full lineup replacement.
type ChannelBody struct {
	Channel models.Channel      `json:"channel"`
	Lineup  []models.LineupItem `json:"lineup,omitempty"`
}

// CreateChannelInput is the input for creating a channel.
type CreateChannelInput struct {
	Body ChannelBody
}

// UpdateChannelInput is the input for updating a channel.
type UpdateChannelInput struct {
	ID   string `path:"id" doc:"Channel UUID"`
	Body ChannelBody
}

// DeleteChannelOutput is the (empty) output for deleting a channel.
type DeleteChannelOutput struct{}

// Register registers the channel routes with the API.
func (h *ChannelHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listChannels",
		Method:      "GET",
		Path:        "/api/v1/channels",
		Summary:     "List channels",
		Tags:        []string{"Channels"},
	}, h.ListChannels)

	huma.Register(api, huma.Operation{
		OperationID: "getChannel",
		Method:      "GET",
		Path:        "/api/v1/channels/{id}",
		Summary:     "Get a channel",
		Tags:        []string{"Channels"},
	}, h.GetChannel)

	huma.Register(api, huma.Operation{
		OperationID:   "createChannel",
		Method:        "POST",
		Path:          "/api/v1/channels",
		Summary:       "Create a channel",
		Description:   "Creates a channel; when a lineup is supplied it is installed and the channel duration set to the summed item durations.",
		Tags:          []string{"Channels"},
		DefaultStatus: 201,
	}, h.CreateChannel)

	huma.Register(api, huma.Operation{
		OperationID: "updateChannel",
		Method:      "PUT",
		Path:        "/api/v1/channels/{id}",
		Summary:     "Update a channel",
		Description: "Updates channel fields; when a lineup is supplied the existing lineup is atomically replaced.",
		Tags:        []string{"Channels"},
	}, h.UpdateChannel)

	huma.Register(api, huma.Operation{
		OperationID:   "deleteChannel",
		Method:        "DELETE",
		Path:          "/api/v1/channels/{id}",
		Summary:       "Delete a channel",
		Tags:          []string{"Channels"},
		DefaultStatus: 204,
	}, h.DeleteChannel)
}

// ListChannels returns all channels ordered by number.
func (h *ChannelHandler) ListChannels(ctx context.Context, input *ListChannelsInput) (*ListChannelsOutput, error) {
	channels, err := h.channels.GetAll(ctx, input.IncludeStealth)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing channels", err)
	}
	return &ListChannelsOutput{Body: channels}, nil
}

// GetChannel returns one channel with its lineup.
func (h *ChannelHandler) GetChannel(ctx context.Context, input *ChannelIDInput) (*ChannelOutput, error) {
	id, err := models.ParseID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid channel id", err)
	}
	ch, err := h.channels.GetByID(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("loading channel", err)
	}
	if ch == nil {
		return nil, huma.Error404NotFound("channel not found")
	}
	if ch.Lineup, err = h.channels.GetLineup(ctx, id); err != nil {
		return nil, huma.Error500InternalServerError("loading lineup", err)
	}
	return &ChannelOutput{Body: ch}, nil
}

// CreateChannel creates a channel, optionally installing its lineup.
func (h *ChannelHandler) CreateChannel(ctx context.Context, input *CreateChannelInput) (*ChannelOutput, error) {
	ch := input.Body.Channel
	if err := ch.Validate(); err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid channel", err)
	}

	if existing, err := h.channels.GetByNumber(ctx, ch.Number); err != nil {
		return nil, huma.Error500InternalServerError("checking channel number", err)
	} else if existing != nil {
		return nil, huma.Error409Conflict("channel number already in use")
	}

	if len(input.Body.Lineup) > 0 {
		if err := validateLineup(ch, input.Body.Lineup); err != nil {
			return nil, huma.Error422UnprocessableEntity("invalid lineup", err)
		}
	}

	if err := h.channels.Create(ctx, &ch); err != nil {
		return nil, huma.Error500InternalServerError("creating channel", err)
	}
	if len(input.Body.Lineup) > 0 {
		if err := h.channels.ReplaceLineup(ctx, ch.ID, input.Body.Lineup); err != nil {
			return nil, huma.Error500InternalServerError("installing lineup", err)
		}
	}

	created, err := h.channels.GetByID(ctx, ch.ID)
	if err != nil || created == nil {
		return nil, huma.Error500InternalServerError("reloading channel", err)
	}
	h.logger.Info("channel created",
		slog.Int("number", created.Number),
		slog.String("name", created.Name))
	return &ChannelOutput{Body: created}, nil
}

// UpdateChannel updates channel fields and optionally replaces its lineup.
func (h *ChannelHandler) UpdateChannel(ctx context.Context, input *UpdateChannelInput) (*ChannelOutput, error) {
	id, err := models.ParseID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid channel id", err)
	}
	existing, err := h.channels.GetByID(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("loading channel", err)
	}
	if existing == nil {
		return nil, huma.Error404NotFound("channel not found")
	}

	ch := input.Body.Channel
	ch.BaseModel = existing.BaseModel
	if len(input.Body.Lineup) == 0 {
		// Duration is derived from the lineup; a bare field update must not
		// drift it away from the stored items.
		ch.Duration = existing.Duration
	} else if err := validateLineup(ch, input.Body.Lineup); err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid lineup", err)
	}
	if err := ch.Validate(); err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid channel", err)
	}
	if err := h.channels.Update(ctx, &ch); err != nil {
		return nil, huma.Error500InternalServerError("updating channel", err)
	}
	if len(input.Body.Lineup) > 0 {
		if err := h.channels.ReplaceLineup(ctx, id, input.Body.Lineup); err != nil {
			return nil, huma.Error500InternalServerError("replacing lineup", err)
		}
	}

	updated, err := h.channels.GetByID(ctx, id)
	if err != nil || updated == nil {
		return nil, huma.Error500InternalServerError("reloading channel", err)
	}
	return &ChannelOutput{Body: updated}, nil
}

// validateLineup checks a lineup replacement request before anything is
// written: every item needs a positive duration, and a client-supplied
// channel duration must match the item sum. A zero duration is derived from
// the lineup on write.
func validateLineup(ch models.Channel, items []models.LineupItem) error {
	ch.Lineup = items
	if ch.Duration == 0 {
		for i := range items {
			ch.Duration += items[i].DurationMs
		}
	}
	return ch.ValidateLineup()
}

// DeleteChannel deletes a channel and its lineup.
func (h *ChannelHandler) DeleteChannel(ctx context.Context, input *ChannelIDInput) (*DeleteChannelOutput, error) {
	id, err := models.ParseID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid channel id", err)
	}
	existing, err := h.channels.GetByID(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("loading channel", err)
	}
	if existing == nil {
		return nil, huma.Error404NotFound("channel not found")
	}
	if err := h.channels.Delete(ctx, id); err != nil {
		return nil, huma.Error500InternalServerError("deleting channel", err)
	}
	h.logger.Info("channel deleted", slog.Int("number", existing.Number))
	return &DeleteChannelOutput{}, nil
}
