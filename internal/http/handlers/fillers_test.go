package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/castarr/internal/models"
)

// fakeFillerRepo is an in-memory repository.FillerRepository.
type fakeFillerRepo struct {
	shows map[models.ID]*models.FillerShow
}

func newFakeFillerRepo() *fakeFillerRepo {
	return &fakeFillerRepo{shows: make(map[models.ID]*models.FillerShow)}
}

func (f *fakeFillerRepo) CreateShow(_ context.Context, show *models.FillerShow) error {
	if show.ID.IsZero() {
		show.ID = models.NewID()
	}
	for i := range show.Clips {
		if show.Clips[i].ID.IsZero() {
			show.Clips[i].ID = models.NewID()
		}
		show.Clips[i].FillerShowID = show.ID
	}
	stored := *show
	f.shows[show.ID] = &stored
	return nil
}

func (f *fakeFillerRepo) GetShow(_ context.Context, id models.ID) (*models.FillerShow, error) {
	show, ok := f.shows[id]
	if !ok {
		return nil, nil
	}
	copied := *show
	return &copied, nil
}

func (f *fakeFillerRepo) GetAllShows(context.Context) ([]*models.FillerShow, error) {
	out := make([]*models.FillerShow, 0, len(f.shows))
	for _, show := range f.shows {
		copied := *show
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeFillerRepo) DeleteShow(_ context.Context, id models.ID) error {
	delete(f.shows, id)
	return nil
}

func (f *fakeFillerRepo) CreateClip(context.Context, *models.FillerClip) error { return nil }

func (f *fakeFillerRepo) GetClip(context.Context, models.ID) (*models.FillerClip, error) {
	return nil, nil
}

func (f *fakeFillerRepo) DeleteClip(context.Context, models.ID) error { return nil }

func (f *fakeFillerRepo) GetCollections(context.Context, models.ID) ([]models.FillerCollection, error) {
	return nil, nil
}

func (f *fakeFillerRepo) SetCollections(context.Context, models.ID, []models.FillerCollection) error {
	return nil
}

func TestCreateFiller(t *testing.T) {
	repo := newFakeFillerRepo()
	h := NewFillerHandler(repo).WithLogger(discardLogger())

	out, err := h.CreateFiller(context.Background(), &CreateFillerInput{
		Body: models.FillerShow{
			Name: "Station Bumpers",
			Clips: []models.FillerClip{
				{Title: "ident", DurationMs: 15_000, FilePath: "/media/bumpers/ident.mp4"},
				{Title: "psa", DurationMs: 30_000, FilePath: "/media/bumpers/psa.mp4"},
			},
		},
	})
	require.NoError(t, err)
	assert.False(t, out.Body.ID.IsZero())
	require.Len(t, out.Body.Clips, 2)
	assert.Equal(t, out.Body.ID, out.Body.Clips[0].FillerShowID)
}

func TestCreateFillerRequiresName(t *testing.T) {
	h := NewFillerHandler(newFakeFillerRepo()).WithLogger(discardLogger())

	_, err := h.CreateFiller(context.Background(), &CreateFillerInput{Body: models.FillerShow{}})
	assert.Equal(t, 422, statusOf(t, err))
}

func TestListFillers(t *testing.T) {
	repo := newFakeFillerRepo()
	h := NewFillerHandler(repo).WithLogger(discardLogger())

	_, err := h.CreateFiller(context.Background(), &CreateFillerInput{
		Body: models.FillerShow{Name: "Station Bumpers"},
	})
	require.NoError(t, err)

	out, err := h.ListFillers(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, out.Body, 1)
}

func TestDeleteFiller(t *testing.T) {
	repo := newFakeFillerRepo()
	h := NewFillerHandler(repo).WithLogger(discardLogger())

	created, err := h.CreateFiller(context.Background(), &CreateFillerInput{
		Body: models.FillerShow{Name: "Station Bumpers"},
	})
	require.NoError(t, err)

	_, err = h.DeleteFiller(context.Background(), &FillerIDInput{ID: created.Body.ID.String()})
	require.NoError(t, err)

	out, err := h.ListFillers(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out.Body)
}

func TestDeleteFillerErrors(t *testing.T) {
	h := NewFillerHandler(newFakeFillerRepo()).WithLogger(discardLogger())

	_, err := h.DeleteFiller(context.Background(), &FillerIDInput{ID: "not-a-uuid"})
	assert.Equal(t, 400, statusOf(t, err))

	_, err = h.DeleteFiller(context.Background(), &FillerIDInput{ID: models.NewID().String()})
	assert.Equal(t, 404, statusOf(t, err))
}
