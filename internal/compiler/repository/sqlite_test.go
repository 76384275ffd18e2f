package repository

import (
	"context"
	"path/filepath"
	"testing"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"variant-compiler/internal/compiler/models"
	"variant-compiler/internal/compiler/wizard"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "db", "variants.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := New(db)
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

func TestInitIsRepeatable(t *testing.T) {
	repo := newTestRepo(t)
	assert.NoError(t, repo.Init(context.Background()))
}

func TestDraftRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	provinces := wizard.StageProvinces
	journal := []wizard.Step{
		{Correction: &wizard.Correction{Op: wizard.OpSetup, Setup: &wizard.Setup{Metadata: models.Metadata{Name: "Europe"}}}},
		{Stage: &provinces},
		{Correction: &wizard.Correction{Op: wizard.OpProvinceName, Target: "par", Value: "Paris"}},
	}
	require.NoError(t, repo.SaveDraft(ctx, Draft{ID: "s1", SVG: "<svg/>", Journal: journal[:1], Stage: wizard.StageSetup}))
	require.NoError(t, repo.SaveDraft(ctx, Draft{ID: "s1", SVG: "<svg/>", Journal: journal, Stage: provinces}))

	got, err := repo.GetDraft(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)
	assert.Equal(t, "<svg/>", got.SVG)
	assert.Equal(t, wizard.StageProvinces, got.Stage)
	assert.Equal(t, journal, got.Journal)
	assert.NotEmpty(t, got.UpdatedAt)

	require.NoError(t, repo.DeleteDraft(ctx, "s1"))
	_, err = repo.GetDraft(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.DeleteDraft(ctx, "s1"), ErrNotFound)
}

func TestVariantRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	def := &models.VariantDefinition{
		Metadata:    models.Metadata{Name: "Europe", SoloVictorySCCount: 18},
		Nations:     []models.Nation{{ID: "fra", Name: "France", Color: "#2a5db0"}},
		Provinces:   []models.Province{{ID: "par", Name: "Paris", Type: models.ProvinceLand, Adjacencies: []string{}, Labels: []models.Label{}}},
		NamedCoasts: []models.NamedCoast{},
		Dimensions:  models.Dimensions{Width: 200, Height: 100},
	}
	require.NoError(t, repo.SaveVariant(ctx, StoredVariant{ID: "v1", SessionID: "s1", Name: def.Name, Definition: def}))
	require.NoError(t, repo.SaveVariant(ctx, StoredVariant{ID: "v2", Name: "Loose", Definition: def}))

	got, err := repo.GetVariant(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.SessionID)
	assert.Equal(t, "Europe", got.Name)
	assert.Equal(t, def.Provinces, got.Definition.Provinces)
	assert.Equal(t, def.Dimensions, got.Definition.Dimensions)
	assert.NotEmpty(t, got.CreatedAt)

	loose, err := repo.GetVariant(ctx, "v2")
	require.NoError(t, err)
	assert.Empty(t, loose.SessionID)

	assert.Error(t, repo.SaveVariant(ctx, StoredVariant{ID: "v1", Name: "again", Definition: def}), "variants are write-once")

	_, err = repo.GetVariant(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
