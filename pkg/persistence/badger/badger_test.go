package badger

import (
	"path/filepath"
	"testing"

	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument(name string) *persistence.Document {
	return &persistence.Document{
		Name: name,
		Nodes: []persistence.NodeDocument{
			{ID: "s", Name: "Start", Type: "START"},
			{ID: "p", Name: "Predict", Type: "PREDICTION", Details: "resnet", Metadata: map[string]string{"gpu": "a100"}},
		},
		Connections: []persistence.ConnectionDocument{{SourceID: "s", TargetID: "p"}},
	}
}

func openInMemory(t *testing.T) *Persistence {
	t.Helper()

	store, err := NewPersistence(InMemoryConfig())
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close(t.Context()) })

	return store
}

func TestConfigFromURL(t *testing.T) {
	assert.True(t, ConfigFromURL("badger://memory").InMemory)

	cfg := ConfigFromURL("badger:///var/lib/workflows")
	assert.False(t, cfg.InMemory)
	assert.Equal(t, "/var/lib/workflows", cfg.Path)
	assert.True(t, cfg.SyncWrites)
}

func TestNewPersistence_RequiresPath(t *testing.T) {
	_, err := NewPersistence(Config{})
	require.Error(t, err)
}

func TestPersistence_SaveLoadDelete(t *testing.T) {
	store := openInMemory(t)
	ctx := t.Context()

	require.NoError(t, store.HealthCheck(ctx))
	require.NoError(t, store.SaveWorkflow(ctx, sampleDocument("pipeline")))

	doc, err := store.WorkflowByName(ctx, "pipeline")
	require.NoError(t, err)
	assert.Equal(t, sampleDocument("pipeline"), doc)

	require.NoError(t, store.DeleteWorkflow(ctx, "pipeline"))

	_, err = store.WorkflowByName(ctx, "pipeline")
	assert.True(t, persistence.IsWorkflowNotFound(err))
	assert.True(t, persistence.IsWorkflowNotFound(store.DeleteWorkflow(ctx, "pipeline")))
}

func TestPersistence_WorkflowsSorted(t *testing.T) {
	store := openInMemory(t)

	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, store.SaveWorkflow(t.Context(), sampleDocument(name)))
	}

	docs, err := store.Workflows(t.Context())
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "alpha", docs[0].Name)
	assert.Equal(t, "mid", docs[1].Name)
	assert.Equal(t, "zeta", docs[2].Name)
}

func TestPersistence_ReopensFromDisk(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "db")

	store, err := NewPersistence(cfg)
	require.NoError(t, err)
	require.NoError(t, store.SaveWorkflow(t.Context(), sampleDocument("pipeline")))
	require.NoError(t, store.Close(t.Context()))

	store, err = NewPersistence(cfg)
	require.NoError(t, err)

	defer func() { _ = store.Close(t.Context()) }()

	doc, err := store.WorkflowByName(t.Context(), "pipeline")
	require.NoError(t, err)
	assert.Equal(t, "resnet", doc.Nodes[1].Details)
}

func TestPersistence_InvalidName(t *testing.T) {
	store := openInMemory(t)

	err := store.SaveWorkflow(t.Context(), sampleDocument(""))
	require.ErrorIs(t, err, persistence.ErrInvalidName)
}
