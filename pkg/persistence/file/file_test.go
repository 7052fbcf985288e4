package file

import (
	"os"
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
			{ID: "s", Name: "Start", Type: "START", X: 10, Y: 20},
			{ID: "t", Name: "Train", Type: "TASK", X: 120, Y: 80, Details: "fit"},
		},
		Connections: []persistence.ConnectionDocument{
			{SourceID: "s", TargetID: "t"},
		},
	}
}

func TestNewPersistence(t *testing.T) {
	fp := NewPersistence(nil, "/tmp/test")
	assert.Equal(t, "/tmp/test", fp.root)
	assert.Equal(t, persistence.FormatJSON, fp.format)

	fp = NewPersistence(nil, "file:///tmp/test?format=yaml")
	assert.Equal(t, "/tmp/test", fp.root)
	assert.Equal(t, persistence.FormatYAML, fp.format)
}

func TestPersistence_Close(t *testing.T) {
	fp := NewPersistence(nil, "./test-data")
	assert.NoError(t, fp.Close(t.Context()))
}

func TestPersistence_HealthCheck(t *testing.T) {
	assert.NoError(t, NewPersistence(nil, t.TempDir()).HealthCheck(t.Context()))
	assert.ErrorIs(t, NewPersistence(nil, filepath.Join(t.TempDir(), "missing")).HealthCheck(t.Context()), os.ErrNotExist)
}

func TestPersistence_SaveAndLoad(t *testing.T) {
	tests := []struct {
		query string
		ext   string
	}{
		{query: "", ext: ".json"},
		{query: "?format=yaml", ext: ".yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			dir := t.TempDir()
			fp := NewPersistence(nil, "file://"+dir+tt.query)

			require.NoError(t, fp.SaveWorkflow(t.Context(), sampleDocument("pipeline")))
			assert.FileExists(t, filepath.Join(dir, "workflows", "pipeline"+tt.ext))

			doc, err := fp.WorkflowByName(t.Context(), "pipeline")
			require.NoError(t, err)
			assert.Equal(t, sampleDocument("pipeline"), doc)
		})
	}
}

func TestPersistence_SaveReplacesOtherEncoding(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, NewPersistence(nil, dir+"?format=yaml").SaveWorkflow(t.Context(), sampleDocument("pipeline")))
	require.NoError(t, NewPersistence(nil, dir).SaveWorkflow(t.Context(), sampleDocument("pipeline")))

	assert.NoFileExists(t, filepath.Join(dir, "workflows", "pipeline.yaml"))
	assert.FileExists(t, filepath.Join(dir, "workflows", "pipeline.json"))
}

func TestPersistence_FailedSaveKeepsPreviousVersion(t *testing.T) {
	dir := t.TempDir()
	fp := NewPersistence(nil, dir)

	require.NoError(t, fp.SaveWorkflow(t.Context(), sampleDocument("pipeline")))

	// A directory in the way of the temporary file makes the next write fail.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "workflows", "pipeline.json.tmp"), 0o750))

	changed := sampleDocument("pipeline")
	changed.Nodes[1].Details = "refit"
	require.Error(t, fp.SaveWorkflow(t.Context(), changed))

	doc, err := fp.WorkflowByName(t.Context(), "pipeline")
	require.NoError(t, err)
	assert.Equal(t, sampleDocument("pipeline"), doc)
}

func TestPersistence_Workflows(t *testing.T) {
	fp := NewPersistence(nil, t.TempDir())

	docs, err := fp.Workflows(t.Context())
	require.NoError(t, err)
	assert.Empty(t, docs)

	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, fp.SaveWorkflow(t.Context(), sampleDocument(name)))
	}

	require.NoError(t, os.WriteFile(filepath.Join(fp.root, "workflows", "notes.txt"), []byte("ignored"), 0o600))

	docs, err = fp.Workflows(t.Context())
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "alpha", docs[0].Name)
	assert.Equal(t, "mid", docs[1].Name)
	assert.Equal(t, "zeta", docs[2].Name)
}

func TestPersistence_NotFound(t *testing.T) {
	fp := NewPersistence(nil, t.TempDir())

	_, err := fp.WorkflowByName(t.Context(), "ghost")
	assert.True(t, persistence.IsWorkflowNotFound(err))

	err = fp.DeleteWorkflow(t.Context(), "ghost")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestPersistence_Delete(t *testing.T) {
	fp := NewPersistence(nil, t.TempDir())
	require.NoError(t, fp.SaveWorkflow(t.Context(), sampleDocument("pipeline")))

	require.NoError(t, fp.DeleteWorkflow(t.Context(), "pipeline"))

	_, err := fp.WorkflowByName(t.Context(), "pipeline")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestPersistence_InvalidName(t *testing.T) {
	fp := NewPersistence(nil, t.TempDir())

	err := fp.SaveWorkflow(t.Context(), sampleDocument("../escape"))
	require.ErrorIs(t, err, persistence.ErrInvalidName)

	_, err = fp.WorkflowByName(t.Context(), "a/b")
	require.ErrorIs(t, err, persistence.ErrInvalidName)
}

func TestPersistence_CorruptFile(t *testing.T) {
	fp := NewPersistence(nil, t.TempDir())
	require.NoError(t, os.MkdirAll(filepath.Join(fp.root, "workflows"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(fp.root, "workflows", "broken.json"), []byte(`{"nodes": 3}`), 0o600))

	_, err := fp.WorkflowByName(t.Context(), "broken")
	assert.True(t, persistence.IsInvalidDocument(err))
}

func TestReadWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow.yml")

	require.NoError(t, Write(path, sampleDocument("flow")))

	doc, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, sampleDocument("flow"), doc)

	_, err = Read(filepath.Join(t.TempDir(), "flow.toml"))
	require.ErrorIs(t, err, persistence.ErrUnsupportedFormat)
}
