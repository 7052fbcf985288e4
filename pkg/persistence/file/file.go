// Package file stores workflow documents as JSON or YAML files.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Farid-Nowrouzi/WorkflowOrchestrationSystem/pkg/persistence"
)

const workflowsDir = "workflows"

var extensions = []string{".json", ".yaml", ".yml"}

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root   string
	format persistence.Format
	logger *slog.Logger
}

// NewPersistence stores documents under <root>/workflows. The file:// prefix
// is stripped. New documents are written as JSON unless the URL carries
// ?format=yaml.
func NewPersistence(logger *slog.Logger, root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)
	format := persistence.FormatJSON

	if path, query, ok := strings.Cut(cleanRoot, "?"); ok {
		cleanRoot = path

		if query == "format=yaml" {
			format = persistence.FormatYAML
		}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Persistence{
		root:   cleanRoot,
		format: format,
		logger: logger.With("module", "file_persistence"),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks that the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) SaveWorkflow(_ context.Context, doc *persistence.Document) error {
	if err := persistence.ValidateName(doc.Name); err != nil {
		return persistence.NewWorkflowError("Save", doc.Name, err)
	}

	dir := filepath.Join(fp.root, workflowsDir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create workflows directory: %w", err)
	}

	path := filepath.Join(dir, doc.Name+"."+string(fp.format))
	if err := Write(path, doc); err != nil {
		return persistence.NewWorkflowError("Save", doc.Name, err)
	}

	// Drop other encodings so one name maps to one file.
	for _, other := range fp.paths(doc.Name) {
		if other == path {
			continue
		}

		if err := os.Remove(other); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to replace workflow file: %w", err)
		}
	}

	fp.logger.Debug("Workflow saved", "name", doc.Name, "path", path)

	return nil
}

func (fp *Persistence) WorkflowByName(_ context.Context, name string) (*persistence.Document, error) {
	if err := persistence.ValidateName(name); err != nil {
		return nil, persistence.NewWorkflowError("Load", name, err)
	}

	for _, path := range fp.paths(name) {
		doc, err := Read(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err != nil {
			return nil, persistence.NewWorkflowError("Load", name, err)
		}

		doc.Name = name

		return doc, nil
	}

	return nil, persistence.NewWorkflowError("Load", name, persistence.ErrWorkflowNotFound)
}

func (fp *Persistence) Workflows(ctx context.Context) ([]*persistence.Document, error) {
	entries, err := os.ReadDir(filepath.Join(fp.root, workflowsDir))
	if errors.Is(err, fs.ErrNotExist) {
		return make([]*persistence.Document, 0), nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	var names []string

	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || !slices.Contains(extensions, ext) {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ext)
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}

	slices.Sort(names)

	docs := make([]*persistence.Document, 0, len(names))
	for _, name := range names {
		doc, err := fp.WorkflowByName(ctx, name)
		if err != nil {
			return nil, err
		}

		docs = append(docs, doc)
	}

	return docs, nil
}

func (fp *Persistence) DeleteWorkflow(_ context.Context, name string) error {
	if err := persistence.ValidateName(name); err != nil {
		return persistence.NewWorkflowError("Delete", name, err)
	}

	removed := false

	for _, path := range fp.paths(name) {
		err := os.Remove(path)
		if err == nil {
			removed = true

			continue
		}

		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to delete workflow file: %w", err)
		}
	}

	if !removed {
		return persistence.NewWorkflowError("Delete", name, persistence.ErrWorkflowNotFound)
	}

	return nil
}

func (fp *Persistence) paths(name string) []string {
	paths := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		paths = append(paths, filepath.Join(fp.root, workflowsDir, name+ext))
	}

	return paths
}

// Read decodes the document at path, picking the codec from the extension.
func Read(path string) (*persistence.Document, error) {
	format, err := persistence.FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return persistence.Unmarshal(data, format)
}

// Write encodes doc to path through a temporary file and a rename.
func Write(path string, doc *persistence.Document) error {
	format, err := persistence.FormatFromPath(path)
	if err != nil {
		return err
	}

	data, err := persistence.Marshal(doc, format)
	if err != nil {
		return fmt.Errorf("failed to encode workflow: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write workflow file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)

		return fmt.Errorf("failed to write workflow file: %w", err)
	}

	return nil
}
