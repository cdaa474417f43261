// Package file stores flows as JSON files, one per agent.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/flowboard/pkg/domain"
)

// ErrInvalidAgentID is returned for ids that cannot be used as file names.
var ErrInvalidAgentID = errors.New("invalid agent id")

// Repository implements ports.FlowRepository on the local filesystem.
type Repository struct {
	BasePath string
}

// New creates a Repository rooted at basePath.
// If basePath is empty, it defaults to ".flowboard/flows".
func New(basePath string) *Repository {
	if basePath == "" {
		basePath = filepath.Join(".flowboard", "flows")
	}
	return &Repository{BasePath: basePath}
}

func (r *Repository) path(agentID string) (string, error) {
	if agentID == "" || agentID == "." || agentID == ".." || strings.ContainsAny(agentID, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAgentID, agentID)
	}
	return filepath.Join(r.BasePath, agentID+".json"), nil
}

// Save writes the document atomically: temp file, fsync, rename.
func (r *Repository) Save(ctx context.Context, agentID string, doc *domain.FlowDocument) error {
	destPath, err := r.path(agentID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(r.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure flow directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal flow: %w", err)
	}

	// Same directory so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(r.BasePath, "tmp-"+agentID+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// os.Rename does not replace an existing file on Windows.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove previous flow file: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Load reads the agent's flow file.
func (r *Repository) Load(ctx context.Context, agentID string) (*domain.FlowDocument, error) {
	filePath, err := r.path(agentID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrFlowNotFound
		}
		return nil, fmt.Errorf("failed to read flow file: %w", err)
	}

	var doc domain.FlowDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal flow: %w", err)
	}
	return &doc, nil
}

// Delete removes the agent's flow file. A missing file is not an error.
func (r *Repository) Delete(ctx context.Context, agentID string) error {
	filePath, err := r.path(agentID)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete flow file: %w", err)
	}
	return nil
}

// List returns the ids of all stored flows.
func (r *Repository) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(r.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}

	agents := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "tmp-") {
			continue
		}
		agents = append(agents, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(agents)
	return agents, nil
}
