package filtering

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spigell/match-engine/internal/domain"
)

// ExcludedEntities is the on-disk format of an exclude file.
type ExcludedEntities struct {
	Items []ExcludedEntity `json:"items"`
}

// ExcludedEntity is a single suppressed candidate.
type ExcludedEntity struct {
	ID     string `json:"id"`
	Reason string `json:"reason,omitempty"`
}

// IDs returns the identifiers of all excluded entities.
func (e *ExcludedEntities) IDs() []string {
	ids := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

// LoadExcludeFile reads an exclude file. An empty file excludes nothing.
func LoadExcludeFile(path string) (*ExcludedEntities, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &ExcludedEntities{}, nil
	}

	var excluded ExcludedEntities
	if err := json.NewDecoder(file).Decode(&excluded); err != nil {
		return nil, err
	}
	return &excluded, nil
}

type excludeFileFilter[T domain.Entity] struct {
	toggle
	path string
}

// NewExcludeFile creates a filter that removes candidates listed in an
// exclude file. The file is read on every Apply so edits apply immediately.
func NewExcludeFile[T domain.Entity](path string) Filter[T] {
	f := &excludeFileFilter[T]{path: path}
	if path == "" {
		f.Disable("no exclude file configured")
	}
	return f
}

func (f *excludeFileFilter[T]) Name() string { return "exclude_file" }

func (f *excludeFileFilter[T]) Apply(ctx context.Context, items []T) ([]T, Step, error) {
	excluded, err := LoadExcludeFile(f.path)
	if err != nil {
		return items, Step{}, fmt.Errorf("getting excluded entities from file: %w", err)
	}

	return NewExclude[T](excluded.IDs()).Apply(ctx, items)
}

func (f *excludeFileFilter[T]) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"path": f.path},
	}
}
