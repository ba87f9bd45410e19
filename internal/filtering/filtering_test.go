package filtering

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/match-engine/internal/domain"
)

func jobIDs(jobs []domain.Job) []string {
	ids := make([]string, 0, len(jobs))
	for _, j := range jobs {
		ids = append(ids, j.ID)
	}
	return ids
}

func TestOpenJobsFilter(t *testing.T) {
	jobs := []domain.Job{
		{ID: "1", Status: "open"},
		{ID: "2", Status: "closed"},
		{ID: "3", Status: "Open"},
	}

	kept, step, err := NewOpenJobs().Apply(context.Background(), jobs)

	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, jobIDs(kept))
	assert.Equal(t, Step{Initial: 3, Dropped: 1, Left: 2}, step)
}

func TestRegionFilterMatchesLocationOrRegion(t *testing.T) {
	jobs := []domain.Job{
		{ID: "1", Location: "Dubai Marina"},
		{ID: "2", Location: "Remote", Region: "Dubai"},
		{ID: "3", Location: "Abu Dhabi"},
	}

	kept, step, err := NewRegion[domain.Job](" dubai ").Apply(context.Background(), jobs)

	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, jobIDs(kept))
	assert.Equal(t, 1, step.Dropped)
}

func TestRegionFilterDisabledWithoutRegion(t *testing.T) {
	f := NewRegion[domain.Profile]("")
	assert.False(t, f.IsEnabled())
	assert.Equal(t, "no region requested", Describe(f).Reason)
}

func TestExcludeFilter(t *testing.T) {
	profiles := []domain.Profile{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	kept, step, err := NewExclude[domain.Profile]([]string{"b", " "}).Apply(context.Background(), profiles)

	require.NoError(t, err)
	assert.Len(t, kept, 2)
	assert.Equal(t, Step{Initial: 3, Dropped: 1, Left: 2}, step)
	assert.Equal(t, "1", Describe(NewExclude[domain.Profile]([]string{"b"})).Details["ids"])
}

func TestExcludeFileFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "excluded.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"items":[{"id":"2","reason":"filled offline"}]}`), 0o600))

	jobs := []domain.Job{{ID: "1"}, {ID: "2"}}
	kept, step, err := NewExcludeFile[domain.Job](path).Apply(context.Background(), jobs)

	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, jobIDs(kept))
	assert.Equal(t, 1, step.Dropped)
}

func TestExcludeFileEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	excluded, err := LoadExcludeFile(path)

	require.NoError(t, err)
	assert.Empty(t, excluded.IDs())
}

func TestExcludeFileMissing(t *testing.T) {
	_, _, err := NewExcludeFile[domain.Job](filepath.Join(t.TempDir(), "missing.json")).Apply(context.Background(), nil)
	assert.Error(t, err)
}

func TestRunSkipsDisabledAndLogsSteps(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	jobs := []domain.Job{
		{ID: "1", Status: "open", Location: "Dubai"},
		{ID: "2", Status: "closed", Location: "Dubai"},
		{ID: "3", Status: "open", Location: "Sharjah"},
	}

	steps := []Filter[domain.Job]{
		NewOpenJobs(),
		NewRegion[domain.Job]("dubai"),
		NewExclude[domain.Job](nil),
	}

	kept, err := Run(context.Background(), zap.New(core), steps, jobs)

	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, jobIDs(kept))
	assert.Equal(t, 2, logs.FilterMessage("filter step").Len())
	assert.Equal(t, 1, logs.FilterMessage("filter disabled").Len())
}

func TestRunWrapsStepErrors(t *testing.T) {
	steps := []Filter[domain.Job]{NewExcludeFile[domain.Job]("/nonexistent/excluded.json")}

	_, err := Run(context.Background(), nil, steps, []domain.Job{{ID: "1"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "exclude_file:")
}
