package filtering

import (
	"context"
	"strconv"
	"strings"

	"github.com/spigell/match-engine/internal/domain"
)

type openJobsFilter struct {
	toggle
}

// NewOpenJobs creates a filter that removes jobs which are not open.
func NewOpenJobs() Filter[domain.Job] {
	return &openJobsFilter{}
}

func (f *openJobsFilter) Name() string { return "open_jobs" }

func (f *openJobsFilter) Apply(_ context.Context, jobs []domain.Job) ([]domain.Job, Step, error) {
	kept, dropped := keep(jobs, domain.Job.IsOpen)
	return kept, Step{Initial: len(jobs), Dropped: len(dropped), Left: len(kept)}, nil
}

func (f *openJobsFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}

type regionFilter[T domain.Entity] struct {
	toggle
	region string
}

// NewRegion creates a filter that keeps candidates located in region, for
// example an emirate. An empty region disables the filter.
func NewRegion[T domain.Entity](region string) Filter[T] {
	f := &regionFilter[T]{region: strings.ToLower(strings.TrimSpace(region))}
	if f.region == "" {
		f.Disable("no region requested")
	}
	return f
}

func (f *regionFilter[T]) Name() string { return "region" }

func (f *regionFilter[T]) Apply(_ context.Context, items []T) ([]T, Step, error) {
	kept, dropped := keep(items, func(item T) bool {
		for _, place := range item.Places() {
			if strings.Contains(strings.ToLower(place), f.region) {
				return true
			}
		}
		return false
	})
	return kept, Step{Initial: len(items), Dropped: len(dropped), Left: len(kept)}, nil
}

func (f *regionFilter[T]) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"region": f.region},
	}
}

type excludeFilter[T domain.Entity] struct {
	toggle
	ids map[string]struct{}
}

// NewExclude creates a filter that removes candidates with the given IDs.
func NewExclude[T domain.Entity](ids []string) Filter[T] {
	f := &excludeFilter[T]{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			f.ids[id] = struct{}{}
		}
	}
	if len(f.ids) == 0 {
		f.Disable("nothing to exclude")
	}
	return f
}

func (f *excludeFilter[T]) Name() string { return "exclude" }

func (f *excludeFilter[T]) Apply(_ context.Context, items []T) ([]T, Step, error) {
	kept, dropped := keep(items, func(item T) bool {
		_, excluded := f.ids[item.EntityID()]
		return !excluded
	})
	return kept, Step{Initial: len(items), Dropped: len(dropped), Left: len(kept)}, nil
}

func (f *excludeFilter[T]) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"ids": strconv.Itoa(len(f.ids))},
	}
}
