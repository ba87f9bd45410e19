// Package memory is an in-process profile and job store.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/spigell/match-engine/internal/domain"
)

// Fixture is the file format accepted by Load.
type Fixture struct {
	Profiles []domain.Profile `mapstructure:"profiles"`
	Jobs     []domain.Job     `mapstructure:"jobs"`
}

// Store keeps profiles and jobs in insertion order.
type Store struct {
	mu       sync.RWMutex
	profiles []domain.Profile
	jobs     []domain.Job
}

func New(profiles []domain.Profile, jobs []domain.Job) *Store {
	s := &Store{}
	for _, p := range profiles {
		s.PutProfile(p)
	}
	for _, j := range jobs {
		s.PutJob(j)
	}
	return s
}

// Load reads a YAML, JSON or TOML fixture file.
func Load(path string) (*Store, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading fixture %q: %w", path, err)
	}

	var fixture Fixture
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &fixture,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(map[string]any{
		"profiles": v.Get("profiles"),
		"jobs":     v.Get("jobs"),
	}); err != nil {
		return nil, fmt.Errorf("decoding fixture %q: %w", path, err)
	}

	return New(fixture.Profiles, fixture.Jobs), nil
}

// PutProfile inserts or replaces a profile.
func (s *Store) PutProfile(p domain.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.profiles {
		if s.profiles[i].ID == p.ID {
			s.profiles[i] = p
			return
		}
	}
	s.profiles = append(s.profiles, p)
}

// PutJob inserts or replaces a job.
func (s *Store) PutJob(j domain.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.jobs {
		if s.jobs[i].ID == j.ID {
			s.jobs[i] = j
			return
		}
	}
	s.jobs = append(s.jobs, j)
}

func (s *Store) GetProfile(_ context.Context, id string) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.profiles {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, nil
}

func (s *Store) ListProfiles(_ context.Context, limit int) ([]domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return head(s.profiles, limit), nil
}

func (s *Store) GetJob(_ context.Context, id string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, j := range s.jobs {
		if j.ID == id {
			return &j, nil
		}
	}
	return nil, nil
}

func (s *Store) ListOpenJobs(_ context.Context, limit int) ([]domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	open := make([]domain.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		if j.IsOpen() {
			open = append(open, j)
		}
	}
	return head(open, limit), nil
}

// head copies at most limit items. A non-positive limit copies everything.
func head[T any](items []T, limit int) []T {
	if limit <= 0 || limit > len(items) {
		limit = len(items)
	}
	out := make([]T, limit)
	copy(out, items[:limit])
	return out
}
