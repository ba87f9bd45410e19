// Package filtering narrows a candidate set before it is scored.
package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/match-engine/internal/domain"
)

// Filter represents a single filtering step applied to candidates.
type Filter[T domain.Entity] interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Apply(ctx context.Context, items []T) ([]T, Step, error)
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

type statusProvider interface {
	Status() Status
}

// Run executes the supplied filters sequentially and returns what is left.
func Run[T domain.Entity](ctx context.Context, logger *zap.Logger, steps []Filter[T], items []T) ([]T, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			logger.Debug("filter disabled", zap.String("name", step.Name()), zap.String("reason", Describe(step).Reason))
			continue
		}

		next, info, err := step.Apply(ctx, items)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		logger.Debug("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		items = next
	}

	return items, nil
}

// Describe returns the status of a filter.
func Describe[T domain.Entity](step Filter[T]) Status {
	if reporter, ok := step.(statusProvider); ok {
		return reporter.Status()
	}
	return Status{Name: step.Name(), Enabled: step.IsEnabled()}
}

// keep returns the items accepted by fn, in order, and the IDs of the rest.
func keep[T domain.Entity](items []T, fn func(T) bool) ([]T, []string) {
	kept := make([]T, 0, len(items))
	var dropped []string
	for _, item := range items {
		if fn(item) {
			kept = append(kept, item)
			continue
		}
		dropped = append(dropped, item.EntityID())
	}
	return kept, dropped
}

// toggle is embedded by filters that can be switched off at runtime.
type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }
