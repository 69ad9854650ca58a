// Package saga runs a sequence of gateway calls and undoes the completed
// ones when a later call fails.
package saga

import (
	"context"
	"errors"
	"fmt"
)

// Step is one call in a saga. Undo may be nil for steps with nothing to
// roll back.
type Step struct {
	Name string
	Do   func(ctx context.Context) error
	Undo func(ctx context.Context) error
}

type Saga struct {
	name  string
	steps []Step
}

func New(name string) *Saga {
	return &Saga{name: name}
}

func (s *Saga) Then(step Step) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// Run executes the steps in order. On failure the completed steps are undone
// in reverse and the returned error wraps the step's error, so errors.Is and
// errors.As still see it. Undo errors are joined in but never hide it.
func (s *Saga) Run(ctx context.Context) error {
	for i, step := range s.steps {
		if err := step.Do(ctx); err != nil {
			stepErr := fmt.Errorf("%s: %s: %w", s.name, step.Name, err)
			if undoErr := s.undo(ctx, i); undoErr != nil {
				return errors.Join(stepErr, undoErr)
			}
			return stepErr
		}
	}
	return nil
}

// undo rolls back steps[:n]. Rollback runs even if ctx was cancelled.
func (s *Saga) undo(ctx context.Context, n int) error {
	ctx = context.WithoutCancel(ctx)
	var errs []error
	for i := n - 1; i >= 0; i-- {
		step := s.steps[i]
		if step.Undo == nil {
			continue
		}
		if err := step.Undo(ctx); err != nil {
			errs = append(errs, fmt.Errorf("undo %s: %w", step.Name, err))
		}
	}
	return errors.Join(errs...)
}
