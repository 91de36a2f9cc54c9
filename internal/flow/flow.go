// Package flow runs a workflow as an ordered chain of guard steps over an
// explicit state value. The first step that fails ends the chain and its
// error is the chain's result; later steps never run.
package flow

import "context"

type Step[S any] func(ctx context.Context, st *S) error

func Run[S any](ctx context.Context, st *S, steps ...Step[S]) error {
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step(ctx, st); err != nil {
			return err
		}
	}
	return nil
}
