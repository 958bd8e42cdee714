package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// prepareRun validates a run and returns the stages to apply.
func prepareRun[V any](p *Pipeline, op string, key Key[V]) ([]*entry, error) {
	if p == nil {
		return nil, ErrPipelineMustBeSet
	}
	if p.Disposed() {
		return nil, p.reject(op, errors.Wrapf(ErrDisposed, "pipeline %s", key.name))
	}
	if err := checkKey(key); err != nil {
		return nil, p.reject(op, errors.Wrapf(err, "%q", key.name))
	}

	return p.snapshot(key.name), nil
}

// checkRun is called before every stage.
func (p *Pipeline) checkRun(ctx context.Context, name Name, position int) error {
	if p.Disposed() {
		return errors.Wrapf(ErrDisposed, "run of %s dropped before stage %d", name, position)
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrapf(err, "run of %s cancelled before stage %d", name, position)
	}

	return nil
}

// Run applies every stage of the pipeline identified by key to initial, in table order,
// feeding each output to the next stage. A pipeline without stages returns initial.
//
// The table is read once when the run starts: stages registered or removed during the
// run only affect later runs. The first failing stage aborts the run with a *StageError
// and the zero value is returned.
func Run[V any](ctx context.Context, p *Pipeline, key Key[V], initial V, params Params) (V, error) {
	var zero V

	entries, err := prepareRun(p, "pipeline.run", key)
	if err != nil {
		return zero, err
	}

	var acc any = initial
	for i, e := range entries {
		if err := p.checkRun(ctx, key.name, i); err != nil {
			return zero, err
		}

		start := time.Now()
		out, err := e.call(ctx, acc, params)
		if err != nil {
			return zero, &StageError{Pipeline: key.name, StageID: e.id, Position: i, Err: err}
		}
		if err := p.onStageOutput(key.name, i, e, time.Since(start)); err != nil {
			return zero, err
		}
		acc = out
	}

	if len(entries) > 0 {
		p.logger.Debug("pipeline run", zap.String("pipeline", string(key.name)), zap.Int("stages", len(entries)))
	}

	return acc.(V), nil
}

// Pending is the result of an asynchronous run.
type Pending[V any] struct {
	done  chan struct{}
	value V
	err   error
}

func (r *Pending[V]) resolve(value V, err error) {
	r.value = value
	r.err = err
	close(r.done)
}

// Done is closed once the run resolved.
func (r *Pending[V]) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run resolved and returns its result.
func (r *Pending[V]) Wait() (V, error) {
	<-r.done

	return r.value, r.err
}

type stageResult struct {
	out any
	err error
}

// RunAsync behaves like Run but returns immediately. Each stage runs on its own goroutine
// and the next stage starts only once the previous one produced its value.
//
// When ctx is cancelled or the pipeline is disposed while a stage is pending, the stage
// output is dropped, no further stage starts and the run resolves with the cancellation
// error or ErrDisposed.
func RunAsync[V any](ctx context.Context, p *Pipeline, key Key[V], initial V, params Params) *Pending[V] {
	var zero V
	pending := &Pending[V]{done: make(chan struct{})}

	entries, err := prepareRun(p, "pipeline.runAsync", key)
	if err != nil {
		pending.resolve(zero, err)
		return pending
	}

	go func() {
		var acc any = initial
		for i, e := range entries {
			if err := p.checkRun(ctx, key.name, i); err != nil {
				pending.resolve(zero, err)
				return
			}

			in := acc
			start := time.Now()
			// buffered so that a dropped stage does not leak its goroutine
			resC := make(chan stageResult, 1)
			go func() {
				out, err := e.call(ctx, in, params)
				resC <- stageResult{out: out, err: err}
			}()

			select {
			case <-p.done:
				pending.resolve(zero, errors.Wrapf(ErrDisposed, "run of %s dropped during stage %d", key.name, i))
				return
			case <-ctx.Done():
				pending.resolve(zero, errors.Wrapf(ctx.Err(), "run of %s cancelled during stage %d", key.name, i))
				return
			case res := <-resC:
				if res.err != nil {
					pending.resolve(zero, &StageError{Pipeline: key.name, StageID: e.id, Position: i, Err: res.err})
					return
				}
				if err := p.onStageOutput(key.name, i, e, time.Since(start)); err != nil {
					pending.resolve(zero, err)
					return
				}
				acc = res.out
			}
		}

		pending.resolve(acc.(V), nil)
	}()

	return pending
}

// RunEach applies the pipeline identified by key to every value independently, with at
// most concurrency runs in flight. Results keep the order of values. The first error
// cancels the remaining runs and is returned.
func RunEach[V any](ctx context.Context, p *Pipeline, key Key[V], values []V, params Params, concurrency int) ([]V, error) {
	if _, err := prepareRun(p, "pipeline.runEach", key); err != nil {
		return nil, err
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	res := make([]V, len(values))
	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.SetLimit(concurrency)

	for i, value := range values {
		localIdx, localValue := i, value
		errGrp.Go(func() error {
			out, err := Run(dCtx, p, key, localValue, params)
			if err != nil {
				return errors.Wrapf(err, "value %d", localIdx)
			}
			res[localIdx] = out

			return nil
		})
	}

	if err := errGrp.Wait(); err != nil {
		return nil, err
	}

	return res, nil
}
