package pipeline

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/askiada/go-gridcore/pkg/pipeline/model"
)

// Params carries contextual metadata to the stages of a run. It may be nil.
type Params map[string]any

// Stage transforms the accumulator of a pipeline.
type Stage[V any] func(ctx context.Context, value V, params Params) (V, error)

// Disposer removes the registration that returned it.
type Disposer func()

type anyStage func(ctx context.Context, value any, params Params) (any, error)

type entry struct {
	id    string
	token uuid.UUID
	fn    anyStage
}

// call runs the stage and turns a panic into an error.
func (e *entry) call(ctx context.Context, value any, params Params) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = errors.Wrapf(ErrStagePanicked, "%v", r)
		}
	}()

	return e.fn(ctx, value, params)
}

// Pipeline is the registration table of every named pipeline of a grid instance.
// It is safe for concurrent use.
type Pipeline struct {
	mu     sync.RWMutex
	tables map[Name][]*entry

	opts     []model.PipelineOption
	reporter Reporter
	logger   *zap.Logger

	done        chan struct{}
	disposeOnce sync.Once
}

// New creates an empty pipeline.
func New(opts ...Option) (*Pipeline, error) {
	pipe := &Pipeline{
		tables:   make(map[Name][]*entry),
		reporter: nopReporter{},
		logger:   zap.NewNop(),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(pipe)
	}

	for _, opt := range pipe.opts {
		err := opt.New()
		if err != nil {
			return nil, errors.Wrap(err, "unable to apply pipeline option")
		}
	}

	return pipe, nil
}

var stageIDPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.:/-]*$`)

func validateStageID(id string) error {
	if !stageIDPattern.MatchString(id) {
		return errors.Wrapf(ErrInvalidStageID, "%q", id)
	}

	return nil
}

// Disposed reports whether Dispose was called.
func (p *Pipeline) Disposed() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Dispose tears the pipeline down. Pending asynchronous runs are dropped and
// every later registration or run fails with ErrDisposed. Calling it again is a no-op.
//
// Every pipeline option is finished, the returned error combines their failures.
func (p *Pipeline) Dispose() error {
	var err error

	p.disposeOnce.Do(func() {
		close(p.done)

		p.mu.Lock()
		p.tables = make(map[Name][]*entry)
		p.mu.Unlock()

		for _, opt := range p.opts {
			if optErr := opt.Finish(); optErr != nil {
				err = multierr.Append(err, errors.Wrap(optErr, "unable to finish pipeline option"))
			}
		}

		p.logger.Debug("pipeline disposed", zap.Int("finishErrors", len(multierr.Errors(err))))
	})

	return err
}

// reject reports err and returns it.
func (p *Pipeline) reject(op string, err error) error {
	p.reporter.Report(op, err)
	p.logger.Debug("pipeline operation rejected", zap.String("op", op), zap.Error(err))

	return err
}

func (p *Pipeline) register(name Name, id string, fn anyStage) (Disposer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Checked under the lock so that no registration lands after Dispose cleared the tables.
	if p.Disposed() {
		return nil, ErrDisposed
	}

	entries := p.tables[name]
	position := len(entries)
	for i, e := range entries {
		if e.id == id {
			position = i
			break
		}
	}
	info := &model.StageInfo{
		Pipeline: string(name),
		ID:       id,
		Position: position,
		Replaced: position < len(entries),
	}
	for _, opt := range p.opts {
		if err := opt.OnRegister(info); err != nil {
			return nil, errors.Wrap(err, "unable to prepare stage")
		}
	}

	// A new entry, not an update of the old one, so running snapshots keep the old function.
	e := &entry{id: id, token: uuid.New(), fn: fn}
	if info.Replaced {
		p.tables[name] = replaceAt(entries, position, e)
	} else {
		p.tables[name] = append(entries, e)
	}

	p.logger.Debug("stage registered",
		zap.String("pipeline", string(name)),
		zap.String("stage", id),
		zap.Int("position", position),
		zap.Bool("replaced", info.Replaced),
	)

	var once sync.Once

	return func() {
		once.Do(func() {
			p.unregister(name, id, e.token)
		})
	}, nil
}

func replaceAt(entries []*entry, i int, e *entry) []*entry {
	res := make([]*entry, len(entries))
	copy(res, entries)
	res[i] = e

	return res
}

// unregister removes the stage only if it still holds the registration token.
func (p *Pipeline) unregister(name Name, id string, token uuid.UUID) {
	if p.Disposed() {
		_ = p.reject("pipeline.unregister", errors.Wrapf(ErrDisposed, "stage %s/%s", name, id))
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	entries := p.tables[name]
	for i, e := range entries {
		if e.id != id || e.token != token {
			continue
		}

		res := make([]*entry, 0, len(entries)-1)
		res = append(res, entries[:i]...)
		res = append(res, entries[i+1:]...)
		p.tables[name] = res

		info := &model.StageInfo{Pipeline: string(name), ID: id, Position: i}
		for _, opt := range p.opts {
			if err := opt.OnUnregister(info); err != nil {
				p.reporter.Report("pipeline.unregister", errors.Wrap(err, "unable to release stage"))
			}
		}

		p.logger.Debug("stage unregistered", zap.String("pipeline", string(name)), zap.String("stage", id))

		return
	}
}

// snapshot returns the current entries of a pipeline. The returned slice is never mutated.
func (p *Pipeline) snapshot(name Name) []*entry {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.tables[name]
}

func (p *Pipeline) onStageOutput(name Name, position int, e *entry, elapsed time.Duration) error {
	if len(p.opts) == 0 {
		return nil
	}

	info := &model.StageInfo{Pipeline: string(name), ID: e.id, Position: position}
	for _, opt := range p.opts {
		if err := opt.OnStageOutput(info, elapsed); err != nil {
			return errors.Wrapf(err, "unable to record output of stage %s", info.FullName())
		}
	}

	return nil
}

// Register adds fn to the pipeline identified by key, or replaces the function of the
// stage already registered with the same id while keeping its position.
//
// The returned disposer is never nil. It removes this registration only, and does nothing
// once the stage was replaced by a later registration. Rejected registrations are reported
// and leave the table unchanged.
func Register[V any](p *Pipeline, key Key[V], id string, fn Stage[V]) (Disposer, error) {
	noop := Disposer(func() {})

	if p == nil {
		return noop, ErrPipelineMustBeSet
	}

	const op = "pipeline.register"

	if p.Disposed() {
		return noop, p.reject(op, errors.Wrapf(ErrDisposed, "stage %s/%s", key.name, id))
	}
	if err := checkKey(key); err != nil {
		return noop, p.reject(op, errors.Wrapf(err, "%q", key.name))
	}
	if err := validateStageID(id); err != nil {
		return noop, p.reject(op, errors.Wrapf(err, "pipeline %s", key.name))
	}
	if fn == nil {
		return noop, p.reject(op, errors.Wrapf(ErrStageMustBeSet, "stage %s/%s", key.name, id))
	}

	dispose, err := p.register(key.name, id, func(ctx context.Context, value any, params Params) (any, error) {
		return fn(ctx, value.(V), params)
	})
	if err != nil {
		return noop, p.reject(op, errors.Wrapf(err, "stage %s/%s", key.name, id))
	}

	return dispose, nil
}

// Stages describes the registration table of the pipeline identified by key, in run order.
func Stages[V any](p *Pipeline, key Key[V]) []model.StageInfo {
	return p.describe(key.name)
}

func (p *Pipeline) describe(name Name) []model.StageInfo {
	entries := p.snapshot(name)
	res := make([]model.StageInfo, len(entries))
	for i, e := range entries {
		res[i] = model.StageInfo{Pipeline: string(name), ID: e.id, Position: i}
	}

	return res
}

// Tables describes every non-empty registration table, sorted by pipeline name.
func (p *Pipeline) Tables() []model.TableInfo {
	p.mu.RLock()
	names := make([]Name, 0, len(p.tables))
	for name, entries := range p.tables {
		if len(entries) > 0 {
			names = append(names, name)
		}
	}
	p.mu.RUnlock()

	sort.Slice(names, func(i, j int) bool {
		return names[i] < names[j]
	})

	res := make([]model.TableInfo, 0, len(names))
	for _, name := range names {
		res = append(res, model.TableInfo{Name: string(name), Stages: p.describe(name)})
	}

	return res
}

// String lists the tables, one pipeline per line.
func (p *Pipeline) String() string {
	var sb strings.Builder
	for _, table := range p.Tables() {
		sb.WriteString(table.Name)
		sb.WriteString(":")
		for _, stage := range table.Stages {
			sb.WriteString(" ")
			sb.WriteString(stage.ID)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
