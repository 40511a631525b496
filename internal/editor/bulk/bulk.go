// Package bulk runs per-block operations over a selection in chunks, so a large
// selection never holds the session loop for long.
package bulk

import (
	"context"
	"errors"
	"fmt"

	"voxeledit.ai/internal/editor/geom"
	"voxeledit.ai/internal/editor/selection"
	"voxeledit.ai/internal/editor/txn"
)

var ErrLoopClosed = errors.New("session loop closed")

const DefaultChunkSize = 256

// Poster schedules work on the session loop.
type Poster interface {
	Post(fn func()) bool
	Done() <-chan struct{}
}

type Failure struct {
	Pos geom.Vec3i
	Err error
}

// Result is the outcome of one operation. Err is set when iteration stopped early
// (cancellation, panic, closed loop); per-block errors land in Failed.
type Result struct {
	Total     int
	Processed int
	Failed    []Failure
	Err       error
}

func (r Result) OK() bool { return r.Err == nil && len(r.Failed) == 0 }

type Operation struct {
	Name   string
	done   chan struct{}
	result Result
}

func (o *Operation) Done() <-chan struct{} { return o.done }

// Result is only meaningful after Done is closed.
func (o *Operation) Result() Result { return o.result }

type Runner struct {
	loop  Poster
	txns  *txn.Manager
	chunk int
}

func NewRunner(loop Poster, txns *txn.Manager, chunkSize int) *Runner {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Runner{loop: loop, txns: txns, chunk: chunkSize}
}

// Execute snapshots sel's blocks, opens a transaction and applies fn to every block.
// Each chunk runs on the loop; finally runs on the loop exactly once when the
// operation settles, whatever the outcome. If the loop closes first, finally is
// skipped and the operation completes with ErrLoopClosed.
//
// Execute must be called from the loop.
func (r *Runner) Execute(ctx context.Context, name string, sel *selection.Selection, fn func(geom.Vec3i) error, finally func(Result)) *Operation {
	blocks := sel.Blocks()
	if r.txns != nil {
		r.txns.Open(name)
	}
	op := &Operation{Name: name, done: make(chan struct{})}
	op.result.Total = len(blocks)
	go r.work(ctx, op, blocks, fn, finally)
	return op
}

func (r *Runner) work(ctx context.Context, op *Operation, blocks []geom.Vec3i, fn func(geom.Vec3i) error, finally func(Result)) {
	for start := 0; start < len(blocks); start += r.chunk {
		if err := ctx.Err(); err != nil {
			r.finalize(op, finally, fmt.Errorf("bulk %s: %w", op.Name, err))
			return
		}
		chunk := blocks[start:min(start+r.chunk, len(blocks))]
		ran := make(chan struct{})
		if !r.loop.Post(func() {
			defer close(ran)
			r.runChunk(op, chunk, fn)
		}) {
			r.abandon(op)
			return
		}
		select {
		case <-ran:
		case <-r.loop.Done():
			r.abandon(op)
			return
		}
		// Safe to read: ran was closed by the loop after runChunk returned.
		if op.result.Err != nil {
			r.finalize(op, finally, nil)
			return
		}
	}
	r.finalize(op, finally, nil)
}

func (r *Runner) runChunk(op *Operation, chunk []geom.Vec3i, fn func(geom.Vec3i) error) {
	var cur geom.Vec3i
	defer func() {
		if v := recover(); v != nil {
			op.result.Err = fmt.Errorf("bulk %s: panic at %v: %v", op.Name, cur, v)
		}
	}()
	for _, p := range chunk {
		cur = p
		op.result.Processed++
		if err := fn(p); err != nil {
			op.result.Failed = append(op.result.Failed, Failure{Pos: p, Err: err})
		}
	}
}

func (r *Runner) finalize(op *Operation, finally func(Result), err error) {
	fin := make(chan struct{})
	ok := r.loop.Post(func() {
		defer close(fin)
		if err != nil && op.result.Err == nil {
			op.result.Err = err
		}
		if finally != nil {
			finally(op.result)
		}
	})
	if !ok {
		r.abandon(op)
		return
	}
	select {
	case <-fin:
	case <-r.loop.Done():
		select {
		case <-fin:
		default:
			r.abandon(op)
			return
		}
	}
	close(op.done)
}

func (r *Runner) abandon(op *Operation) {
	<-r.loop.Done()
	if op.result.Err == nil {
		op.result.Err = ErrLoopClosed
	}
	close(op.done)
}
