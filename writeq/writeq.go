// CLAUDE:SUMMARY Optimistic write queue with temp-ID rewriting and bounded retries.
// Package writeq queues annotation mutations so the UI can render them
// immediately and reconcile with the persistence layer later.
//
// Newly created annotations get a temporary local identifier so dependent
// operations (an update to, or a comment on, a just-created annotation) can
// be queued before the server has assigned the real one. Each operation is
// a small state machine:
//
//	pending → confirmed                  (send succeeded)
//	pending → retrying → pending         (send failed, attempts remain)
//	pending → retrying → abandoned       (retry ceiling exceeded)
//
// Confirming a create rewrites the temporary identifier to the
// server-assigned one across every queued operation that references it.
// Operations whose parent is still unconfirmed are deferred with a longer
// delay rather than failed: their precondition simply hasn't been met yet.
//
// Abandonment is non-fatal — the optimistic state is not rolled back; the
// OnAbandon hook surfaces a warning to whoever owns the UI.
package writeq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hazyhaar/pinmark/idgen"
)

// Kind classifies a queued mutation.
type Kind string

const (
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// State of a queued operation.
type State string

const (
	StatePending   State = "pending"
	StateRetrying  State = "retrying"
	StateConfirmed State = "confirmed"
	StateAbandoned State = "abandoned"
)

// tempPrefix marks locally assigned identifiers not yet confirmed by the
// persistence layer.
const tempPrefix = "tmp_"

var newTempID = idgen.Prefixed(tempPrefix, idgen.UUIDv7())

// TempID returns a fresh temporary annotation identifier.
func TempID() string {
	return newTempID()
}

// IsTempID reports whether id is a temporary local identifier.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, tempPrefix)
}

// Op is one queued mutation.
type Op struct {
	// ID identifies the operation itself.
	ID string
	// Kind of mutation.
	Kind Kind
	// AnnotationID is the annotation this op touches. Temporary for creates
	// until confirmed; rewritten in place when the parent create confirms.
	AnnotationID string
	// ParentID, when set, names an annotation this op depends on. While it
	// is still temporary the op is deferred, not sent.
	ParentID string
	// Payload is the serialized mutation body, opaque to the queue.
	Payload []byte

	State     State
	Attempts  int
	NotBefore time.Time
	CreatedAt time.Time
}

// Sender delivers one operation to the persistence layer. For creates it
// returns the server-assigned annotation identifier; for updates and
// deletes the returned ID is ignored.
type Sender interface {
	Send(ctx context.Context, op *Op) (realID string, err error)
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, op *Op) (string, error)

func (f SenderFunc) Send(ctx context.Context, op *Op) (string, error) { return f(ctx, op) }

// Options configures queue behaviour.
type Options struct {
	// MaxAttempts is the retry ceiling per operation. Default: 3.
	MaxAttempts int
	// RetryDelay is the fixed delay before a failed op is retried.
	// Default: 2s.
	RetryDelay time.Duration
	// DeferDelay is the delay before an op whose parent is unconfirmed is
	// looked at again. Longer than RetryDelay: the op itself did nothing
	// wrong. Default: 5s.
	DeferDelay time.Duration
	// PollInterval is the delay between dispatch passes in the Run loop.
	// Default: 500ms.
	PollInterval time.Duration
	// OnAbandon is called when an op exceeds the retry ceiling. Optional.
	OnAbandon func(op *Op, err error)
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 2 * time.Second
	}
	if o.DeferDelay <= 0 {
		o.DeferDelay = 5 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 500 * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Queue holds pending operations in FIFO order.
type Queue struct {
	mu      sync.Mutex
	ops     []*Op
	opts    Options
	sender  Sender
	journal *Journal // nil when not journaling
	now     func() time.Time
}

// New creates a queue. A nil journal keeps everything in memory.
func New(sender Sender, journal *Journal, opts Options) *Queue {
	opts.defaults()
	return &Queue{
		opts:    opts,
		sender:  sender,
		journal: journal,
		now:     time.Now,
	}
}

// Restore loads journaled operations into the queue. Call once at startup,
// before Enqueue or Run.
func (q *Queue) Restore(ctx context.Context) error {
	if q.journal == nil {
		return nil
	}
	ops, err := q.journal.Load(ctx)
	if err != nil {
		return fmt.Errorf("writeq: restore: %w", err)
	}
	q.mu.Lock()
	q.ops = append(q.ops, ops...)
	q.mu.Unlock()
	q.opts.Logger.Info("writeq: restored journaled ops", "count", len(ops))
	return nil
}

// Enqueue adds an operation. Missing fields are filled in: an op ID, the
// pending state, the created-at stamp.
func (q *Queue) Enqueue(ctx context.Context, op *Op) error {
	if op.AnnotationID == "" {
		return errors.New("writeq: op without annotation id")
	}
	if op.ID == "" {
		op.ID = idgen.New()
	}
	op.State = StatePending
	op.CreatedAt = q.now()

	q.mu.Lock()
	q.ops = append(q.ops, op)
	q.mu.Unlock()

	if q.journal != nil {
		if err := q.journal.Save(ctx, op); err != nil {
			return fmt.Errorf("writeq: journal: %w", err)
		}
	}
	return nil
}

// Len returns the number of queued (not yet confirmed or abandoned) ops.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Pending returns a snapshot of queued ops, oldest first.
func (q *Queue) Pending() []*Op {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*Op, len(q.ops))
	copy(out, q.ops)
	return out
}

// Run dispatches due operations until ctx is cancelled.
func (q *Queue) Run(ctx context.Context) {
	log := q.opts.Logger
	log.Info("writeq: dispatcher started",
		"max_attempts", q.opts.MaxAttempts,
		"retry_delay", q.opts.RetryDelay,
		"defer_delay", q.opts.DeferDelay,
	)

	ticker := time.NewTicker(q.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("writeq: dispatcher stopped", "pending", q.Len())
			return
		case <-ticker.C:
			q.Dispatch(ctx)
		}
	}
}

// Dispatch makes one pass over the queue, sending every due operation.
// Exposed so callers (and tests) can drive the queue without the Run loop.
func (q *Queue) Dispatch(ctx context.Context) {
	for _, op := range q.due() {
		q.dispatchOne(ctx, op)
	}
}

func (q *Queue) due() []*Op {
	now := q.now()
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*Op
	for _, op := range q.ops {
		if !op.NotBefore.After(now) {
			out = append(out, op)
		}
	}
	return out
}

func (q *Queue) dispatchOne(ctx context.Context, op *Op) {
	log := q.opts.Logger

	// Parent still unconfirmed: the op's precondition hasn't been met.
	// Defer with the longer delay; no attempt is charged.
	if op.ParentID != "" && IsTempID(op.ParentID) {
		q.mu.Lock()
		op.NotBefore = q.now().Add(q.opts.DeferDelay)
		q.mu.Unlock()
		q.persist(ctx, op)
		log.Debug("writeq: deferred, parent unconfirmed", "op", op.ID, "parent", op.ParentID)
		return
	}

	realID, err := q.sender.Send(ctx, op)
	if err != nil {
		q.fail(ctx, op, err)
		return
	}

	q.mu.Lock()
	op.State = StateConfirmed
	q.remove(op.ID)
	temp := ""
	if op.Kind == KindCreate && IsTempID(op.AnnotationID) {
		temp = op.AnnotationID
		q.rewrite(temp, realID)
	}
	q.mu.Unlock()

	if q.journal != nil {
		_ = q.journal.Delete(ctx, op.ID)
		if temp != "" {
			for _, dep := range q.Pending() {
				q.persist(ctx, dep)
			}
		}
	}
	if temp != "" {
		log.Info("writeq: create confirmed", "temp", temp, "real", realID)
	}
}

func (q *Queue) fail(ctx context.Context, op *Op, err error) {
	log := q.opts.Logger

	q.mu.Lock()
	op.State = StateRetrying
	op.Attempts++
	if op.Attempts >= q.opts.MaxAttempts {
		op.State = StateAbandoned
		q.remove(op.ID)
		q.mu.Unlock()

		if q.journal != nil {
			_ = q.journal.Delete(ctx, op.ID)
		}
		log.Warn("writeq: op abandoned", "op", op.ID, "kind", op.Kind, "attempts", op.Attempts, "error", err)
		if q.opts.OnAbandon != nil {
			q.opts.OnAbandon(op, err)
		}
		return
	}
	op.State = StatePending
	op.NotBefore = q.now().Add(q.opts.RetryDelay)
	q.mu.Unlock()

	q.persist(ctx, op)
	log.Warn("writeq: send failed, will retry", "op", op.ID, "attempt", op.Attempts, "error", err)
}

// rewrite replaces a confirmed temporary identifier wherever queued ops
// still reference it. Callers hold q.mu.
func (q *Queue) rewrite(temp, real string) {
	for _, op := range q.ops {
		if op.AnnotationID == temp {
			op.AnnotationID = real
		}
		if op.ParentID == temp {
			op.ParentID = real
		}
	}
}

// remove drops an op from the slice. Callers hold q.mu.
func (q *Queue) remove(id string) {
	for i, op := range q.ops {
		if op.ID == id {
			q.ops = append(q.ops[:i], q.ops[i+1:]...)
			return
		}
	}
}

func (q *Queue) persist(ctx context.Context, op *Op) {
	if q.journal == nil {
		return
	}
	if err := q.journal.Save(ctx, op); err != nil {
		q.opts.Logger.Warn("writeq: journal save failed", "op", op.ID, "error", err)
	}
}
