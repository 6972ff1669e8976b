package writeq

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"
)

func openMemoryJournal(t *testing.T) *Journal {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	j, err := NewJournal(db)
	if err != nil {
		t.Fatal(err)
	}
	return j
}

// frozenClock lets tests advance queue time without sleeping.
type frozenClock struct{ t time.Time }

func (c *frozenClock) now() time.Time          { return c.t }
func (c *frozenClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestQueue(sender Sender, j *Journal, opts Options) (*Queue, *frozenClock) {
	q := New(sender, j, opts)
	clk := &frozenClock{t: time.Unix(1000, 0)}
	q.now = clk.now
	return q, clk
}

func TestTempIDRewriteOnConfirm(t *testing.T) {
	ctx := context.Background()
	temp := TempID()
	if !IsTempID(temp) {
		t.Fatalf("TempID %q not recognized as temporary", temp)
	}

	var sent []string
	sender := SenderFunc(func(ctx context.Context, op *Op) (string, error) {
		sent = append(sent, op.ID)
		if op.Kind == KindCreate {
			return "ann-42", nil
		}
		return "", nil
	})
	q, clk := newTestQueue(sender, nil, Options{})

	create := &Op{ID: "op-1", Kind: KindCreate, AnnotationID: temp}
	update := &Op{ID: "op-2", Kind: KindUpdate, AnnotationID: temp, ParentID: temp}
	if err := q.Enqueue(ctx, create); err != nil {
		t.Fatal(err)
	}
	if err := q.Enqueue(ctx, update); err != nil {
		t.Fatal(err)
	}

	// The create confirms first and rewrites the dependent in place, so
	// the update goes out with real identifiers.
	q.Dispatch(ctx)
	if update.AnnotationID != "ann-42" || update.ParentID != "ann-42" {
		t.Fatalf("dependent not rewritten: %+v", update)
	}

	clk.advance(10 * time.Second)
	q.Dispatch(ctx)
	if q.Len() != 0 {
		t.Errorf("queue not drained: %d ops left", q.Len())
	}
	if len(sent) != 2 || sent[0] != "op-1" || sent[1] != "op-2" {
		t.Errorf("send order %v", sent)
	}
}

func TestDeferWhileParentUnconfirmed(t *testing.T) {
	ctx := context.Background()
	temp := TempID()

	sender := SenderFunc(func(ctx context.Context, op *Op) (string, error) {
		t.Fatalf("op %s sent while parent unconfirmed", op.ID)
		return "", nil
	})
	q, clk := newTestQueue(sender, nil, Options{DeferDelay: 5 * time.Second})

	op := &Op{Kind: KindUpdate, AnnotationID: temp, ParentID: temp}
	if err := q.Enqueue(ctx, op); err != nil {
		t.Fatal(err)
	}

	q.Dispatch(ctx)
	if op.Attempts != 0 {
		t.Errorf("deferral charged an attempt: %d", op.Attempts)
	}
	if !op.NotBefore.Equal(clk.t.Add(5 * time.Second)) {
		t.Errorf("NotBefore = %v, want now+5s", op.NotBefore)
	}

	// Still within the deferral window: nothing is due.
	clk.advance(time.Second)
	q.Dispatch(ctx)
	if q.Len() != 1 {
		t.Errorf("op disappeared during deferral")
	}
}

func TestRetryThenConfirm(t *testing.T) {
	ctx := context.Background()

	calls := 0
	sender := SenderFunc(func(ctx context.Context, op *Op) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("boom")
		}
		return "", nil
	})
	q, clk := newTestQueue(sender, nil, Options{MaxAttempts: 3, RetryDelay: 2 * time.Second})

	op := &Op{Kind: KindDelete, AnnotationID: "ann-7"}
	if err := q.Enqueue(ctx, op); err != nil {
		t.Fatal(err)
	}

	q.Dispatch(ctx)
	if op.State != StatePending || op.Attempts != 1 {
		t.Fatalf("after failure: state=%s attempts=%d", op.State, op.Attempts)
	}

	// Not due yet.
	q.Dispatch(ctx)
	if calls != 1 {
		t.Fatalf("retried before the delay elapsed")
	}

	clk.advance(2 * time.Second)
	q.Dispatch(ctx)
	if calls != 2 || q.Len() != 0 {
		t.Errorf("calls=%d len=%d, want 2 and 0", calls, q.Len())
	}
}

func TestAbandonAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()

	sender := SenderFunc(func(ctx context.Context, op *Op) (string, error) {
		return "", errors.New("persistent failure")
	})
	var abandoned *Op
	q, clk := newTestQueue(sender, nil, Options{
		MaxAttempts: 3,
		RetryDelay:  time.Second,
		OnAbandon:   func(op *Op, err error) { abandoned = op },
	})

	op := &Op{Kind: KindUpdate, AnnotationID: "ann-9"}
	if err := q.Enqueue(ctx, op); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		q.Dispatch(ctx)
		clk.advance(time.Second)
	}

	if abandoned == nil {
		t.Fatal("OnAbandon never called")
	}
	if abandoned.State != StateAbandoned || abandoned.Attempts != 3 {
		t.Errorf("state=%s attempts=%d", abandoned.State, abandoned.Attempts)
	}
	if q.Len() != 0 {
		t.Errorf("abandoned op still queued")
	}
}

func TestJournalSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	j := openMemoryJournal(t)

	fail := SenderFunc(func(ctx context.Context, op *Op) (string, error) {
		return "", errors.New("offline")
	})
	q1, _ := newTestQueue(fail, j, Options{MaxAttempts: 5})
	op := &Op{ID: "op-j", Kind: KindCreate, AnnotationID: TempID(), Payload: []byte(`{"x":1}`)}
	if err := q1.Enqueue(ctx, op); err != nil {
		t.Fatal(err)
	}
	q1.Dispatch(ctx) // fails, journaled with attempts=1

	// A second queue over the same journal sees the op again, due now.
	ok := SenderFunc(func(ctx context.Context, op *Op) (string, error) { return "ann-1", nil })
	q2, _ := newTestQueue(ok, j, Options{})
	if err := q2.Restore(ctx); err != nil {
		t.Fatal(err)
	}
	got := q2.Pending()
	if len(got) != 1 || got[0].ID != "op-j" || got[0].Attempts != 1 {
		t.Fatalf("restored %+v", got)
	}
	if string(got[0].Payload) != `{"x":1}` {
		t.Errorf("payload lost: %q", got[0].Payload)
	}

	q2.Dispatch(ctx)
	if q2.Len() != 0 {
		t.Errorf("restored op not confirmed")
	}
	ops, err := j.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 0 {
		t.Errorf("journal not cleaned after confirm: %d rows", len(ops))
	}
}

func TestEnqueueRequiresAnnotationID(t *testing.T) {
	q, _ := newTestQueue(SenderFunc(func(ctx context.Context, op *Op) (string, error) { return "", nil }), nil, Options{})
	if err := q.Enqueue(context.Background(), &Op{Kind: KindCreate}); err == nil {
		t.Error("expected error for op without annotation id")
	}
}
