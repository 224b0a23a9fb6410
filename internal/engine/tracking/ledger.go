package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Errors returned by the ledger.
var (
	// ErrClosed is returned by publishes after Close.
	ErrClosed = errors.New("tracking: ledger closed")

	// ErrPrepare wraps a PrepareFunc failure. The ledger is unchanged.
	ErrPrepare = errors.New("tracking: prepare failed")

	// ErrRevisionNotFound is returned for revisions outside the history window.
	ErrRevisionNotFound = errors.New("tracking: revision not found")
)

// Option configures a Ledger.
type Option func(*Ledger)

// WithHistory sets the number of snapshots kept for Get and History.
func WithHistory(n int) Option {
	return func(l *Ledger) {
		l.history = newRevisionStore(n)
	}
}

// WithClock sets the time source used to stamp snapshots.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithPrepare sets the initial PrepareFunc.
func WithPrepare(fn PrepareFunc) Option {
	return func(l *Ledger) {
		l.SetPrepare(fn)
	}
}

type publishRequest struct {
	state     string
	ifChanged bool
	reply     chan publishResult
}

type publishResult struct {
	commit  Commit
	changed bool
	err     error
}

// Ledger is the authoritative (revision, state) cell. All mutation goes
// through one writer goroutine; reads are lock-free.
type Ledger struct {
	current atomic.Pointer[Snapshot]
	prepare atomic.Pointer[PrepareFunc]

	history *revisionStore
	now     func() time.Time

	obsMu     sync.RWMutex
	observers map[uint64]CommitObserver
	nextObs   uint64

	requests  chan publishRequest
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewLedger creates a ledger at revision 0 holding initial and starts its
// writer goroutine. Call Close to stop it.
func NewLedger(initial string, opts ...Option) *Ledger {
	l := &Ledger{
		history:   newRevisionStore(DefaultHistory),
		now:       time.Now,
		observers: make(map[uint64]CommitObserver),
		requests:  make(chan publishRequest),
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(l)
	}

	first := Snapshot{Revision: 0, State: initial, Timestamp: l.now()}
	l.current.Store(&first)
	l.history.Add(first)

	l.wg.Add(1)
	go l.run()

	return l
}

// Current returns the latest committed snapshot.
func (l *Ledger) Current() Snapshot {
	return *l.current.Load()
}

// Revision returns the latest committed revision.
func (l *Ledger) Revision() uint64 {
	return l.current.Load().Revision
}

// Get returns the snapshot for rev if it is still in the history window.
func (l *Ledger) Get(rev uint64) (Snapshot, error) {
	s, ok := l.history.Get(rev)
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %d", ErrRevisionNotFound, rev)
	}
	return s, nil
}

// History returns the retained snapshots oldest first.
func (l *Ledger) History() []Snapshot {
	return l.history.List()
}

// SetPrepare replaces the PrepareFunc. A nil fn removes it.
// The change applies from the next publish.
func (l *Ledger) SetPrepare(fn PrepareFunc) {
	if fn == nil {
		l.prepare.Store(nil)
		return
	}
	l.prepare.Store(&fn)
}

// Observe registers o for commit notifications and returns a function that
// unregisters it.
func (l *Ledger) Observe(o CommitObserver) (cancel func()) {
	l.obsMu.Lock()
	id := l.nextObs
	l.nextObs++
	l.observers[id] = o
	l.obsMu.Unlock()

	return func() {
		l.obsMu.Lock()
		delete(l.observers, id)
		l.obsMu.Unlock()
	}
}

// Publish replaces the state and increments the revision, even when state
// equals the current state. It returns the commit, or an error wrapping
// ErrPrepare or ErrClosed, in which case nothing was published.
func (l *Ledger) Publish(ctx context.Context, state string) (Commit, error) {
	res, err := l.submit(ctx, state, false)
	if err != nil {
		return Commit{}, err
	}
	return res.commit, res.err
}

// PublishIfChanged publishes state only if it differs from the current
// state. changed reports whether a new revision was committed.
func (l *Ledger) PublishIfChanged(ctx context.Context, state string) (c Commit, changed bool, err error) {
	res, err := l.submit(ctx, state, true)
	if err != nil {
		return Commit{}, false, err
	}
	return res.commit, res.changed, res.err
}

func (l *Ledger) submit(ctx context.Context, state string, ifChanged bool) (publishResult, error) {
	req := publishRequest{
		state:     state,
		ifChanged: ifChanged,
		reply:     make(chan publishResult, 1),
	}

	select {
	case <-l.done:
		return publishResult{}, ErrClosed
	default:
	}

	select {
	case l.requests <- req:
	case <-l.done:
		return publishResult{}, ErrClosed
	case <-ctx.Done():
		return publishResult{}, ctx.Err()
	}

	// Once accepted the request always completes.
	return <-req.reply, nil
}

// Close stops the writer goroutine. It is safe to call more than once.
func (l *Ledger) Close() error {
	l.closeOnce.Do(func() {
		close(l.done)
	})
	l.wg.Wait()
	return nil
}

func (l *Ledger) run() {
	defer l.wg.Done()

	for {
		select {
		case <-l.done:
			return
		case req := <-l.requests:
			req.reply <- l.commit(req)
		}
	}
}

// commit runs on the writer goroutine only.
func (l *Ledger) commit(req publishRequest) publishResult {
	prev := l.Current()
	if req.ifChanged && prev.State == req.state {
		return publishResult{commit: Commit{Prev: prev, Next: prev}}
	}

	next := Snapshot{
		Revision:  prev.Revision + 1,
		State:     req.state,
		Timestamp: l.now(),
	}

	var artifacts any
	if fn := l.prepare.Load(); fn != nil {
		a, err := runPrepare(*fn, prev, next)
		if err != nil {
			return publishResult{err: fmt.Errorf("%w: revision %d: %w", ErrPrepare, next.Revision, err)}
		}
		artifacts = a
	}

	l.current.Store(&next)
	l.history.Add(next)

	c := Commit{Prev: prev, Next: next, Artifacts: artifacts}
	l.notify(c)

	return publishResult{commit: c, changed: true}
}

// runPrepare converts a panic in fn into an error.
func runPrepare(fn PrepareFunc, prev, next Snapshot) (a any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(prev, next)
}

func (l *Ledger) notify(c Commit) {
	l.obsMu.RLock()
	defer l.obsMu.RUnlock()

	for _, o := range l.observers {
		o.OnCommit(c)
	}
}
