package client

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dshills/ropesync/internal/engine/diff"
	"github.com/dshills/ropesync/internal/engine/rope"
	"github.com/dshills/ropesync/internal/protocol"
)

// DefaultMaxDepth is the rope depth above which the mirror rebalances.
const DefaultMaxDepth = 64

// Phase is the mirror's position in the sync state machine.
type Phase uint8

const (
	// PhaseDisconnected has no connection.
	PhaseDisconnected Phase = iota
	// PhaseConnecting is dialing or waiting for the first Refresh.
	PhaseConnecting
	// PhaseSynced applies patches.
	PhaseSynced
	// PhaseAwaitingRefresh has requested a refresh and drops patches.
	PhaseAwaitingRefresh
)

// String returns a human-readable representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseDisconnected:
		return "disconnected"
	case PhaseConnecting:
		return "connecting"
	case PhaseSynced:
		return "synced"
	case PhaseAwaitingRefresh:
		return "awaiting-refresh"
	default:
		return "unknown"
	}
}

// Action tells the caller what to do after a message.
type Action uint8

const (
	// ActionNone requires nothing.
	ActionNone Action = iota
	// ActionRender means the state changed and should be redrawn.
	ActionRender
	// ActionRequestRefresh means a request-refresh message must be sent.
	ActionRequestRefresh
	// ActionReload means the mirror must be discarded and rebuilt.
	ActionReload
)

// String returns a human-readable representation of the action.
func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionRender:
		return "render"
	case ActionRequestRefresh:
		return "request-refresh"
	case ActionReload:
		return "reload"
	default:
		return "unknown"
	}
}

// Mirror is the client's copy of the server state.
//
// Mirror is not safe for concurrent use. Its text is an immutable rope,
// so a View taken from it may be handed to another goroutine.
type Mirror struct {
	granularity diff.Granularity
	maxDepth    int
	logger      *slog.Logger

	build    string
	hasBuild bool

	revision   uint64
	known      bool
	text       rope.Rope
	phase      Phase
	serverTime int64
}

// NewMirror creates an empty mirror applying patches at granularity g.
func NewMirror(g diff.Granularity, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{
		granularity: g,
		maxDepth:    DefaultMaxDepth,
		logger:      logger,
		text:        rope.New(),
	}
}

// Granularity returns the granularity patches are applied in.
func (m *Mirror) Granularity() diff.Granularity { return m.granularity }

// Phase returns the current phase.
func (m *Mirror) Phase() Phase { return m.phase }

// Revision returns the local revision. ok is false before the first
// Refresh.
func (m *Mirror) Revision() (rev uint64, ok bool) { return m.revision, m.known }

// Build returns the build identifier recorded from the first Refresh.
func (m *Mirror) Build() string { return m.build }

// State returns the serialized state.
func (m *Mirror) State() string { return m.text.String() }

// Rope returns the state as a rope.
func (m *Mirror) Rope() rope.Rope { return m.text }

// ServerTime returns the server timestamp of the last applied message.
func (m *Mirror) ServerTime() time.Time { return protocol.Time(m.serverTime) }

// Connecting marks the start of a connection attempt.
func (m *Mirror) Connecting() { m.phase = PhaseConnecting }

// Disconnected marks the connection as lost. The state and revision are
// kept until the next Refresh replaces them.
func (m *Mirror) Disconnected() { m.phase = PhaseDisconnected }

// View returns an immutable snapshot for rendering.
func (m *Mirror) View() View {
	v := View{
		Text:     m.text,
		Revision: m.revision,
		Synced:   m.known,
		Phase:    m.phase,
	}
	if m.serverTime != 0 {
		v.ServerTime = protocol.Time(m.serverTime)
	}
	return v
}

// Handle dispatches a decoded server message.
func (m *Mirror) Handle(msg protocol.Message) (Action, error) {
	switch msg := msg.(type) {
	case *protocol.Refresh:
		return m.HandleRefresh(msg)
	case *protocol.Patch:
		return m.HandlePatch(msg)
	default:
		return ActionNone, fmt.Errorf("%w: %T", ErrUnexpectedMessage, msg)
	}
}

// HandleRefresh replaces the state. A build identifier different from the
// first one seen returns ErrVersionSkew and ActionReload, and leaves the
// mirror unchanged.
func (m *Mirror) HandleRefresh(r *protocol.Refresh) (Action, error) {
	if !m.hasBuild {
		m.build = r.Build
		m.hasBuild = true
	} else if r.Build != m.build {
		return ActionReload, fmt.Errorf("%w: %q to %q", ErrVersionSkew, m.build, r.Build)
	}

	m.text = rope.FromString(r.State)
	m.revision = r.Revision
	m.known = true
	m.phase = PhaseSynced
	m.serverTime = r.ServerTime

	m.logger.Debug("refresh", "revision", r.Revision, "chars", m.text.Len())
	return ActionRender, nil
}

// HandlePatch applies p if its base revision is the local revision.
//
// A mismatched or malformed patch moves the mirror to AwaitingRefresh
// and returns ActionRequestRefresh once; further patches are dropped
// until the next Refresh. The state is never modified by a rejected
// patch.
func (m *Mirror) HandlePatch(p *protocol.Patch) (Action, error) {
	if !m.known {
		return ActionNone, ErrNoRefresh
	}
	if m.phase == PhaseAwaitingRefresh {
		return ActionNone, nil
	}

	if p.BaseRevision != m.revision {
		m.phase = PhaseAwaitingRefresh
		return ActionRequestRefresh, fmt.Errorf("%w: patch base %d, local %d", ErrRevisionMismatch, p.BaseRevision, m.revision)
	}

	next, err := diff.ApplyRope(m.text, p.Ops, m.granularity)
	if err != nil {
		m.phase = PhaseAwaitingRefresh
		return ActionRequestRefresh, fmt.Errorf("revision %d: %w", p.BaseRevision, err)
	}
	if next.NeedsRebalance(m.maxDepth) {
		next = next.Rebalance()
	}

	m.text = next
	m.revision++
	m.phase = PhaseSynced
	m.serverTime = p.ServerTime
	return ActionRender, nil
}

// Reject handles a patch that could not be decoded. It behaves like a
// patch that failed to apply.
func (m *Mirror) Reject(err error) (Action, error) {
	if !m.known {
		return ActionNone, ErrNoRefresh
	}
	if m.phase == PhaseAwaitingRefresh {
		return ActionNone, nil
	}
	m.phase = PhaseAwaitingRefresh
	return ActionRequestRefresh, err
}
