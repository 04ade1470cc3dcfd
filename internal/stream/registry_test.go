package stream_test

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tavolohq/tavolo/internal/events"
	"github.com/tavolohq/tavolo/internal/stream"
)

// ---------------------------------------------------------------------------
// Test sink
// ---------------------------------------------------------------------------

// memSink records writes and can be flipped to fail, simulating a dead peer.
type memSink struct {
	mu       sync.Mutex
	events   [][]byte
	comments []string
	fail     bool
}

func (s *memSink) WriteEvent(encoded []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fail {
		return errors.New("peer gone")
	}
	cp := make([]byte, len(encoded))
	copy(cp, encoded)
	s.events = append(s.events, cp)
	return nil
}

func (s *memSink) WriteComment(comment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fail {
		return errors.New("peer gone")
	}
	s.comments = append(s.comments, comment)
	return nil
}

func (s *memSink) eventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func (s *memSink) commentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.comments)
}

func (s *memSink) setFail(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

func newRegistry() *stream.Registry {
	return stream.NewRegistry(15*time.Second, zerolog.Nop())
}

func todoCreated(userID uuid.UUID) *events.Event {
	return events.NewTodoCreated(userID, events.TodoItem{
		ID:      uuid.New(),
		BoardID: uuid.New(),
		Title:   "t",
	})
}

// ---------------------------------------------------------------------------
// 1. Scope
// ---------------------------------------------------------------------------

func TestScope(t *testing.T) {
	t.Parallel()

	id := uuid.New()

	t.Run("board and tenant scopes with the same id are distinct", func(t *testing.T) {
		t.Parallel()

		assert.NotEqual(t, stream.BoardScope(id), stream.TenantScope(id))
	})

	t.Run("string form", func(t *testing.T) {
		t.Parallel()

		assert.True(t, strings.HasPrefix(stream.BoardScope(id).String(), "board:"))
		assert.True(t, strings.HasPrefix(stream.TenantScope(id).String(), "tenant:"))
	})
}

// ---------------------------------------------------------------------------
// 2. Register / Unregister
// ---------------------------------------------------------------------------

func TestRegistry_RegisterTracksConnection(t *testing.T) {
	t.Parallel()

	reg := newRegistry()
	scope := stream.BoardScope(uuid.New())
	userID := uuid.New()

	conn := reg.Register(scope, userID, &memSink{})

	assert.NotEqual(t, uuid.Nil, conn.ID)
	assert.Equal(t, userID, conn.UserID)
	assert.Equal(t, scope, conn.Scope)
	assert.False(t, conn.ConnectedAt.IsZero())
	assert.Equal(t, 1, reg.ConnectionCount(scope))
	assert.Equal(t, 1, reg.TotalConnections())
}

func TestRegistry_UnregisterRemovesEmptyScopeEntry(t *testing.T) {
	t.Parallel()

	reg := newRegistry()
	scope := stream.BoardScope(uuid.New())

	conn := reg.Register(scope, uuid.New(), &memSink{})
	require.Len(t, reg.ActiveScopes(), 1)

	reg.Unregister(conn.ID)

	assert.Equal(t, 0, reg.ConnectionCount(scope))
	assert.Empty(t, reg.ActiveScopes(), "empty scope entries must be cleaned up")
}

func TestRegistry_UnregisterIsIdempotent(t *testing.T) {
	t.Parallel()

	reg := newRegistry()
	conn := reg.Register(stream.BoardScope(uuid.New()), uuid.New(), &memSink{})

	reg.Unregister(conn.ID)
	reg.Unregister(conn.ID) // second call must be a silent no-op
	reg.Unregister(uuid.New())

	assert.Equal(t, 0, reg.TotalConnections())
}

// ---------------------------------------------------------------------------
// 3. Broadcast
// ---------------------------------------------------------------------------

func TestRegistry_BroadcastToEmptyScopeIsNoop(t *testing.T) {
	t.Parallel()

	reg := newRegistry()

	err := reg.Broadcast(stream.BoardScope(uuid.New()), todoCreated(uuid.New()), uuid.Nil)
	assert.NoError(t, err)
}

func TestRegistry_BroadcastDeliversExactlyOnce(t *testing.T) {
	t.Parallel()

	reg := newRegistry()
	scope := stream.BoardScope(uuid.New())
	sink := &memSink{}
	reg.Register(scope, uuid.New(), sink)

	require.NoError(t, reg.Broadcast(scope, todoCreated(uuid.New()), uuid.Nil))

	assert.Equal(t, 1, sink.eventCount())
}

func TestRegistry_BroadcastExcludesActor(t *testing.T) {
	t.Parallel()

	reg := newRegistry()
	scope := stream.BoardScope(uuid.New())
	actor := uuid.New()

	actorSink := &memSink{}
	otherSink := &memSink{}
	reg.Register(scope, actor, actorSink)
	reg.Register(scope, uuid.New(), otherSink)

	require.NoError(t, reg.Broadcast(scope, todoCreated(actor), actor))

	assert.Equal(t, 0, actorSink.eventCount(), "actor's own tab must not receive an echo")
	assert.Equal(t, 1, otherSink.eventCount())
}

func TestRegistry_BroadcastAfterUnregisterNeverWrites(t *testing.T) {
	t.Parallel()

	reg := newRegistry()
	scope := stream.BoardScope(uuid.New())
	sink := &memSink{}
	conn := reg.Register(scope, uuid.New(), sink)

	reg.Unregister(conn.ID)
	require.NoError(t, reg.Broadcast(scope, todoCreated(uuid.New()), uuid.Nil))
	reg.KeepAlive(scope)

	assert.Equal(t, 0, sink.eventCount())
	assert.Equal(t, 0, sink.commentCount())
}

func TestRegistry_ScopesAreIndependent(t *testing.T) {
	t.Parallel()

	reg := newRegistry()
	id := uuid.New()

	boardSink := &memSink{}
	tenantSink := &memSink{}
	reg.Register(stream.BoardScope(id), uuid.New(), boardSink)
	reg.Register(stream.TenantScope(id), uuid.New(), tenantSink)

	require.NoError(t, reg.Broadcast(stream.BoardScope(id), todoCreated(uuid.New()), uuid.Nil))

	assert.Equal(t, 1, boardSink.eventCount())
	assert.Equal(t, 0, tenantSink.eventCount(), "tenant scope must not see board broadcasts")
}

func TestRegistry_FailedWriteDropsConnectionAndDeliveryContinues(t *testing.T) {
	t.Parallel()

	reg := newRegistry()
	scope := stream.BoardScope(uuid.New())

	const total = 100
	sinks := make([]*memSink, total)
	for i := range total {
		sinks[i] = &memSink{}
		reg.Register(scope, uuid.New(), sinks[i])
	}
	sinks[57].setFail(true)

	require.NoError(t, reg.Broadcast(scope, todoCreated(uuid.New()), uuid.Nil))

	delivered := 0
	for _, s := range sinks {
		delivered += s.eventCount()
	}
	assert.Equal(t, total-1, delivered, "one failed write must not block the rest")
	assert.Equal(t, total-1, reg.ConnectionCount(scope), "failed connection must be unregistered")

	// The dead connection stays gone on the next broadcast.
	sinks[57].setFail(false)
	require.NoError(t, reg.Broadcast(scope, todoCreated(uuid.New()), uuid.Nil))
	assert.Equal(t, 0, sinks[57].eventCount())
}

// ---------------------------------------------------------------------------
// 4. Keep-alive
// ---------------------------------------------------------------------------

func TestRegistry_KeepAlive(t *testing.T) {
	t.Parallel()

	reg := newRegistry()
	scope := stream.TenantScope(uuid.New())

	healthy := &memSink{}
	dead := &memSink{}
	dead.setFail(true)
	reg.Register(scope, uuid.New(), healthy)
	reg.Register(scope, uuid.New(), dead)

	reg.KeepAlive(scope)

	assert.Equal(t, 1, healthy.commentCount())
	assert.Equal(t, []string{events.CommentPing}, healthy.comments)
	assert.Equal(t, 1, reg.ConnectionCount(scope), "dead connection removed on failed keep-alive")
}

// ---------------------------------------------------------------------------
// 5. Concurrency smoke test
// ---------------------------------------------------------------------------

func TestRegistry_ConcurrentRegisterBroadcastUnregister(t *testing.T) {
	t.Parallel()

	reg := newRegistry()
	scopes := []stream.Scope{
		stream.BoardScope(uuid.New()),
		stream.BoardScope(uuid.New()),
		stream.TenantScope(uuid.New()),
	}

	var wg sync.WaitGroup
	for i := range 30 {
		scope := scopes[i%len(scopes)]

		wg.Add(1)
		go func() {
			defer wg.Done()
			conn := reg.Register(scope, uuid.New(), &memSink{})
			_ = reg.Broadcast(scope, todoCreated(uuid.New()), uuid.Nil)
			reg.KeepAlive(scope)
			reg.Unregister(conn.ID)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, reg.TotalConnections())
	assert.Empty(t, reg.ActiveScopes())
}

// ---------------------------------------------------------------------------
// 6. Scenario: two viewers, actor excluded
// ---------------------------------------------------------------------------

func TestRegistry_ScenarioActorEchoSuppressed(t *testing.T) {
	t.Parallel()

	reg := newRegistry()
	boardID := uuid.New()
	scope := stream.BoardScope(boardID)

	userA := uuid.New()
	userB := uuid.New()
	sinkA := &memSink{}
	sinkB := &memSink{}
	reg.Register(scope, userA, sinkA)
	reg.Register(scope, userB, sinkB)

	ev := todoCreated(userA)
	require.NoError(t, reg.Broadcast(scope, ev, userA))

	require.Equal(t, 1, sinkB.eventCount())
	assert.Equal(t, 0, sinkA.eventCount())

	got, err := events.Decode(sinkB.events[0])
	require.NoError(t, err)
	assert.Equal(t, events.TypeTodoCreated, got.Type)
	assert.Equal(t, userA, got.UserID)
}
