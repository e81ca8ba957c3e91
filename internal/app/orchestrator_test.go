package app

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorhub/signaling/internal/core"
	"github.com/tutorhub/signaling/internal/domain"
)

type mockSignal struct {
	mu       sync.Mutex
	received []core.Frame
	sendErr  error
}

func (m *mockSignal) TrySend(f core.Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.received = append(m.received, f)
	return nil
}

func (m *mockSignal) Close() {}

func (m *mockSignal) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.received)
}

func newOrchestrator() *Orchestrator {
	return &Orchestrator{
		Registry: NewRegistry(),
		Sessions: NewSessionManager(),
		Policy:   DropPolicy{},
	}
}

func register(t *testing.T, o *Orchestrator, cid core.ConnID, uid domain.UserID) {
	t.Helper()
	o.Registry.Register(cid, nil)
	require.True(t, o.Registry.BindUser(cid, uid))
}

func TestOrchestratorJoinAndRelay(t *testing.T) {
	o := newOrchestrator()

	aSig, bSig := &mockSignal{}, &mockSignal{}
	register(t, o, "c-a", "u-a")
	register(t, o, "c-b", "u-b")

	snap, ok := o.Join("c-a", "lesson-1", domain.Participant{UserID: "u-a", IsTeacher: true}, aSig, nil, nil)
	require.True(t, ok)
	require.Len(t, snap, 1)

	snap, ok = o.Join("c-b", "lesson-1", domain.Participant{UserID: "u-b"}, bSig, core.Frame(`{"type":"user-joined"}`), nil)
	require.True(t, ok)
	require.Len(t, snap, 2)
	assert.Equal(t, 1, aSig.count(), "prior member hears the join")

	frame := core.Frame(`{"type":"webrtc-offer","fromUserId":"u-a"}`)
	assert.True(t, o.Relay("c-a", "lesson-1", "u-b", frame))
	assert.Equal(t, 1, bSig.count())

	// Sender not joined to the named session: refused, nothing delivered.
	assert.False(t, o.Relay("c-a", "lesson-2", "u-b", frame))
	assert.Equal(t, 1, bSig.count())

	// Missing target: accepted, silently dropped.
	assert.True(t, o.Relay("c-a", "lesson-1", "u-ghost", frame))
}

func TestOrchestratorRelayRequiresMembership(t *testing.T) {
	o := newOrchestrator()
	register(t, o, "c-a", "u-a")

	// Authenticated but never joined.
	assert.False(t, o.Relay("c-a", "lesson-1", "u-b", core.Frame(`{}`)))
}

func TestOrchestratorDisconnect(t *testing.T) {
	o := newOrchestrator()

	aSig, bSig := &mockSignal{}, &mockSignal{}
	register(t, o, "c-a", "u-a")
	register(t, o, "c-b", "u-b")
	o.Join("c-a", "lesson-1", domain.Participant{UserID: "u-a"}, aSig, nil, nil)
	o.Join("c-b", "lesson-1", domain.Participant{UserID: "u-b"}, bSig, nil, nil)

	o.Disconnect("c-b", core.Frame(`{"type":"user-left","userId":"u-b"}`))
	assert.Equal(t, 1, aSig.count())

	sess, ok := o.Sessions.Get("lesson-1")
	require.True(t, ok)
	assert.Equal(t, 1, sess.ParticipantCount())

	// Duplicate teardown (close racing an in-flight message) must be a no-op.
	o.Disconnect("c-b", core.Frame(`{"type":"user-left","userId":"u-b"}`))
	assert.Equal(t, 1, aSig.count(), "user-left must broadcast exactly once")

	o.Disconnect("c-a", nil)
	_, ok = o.Sessions.Get("lesson-1")
	assert.False(t, ok, "empty session must be garbage-collected")
}

func TestOrchestratorDisconnectBeforeJoin(t *testing.T) {
	o := newOrchestrator()
	register(t, o, "c-a", "u-a")

	// Never joined: teardown must still release the registry entry.
	o.Disconnect("c-a", nil)
	assert.Equal(t, 0, o.Registry.ConnCount())
}

func TestOrchestratorConcurrentJoinSnapshots(t *testing.T) {
	o := newOrchestrator()

	const n = 6
	counts := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		cid := core.ConnID(string(rune('a' + i)))
		uid := domain.UserID("user-" + string(rune('a'+i)))
		register(t, o, cid, uid)
		wg.Add(1)
		go func(i int, cid core.ConnID, uid domain.UserID) {
			defer wg.Done()
			meta := domain.Participant{UserID: uid, IsTeacher: i == 0}
			snap, ok := o.Join(cid, "lesson-1", meta, &mockSignal{}, core.Frame(`{"type":"user-joined"}`), nil)
			assert.True(t, ok)
			counts[i] = len(snap)
		}(i, cid, uid)
	}
	wg.Wait()

	// Joins serialize on the session lock, so the observed snapshot sizes are
	// exactly 1..n with no gaps or duplicates.
	sort.Ints(counts)
	for i := 0; i < n; i++ {
		assert.Equal(t, i+1, counts[i])
	}
}

// evictRacingFactory drops a disconnect between handing out a session handle
// and the caller's join, reproducing a last-member teardown racing a joiner.
type evictRacingFactory struct {
	core.SessionFactory
	hook func()
}

func (f *evictRacingFactory) GetOrCreate(id domain.SessionID) core.VideoSession {
	sess := f.SessionFactory.GetOrCreate(id)
	if h := f.hook; h != nil {
		f.hook = nil
		h()
	}
	return sess
}

func TestOrchestratorJoinSurvivesEvictionRace(t *testing.T) {
	o := newOrchestrator()
	rf := &evictRacingFactory{SessionFactory: o.Sessions}
	o.Sessions = rf

	aSig, bSig := &mockSignal{}, &mockSignal{}
	register(t, o, "c-a", "u-a")
	_, ok := o.Join("c-a", "lesson-1", domain.Participant{UserID: "u-a"}, aSig, nil, nil)
	require.True(t, ok)

	// B grabs the session handle, then A's teardown empties and evicts it
	// before B's membership lands.
	register(t, o, "c-b", "u-b")
	rf.hook = func() { o.Disconnect("c-a", nil) }
	snap, ok := o.Join("c-b", "lesson-1", domain.Participant{UserID: "u-b"}, bSig, nil, nil)
	require.True(t, ok)
	require.Len(t, snap, 1, "joiner must land in a live session, alone")

	// The session B joined is the one the manager maps, so later joiners see
	// B and relays reach B.
	register(t, o, "c-c", "u-c")
	cSig := &mockSignal{}
	snap, ok = o.Join("c-c", "lesson-1", domain.Participant{UserID: "u-c"}, cSig, nil, nil)
	require.True(t, ok)
	assert.Len(t, snap, 2)

	require.True(t, o.Relay("c-c", "lesson-1", "u-b", core.Frame(`{"type":"webrtc-offer"}`)))
	assert.Equal(t, 1, bSig.count(), "relay must reach the racing joiner")
}

func TestOrchestratorJoinRollbackRetractsAnnouncement(t *testing.T) {
	o := newOrchestrator()

	aSig := &mockSignal{}
	register(t, o, "c-a", "u-a")
	o.Join("c-a", "lesson-1", domain.Participant{UserID: "u-a"}, aSig, nil, nil)

	// c-b is released (socket closed) while its join is in flight: the
	// binding fails after prior members already heard the announcement, so
	// they must also hear the matching farewell.
	register(t, o, "c-b", "u-b")
	_, ok := o.Registry.Release("c-b")
	require.True(t, ok)

	announce := core.Frame(`{"type":"user-joined","userId":"u-b"}`)
	farewell := core.Frame(`{"type":"user-left","userId":"u-b"}`)
	_, ok = o.Join("c-b", "lesson-1", domain.Participant{UserID: "u-b"}, &mockSignal{}, announce, farewell)
	require.False(t, ok)

	require.Equal(t, 2, aSig.count())
	assert.JSONEq(t, string(announce), string(aSig.received[0]))
	assert.JSONEq(t, string(farewell), string(aSig.received[1]))

	sess, found := o.Sessions.Get("lesson-1")
	require.True(t, found)
	assert.Equal(t, 1, sess.ParticipantCount(), "rolled-back joiner must not linger")
}

func TestOrchestratorJoinRejectsForeignIdentity(t *testing.T) {
	o := newOrchestrator()
	register(t, o, "c-a", "u-a")

	// The participant meta must carry the identity bound on authenticate.
	_, ok := o.Join("c-a", "lesson-1", domain.Participant{UserID: "u-impostor"}, &mockSignal{}, nil, nil)
	assert.False(t, ok)
	_, found := o.Sessions.Get("lesson-1")
	assert.False(t, found, "refused join must not leave a session behind")
}

func TestOrchestratorKickPolicy(t *testing.T) {
	o := newOrchestrator()
	o.Policy = KickPolicy{}

	canceled := false
	o.Registry.Register("c-slow", func() { canceled = true })
	require.True(t, o.Registry.BindUser("c-slow", "u-slow"))
	register(t, o, "c-a", "u-a")

	slowSig := &mockSignal{sendErr: assert.AnError}
	o.Join("c-slow", "lesson-1", domain.Participant{UserID: "u-slow"}, slowSig, nil, nil)
	o.Join("c-a", "lesson-1", domain.Participant{UserID: "u-a"}, &mockSignal{}, core.Frame(`{"type":"user-joined"}`), nil)

	assert.True(t, canceled, "slow consumer must be canceled under kick policy")
}

func TestOrchestratorStats(t *testing.T) {
	o := newOrchestrator()
	register(t, o, "c-a", "u-a")
	register(t, o, "c-b", "u-b")
	o.Join("c-a", "lesson-1", domain.Participant{UserID: "u-a"}, &mockSignal{}, nil, nil)

	st := o.Stats()
	assert.Equal(t, 1, st.Sessions)
	assert.Equal(t, 1, st.Participants)
	assert.Equal(t, 2, st.Connections)
}
