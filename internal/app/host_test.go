package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/protocol"
)

type fakePeer struct {
	id string

	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func newFakePeer(id string) *fakePeer { return &fakePeer{id: id} }

func (p *fakePeer) ID() string { return p.id }

func (p *fakePeer) Deliver(frame []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, frame)
}

func (p *fakePeer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *fakePeer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *fakePeer) messages(t *testing.T) []protocol.Message {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]protocol.Message, 0, len(p.frames))
	for _, f := range p.frames {
		msg, err := protocol.Decode(f)
		require.NoError(t, err)
		out = append(out, msg)
	}
	return out
}

func (p *fakePeer) lastSync(t *testing.T) protocol.SyncPayload {
	t.Helper()
	msgs := p.messages(t)
	require.NotEmpty(t, msgs)
	last := msgs[len(msgs)-1]
	require.Equal(t, protocol.KindSyncState, last.Type)
	got, err := last.Sync()
	require.NoError(t, err)
	return got
}

func twoQuestions() []domain.Question {
	return []domain.Question{
		{ID: "q1", Text: "First", Options: []domain.QuizOption{{ID: "a", Text: "A", IsCorrect: true}, {ID: "b", Text: "B"}}},
		{ID: "q2", Text: "Second", Options: []domain.QuizOption{{ID: "c", Text: "C"}, {ID: "d", Text: "D", IsCorrect: true}}},
	}
}

func startHost(t *testing.T, questions []domain.Question, opts app.HostOptions) *app.Host {
	t.Helper()
	h := app.NewHost("JOIN1234", questions, opts)
	go h.Run(context.Background())
	t.Cleanup(func() {
		h.Close()
		<-h.Done()
	})
	return h
}

func TestLateJoinerReceivesExactlyOneSync(t *testing.T) {
	ctx := context.Background()
	h := startHost(t, twoQuestions(), app.HostOptions{})

	require.NoError(t, h.Join(ctx, "p1", "Ada"))
	_, err := h.Advance(ctx)
	require.NoError(t, err)
	require.NoError(t, h.Answer(ctx, "p1", "a"))

	late := newFakePeer("late")
	require.NoError(t, h.Connect(ctx, late))

	msgs := late.messages(t)
	require.Len(t, msgs, 1)
	assert.Equal(t, protocol.KindSyncState, msgs[0].Type)

	got := late.lastSync(t)
	assert.Equal(t, uint64(3), got.Version)
	assert.Equal(t, domain.StatusQuestionActive, got.Status)
	assert.Equal(t, "JOIN1234", got.JoinCode)
	require.Contains(t, got.Players, "p1")
	assert.Equal(t, "a", got.Players["p1"].LastAnswer)
	assert.Len(t, got.Questions, 2)
}

func TestBroadcastOnlyWhenStateChanges(t *testing.T) {
	ctx := context.Background()
	h := startHost(t, twoQuestions(), app.HostOptions{})
	peer := newFakePeer("peer")
	require.NoError(t, h.Connect(ctx, peer))

	require.NoError(t, h.Join(ctx, "p1", "Ada"))
	require.NoError(t, h.Join(ctx, "p1", "Someone else"))
	require.NoError(t, h.Answer(ctx, "p1", "a")) // lobby: ignored

	msgs := peer.messages(t)
	require.Len(t, msgs, 2)
	got := peer.lastSync(t)
	assert.Equal(t, uint64(1), got.Version)
	assert.Equal(t, "Ada", got.Players["p1"].Name)
}

func TestVersionsIncreaseAcrossBroadcasts(t *testing.T) {
	ctx := context.Background()
	h := startHost(t, twoQuestions(), app.HostOptions{})
	peer := newFakePeer("peer")
	require.NoError(t, h.Connect(ctx, peer))

	require.NoError(t, h.Join(ctx, "p1", "Ada"))
	for i := 0; i < 4; i++ {
		_, err := h.Advance(ctx)
		require.NoError(t, err)
	}

	var last uint64
	for i, msg := range peer.messages(t) {
		got, err := msg.Sync()
		require.NoError(t, err)
		if i > 0 {
			assert.Greater(t, got.Version, last)
		}
		last = got.Version
	}
	assert.Equal(t, domain.StatusFinished, peer.lastSync(t).Status)
}

func TestTwoPlayerRoundOverTheHost(t *testing.T) {
	ctx := context.Background()
	h := startHost(t, twoQuestions(), app.HostOptions{})
	peer := newFakePeer("peer")
	require.NoError(t, h.Connect(ctx, peer))

	require.NoError(t, h.Join(ctx, "p1", "Ada"))
	require.NoError(t, h.Join(ctx, "p2", "Bob"))
	_, _ = h.Advance(ctx)
	require.NoError(t, h.Answer(ctx, "p1", "a"))
	require.NoError(t, h.Answer(ctx, "p2", "b"))
	_, _ = h.Advance(ctx)
	_, _ = h.Advance(ctx)

	got := peer.lastSync(t)
	assert.Equal(t, domain.StatusQuestionActive, got.Status)
	assert.Equal(t, 1, got.CurrentQuestionIndex)
	assert.Equal(t, 100, got.Players["p1"].Score)
	assert.Equal(t, 0, got.Players["p2"].Score)
	assert.Empty(t, got.Players["p1"].LastAnswer)
	assert.Empty(t, got.Players["p2"].LastAnswer)
}

func TestIngestIgnoresHostOnlyMessages(t *testing.T) {
	ctx := context.Background()
	h := startHost(t, twoQuestions(), app.HostOptions{})
	peer := newFakePeer("peer")
	require.NoError(t, h.Connect(ctx, peer))

	forged, err := protocol.NewSyncState(domain.GameState{Status: domain.StatusFinished}, 99)
	require.NoError(t, err)
	require.NoError(t, h.Ingest(ctx, forged))
	require.NoError(t, h.Ingest(ctx, protocol.NewAdminReset()))
	require.NoError(t, h.Ingest(ctx, protocol.Message{Type: "BOGUS"}))
	require.NoError(t, h.Ingest(ctx, protocol.Message{Type: protocol.KindPlayerJoin, Payload: []byte(`"nope"`)}))

	assert.Len(t, peer.messages(t), 1)
	snap, err := h.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLobby, snap.Status)
}

func TestResetSendsOnlyAdminResetAndReseeds(t *testing.T) {
	ctx := context.Background()
	fresh := []domain.Question{
		{ID: "z", Text: "Fresh", Options: []domain.QuizOption{{ID: "y", IsCorrect: true}, {ID: "n"}}},
	}
	h := startHost(t, twoQuestions(), app.HostOptions{
		Seeder: func(context.Context) ([]domain.Question, error) { return fresh, nil },
	})
	peer := newFakePeer("peer")
	require.NoError(t, h.Connect(ctx, peer))
	require.NoError(t, h.Join(ctx, "p1", "Ada"))
	_, _ = h.Advance(ctx)

	require.NoError(t, h.Reset(ctx))

	msgs := peer.messages(t)
	require.Len(t, msgs, 4)
	assert.Equal(t, protocol.KindAdminReset, msgs[3].Type)

	snap, err := h.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLobby, snap.Status)
	assert.Equal(t, "JOIN1234", snap.JoinCode)
	assert.Empty(t, snap.Players)
	assert.Equal(t, 0, snap.CurrentQuestionIndex)
	require.Len(t, snap.Questions, 1)
	assert.Equal(t, "z", snap.Questions[0].ID)

	// the peer is still connected and sees the next change
	require.NoError(t, h.Join(ctx, "p1", "Ada"))
	assert.Len(t, peer.messages(t), 5)
}

func TestResetWithFailingSeederLeavesInertLobby(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("source down")
	h := startHost(t, twoQuestions(), app.HostOptions{
		Seeder: func(context.Context) ([]domain.Question, error) { return nil, boom },
	})

	err := h.Reset(ctx)
	assert.ErrorIs(t, err, boom)

	snap, err := h.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Questions)

	changed, err := h.Advance(ctx)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestDisconnectKeepsPlayerScore(t *testing.T) {
	ctx := context.Background()
	h := startHost(t, twoQuestions(), app.HostOptions{})
	peer := newFakePeer("p1")
	require.NoError(t, h.Connect(ctx, peer))
	require.NoError(t, h.Join(ctx, "p1", "Ada"))
	_, _ = h.Advance(ctx)
	require.NoError(t, h.Answer(ctx, "p1", "a"))
	_, _ = h.Advance(ctx)

	require.NoError(t, h.Disconnect(ctx, "p1"))
	n, err := h.PeerCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	before := len(peer.messages(t))
	_, _ = h.Advance(ctx)
	assert.Len(t, peer.messages(t), before)

	snap, err := h.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, snap.Players["p1"].Score)
}

func TestRedactedSyncHidesUnrevealedAnswers(t *testing.T) {
	ctx := context.Background()
	h := startHost(t, twoQuestions(), app.HostOptions{RedactAnswers: true})
	peer := newFakePeer("peer")
	require.NoError(t, h.Connect(ctx, peer))

	for _, q := range peer.lastSync(t).Questions {
		for _, o := range q.Options {
			assert.False(t, o.IsCorrect, "option %s leaked", o.ID)
		}
	}

	_, _ = h.Advance(ctx)
	_, _ = h.Advance(ctx)
	got := peer.lastSync(t)
	assert.Equal(t, domain.StatusQuestionReveal, got.Status)
	assert.Equal(t, "a", got.Questions[0].CorrectOptionID())
	assert.Empty(t, got.Questions[1].CorrectOptionID())

	snap, err := h.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "d", snap.Questions[1].CorrectOptionID())
}

func TestSnapshotIsACopy(t *testing.T) {
	ctx := context.Background()
	h := startHost(t, twoQuestions(), app.HostOptions{})
	require.NoError(t, h.Join(ctx, "p1", "Ada"))

	snap, err := h.Snapshot(ctx)
	require.NoError(t, err)
	snap.Players["p1"].Score = 999
	snap.Questions[0].Text = "changed"

	again, err := h.Snapshot(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Players["p1"].Score)
	assert.Equal(t, "First", again.Questions[0].Text)
}

func TestClosedHostRejectsCommandsAndClosesPeers(t *testing.T) {
	ctx := context.Background()
	h := app.NewHost("JOIN1234", twoQuestions(), app.HostOptions{})
	go h.Run(ctx)

	peer := newFakePeer("peer")
	require.NoError(t, h.Connect(ctx, peer))

	h.Close()
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("host did not stop")
	}

	assert.True(t, peer.isClosed())
	_, err := h.Advance(ctx)
	assert.ErrorIs(t, err, domain.ErrHostClosed)
}

func TestCommandsHonourContext(t *testing.T) {
	h := app.NewHost("JOIN1234", twoQuestions(), app.HostOptions{})
	// not running, so queued commands never complete
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := h.Snapshot(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
