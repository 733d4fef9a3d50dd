package driver_test

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/stylewatch/internal/driver"
	"github.com/cory-johannsen/stylewatch/internal/feed"
	"github.com/cory-johannsen/stylewatch/internal/game/encounter"
	"github.com/cory-johannsen/stylewatch/internal/game/geom"
	"github.com/cory-johannsen/stylewatch/internal/game/rotation"
	"github.com/cory-johannsen/stylewatch/internal/replay"
	"github.com/cory-johannsen/stylewatch/internal/testutil"
)

type sliceSource struct {
	batches []encounter.Batch
	err     error
}

func (s *sliceSource) Next() (encounter.Batch, error) {
	if len(s.batches) == 0 {
		if s.err != nil {
			return encounter.Batch{}, s.err
		}
		return encounter.Batch{}, io.EOF
	}
	b := s.batches[0]
	s.batches = s.batches[1:]
	return b, nil
}

// endless yields a new batch on every call.
type endless struct{ tick int }

func (e *endless) Next() (encounter.Batch, error) {
	e.tick++
	return hostileBatch(e.tick), nil
}

type recordingSink struct {
	mu   sync.Mutex
	msgs []feed.Message
	err  error
}

func (r *recordingSink) Publish(m feed.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
	return r.err
}

func (r *recordingSink) messages() []feed.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]feed.Message(nil), r.msgs...)
}

func hostileBatch(tick int) encounter.Batch {
	return encounter.Batch{Tick: tick, Hostiles: []encounter.HostileObservation{{
		ID: "g1", NPCID: 7144, Index: 1, Area: geom.NewArea(0, 0, 2, 2, 0),
	}}}
}

func newEngine(t *testing.T) *encounter.Engine {
	return encounter.NewEngine(encounter.DefaultProfile(), rotation.DefaultRules(), zaptest.NewLogger(t),
		encounter.WithIDSource(func() string { return "enc" }))
}

func TestDriver_UnthrottledPublishesEveryTick(t *testing.T) {
	sink := &recordingSink{}
	src := &sliceSource{batches: []encounter.Batch{hostileBatch(1), hostileBatch(2), {Tick: 3}}}
	d := driver.New(newEngine(t), src, zaptest.NewLogger(t), driver.WithSink(sink))

	require.NoError(t, d.Run(context.Background()))
	assert.Equal(t, 3, d.Ticks())

	msgs := sink.messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "enc", msgs[0].Encounter)
	assert.Equal(t, 2, msgs[1].Tick)
	require.Len(t, msgs[1].Predictions, 1)
	assert.Equal(t, "g1", msgs[1].Predictions[0].ActorID)
	assert.Empty(t, msgs[2].Encounter, "encounter closed once the hostile left")
	assert.Empty(t, msgs[2].Predictions)
}

func TestDriver_SourceErrorStopsRun(t *testing.T) {
	boom := errors.New("boom")
	src := &sliceSource{batches: []encounter.Batch{hostileBatch(1)}, err: boom}
	d := driver.New(newEngine(t), src, zaptest.NewLogger(t))

	err := d.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, d.Ticks())
}

func TestDriver_SinkErrorDoesNotStopRun(t *testing.T) {
	sink := &recordingSink{err: feed.ErrBackpressure}
	src := &sliceSource{batches: []encounter.Batch{hostileBatch(1), hostileBatch(2)}}
	d := driver.New(newEngine(t), src, zaptest.NewLogger(t), driver.WithSink(sink))

	require.NoError(t, d.Run(context.Background()))
	assert.Len(t, sink.messages(), 2)
}

func TestDriver_IntervalPacesUntilCancelled(t *testing.T) {
	d := driver.New(newEngine(t), &endless{}, zaptest.NewLogger(t), driver.WithInterval(10*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool { return d.Ticks() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not stop after cancel")
	}
}

func TestDriver_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := driver.New(newEngine(t), &endless{}, zaptest.NewLogger(t))

	require.NoError(t, d.Run(ctx))
	assert.Zero(t, d.Ticks())
}

func TestDriver_ReplaysRecording(t *testing.T) {
	rec, err := replay.LoadFromBytes([]byte(`
name: two
ticks:
  - tick: 1
    hostiles: [{id: g1, npc_id: 7144, index: 1, area: {x: 0, y: 0, width: 2, height: 2}}]
  - tick: 2
    hostiles: [{id: g1, npc_id: 7144, index: 1, area: {x: 0, y: 0, width: 2, height: 2}}]
`))
	require.NoError(t, err)

	sink := &recordingSink{}
	d := driver.New(newEngine(t), replay.NewCursor(rec), zaptest.NewLogger(t), driver.WithSink(sink))
	require.NoError(t, d.Run(context.Background()))
	assert.Equal(t, 2, d.Ticks())
	assert.Len(t, sink.messages(), 2)
}

func TestDriver_StreamsRecordingToFeedSubscriber(t *testing.T) {
	rec, err := replay.Load(filepath.Join("..", "..", "content", "recordings", "sample.yaml"))
	require.NoError(t, err)
	last := rec.Ticks[len(rec.Ticks)-1].Tick

	logger := zaptest.NewLogger(t)
	hub := feed.NewHub(logger)
	ctx, cancel := context.WithCancel(context.Background())
	hubDone := make(chan error, 1)
	go func() { hubDone <- hub.Run(ctx) }()
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-hubDone
	})

	client := testutil.NewFeedClient(t, srv.URL)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	d := driver.New(newEngine(t), replay.NewCursor(rec), logger, driver.WithSink(hub))
	require.NoError(t, d.Run(ctx))

	msg := client.ReadUntil(func(m feed.Message) bool { return m.Tick == last }, 5*time.Second)
	assert.Equal(t, "enc", msg.Encounter)
	require.Len(t, msg.Predictions, 1)
	assert.Equal(t, "gorilla-1", msg.Predictions[0].ActorID)
	assert.Equal(t, []rotation.Style{rotation.Ranged, rotation.Magic}, msg.Predictions[0].Styles)
	assert.Equal(t, 3, msg.Predictions[0].ActionsUntilRotation)
}

func TestNew_Preconditions(t *testing.T) {
	assert.Panics(t, func() { driver.New(nil, &endless{}, zaptest.NewLogger(t)) })
	assert.Panics(t, func() { driver.WithInterval(-time.Second) })
}
