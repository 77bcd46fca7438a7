package runner

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxbot/internal/app/events"
	"voxbot/internal/domain"
	"voxbot/internal/usecase/tts"
)

type fakeSynth struct {
	mu     sync.Mutex
	dir    string
	texts  []string
	failOn string
}

func (s *fakeSynth) Synthesize(_ context.Context, text string) (*tts.Audio, error) {
	s.mu.Lock()
	s.texts = append(s.texts, text)
	s.mu.Unlock()

	if s.failOn != "" && strings.Contains(text, s.failOn) {
		return nil, &tts.SynthesisError{Stage: "fetch", Err: errors.New("provider down")}
	}

	f, err := os.CreateTemp(s.dir, "runner-test-*.mp3")
	if err != nil {
		return nil, err
	}
	_ = f.Close()
	return &tts.Audio{Path: f.Name()}, nil
}

func (s *fakeSynth) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

type fakePlayer struct {
	mu       sync.Mutex
	paths    []string
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	failOn   string
}

func (p *fakePlayer) Play(_ context.Context, path string) error {
	n := p.inFlight.Add(1)
	if n > p.maxSeen.Load() {
		p.maxSeen.Store(n)
	}
	time.Sleep(2 * time.Millisecond)
	p.inFlight.Add(-1)

	p.mu.Lock()
	p.paths = append(p.paths, path)
	p.mu.Unlock()

	if p.failOn != "" && strings.Contains(path, p.failOn) {
		return errors.New("connection destroyed")
	}
	return nil
}

func (p *fakePlayer) played() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.paths...)
}

func newTestRunner(t *testing.T, synth Synthesizer, player Player) (*Runner, *events.Bus, context.CancelFunc) {
	t.Helper()
	bus := events.NewBus()
	r := New(Config{
		Synthesizer: synth,
		Player:      player,
		Bus:         bus,
		Logger:      log.New(io.Discard),
	})
	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	t.Cleanup(func() {
		cancel()
		_ = r.Close()
	})
	return r, bus, cancel
}

// waitSpoken collects n spoken events or fails the test.
func waitSpoken(t *testing.T, ch <-chan any, n int) []events.TTSSpokenDTO {
	t.Helper()
	out := make([]events.TTSSpokenDTO, 0, n)
	deadline := time.After(5 * time.Second)
	for len(out) < n {
		select {
		case payload := <-ch:
			if dto, ok := payload.(events.TTSSpokenDTO); ok {
				out = append(out, dto)
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %d spoken events, got %d", n, len(out))
		}
	}
	return out
}

func TestEnqueueFIFO(t *testing.T) {
	synth := &fakeSynth{dir: t.TempDir()}
	player := &fakePlayer{}
	r, bus, _ := newTestRunner(t, synth, player)

	spoken, unsub := bus.Subscribe(events.TopicTTSSpoken)
	defer unsub()

	for _, text := range []string{"alpha", "bravo", "charlie"} {
		_, err := r.Enqueue(context.Background(), domain.SpeakRequest{Text: text})
		require.NoError(t, err)
	}

	got := waitSpoken(t, spoken, 3)
	texts := []string{got[0].Text, got[1].Text, got[2].Text}
	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, texts)
	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, synth.seen())
}

func TestEnqueueSkipsEmptyText(t *testing.T) {
	synth := &fakeSynth{dir: t.TempDir()}
	player := &fakePlayer{}
	r, _, _ := newTestRunner(t, synth, player)

	id, err := r.Enqueue(context.Background(), domain.SpeakRequest{Text: "   "})
	require.NoError(t, err)
	assert.Empty(t, id)

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, synth.seen())
}

func TestEnqueueTruncates(t *testing.T) {
	synth := &fakeSynth{dir: t.TempDir()}
	player := &fakePlayer{}
	r, bus, _ := newTestRunner(t, synth, player)

	spoken, unsub := bus.Subscribe(events.TopicTTSSpoken)
	defer unsub()

	long := strings.Repeat("x", 450)
	_, err := r.Enqueue(context.Background(), domain.SpeakRequest{Text: long})
	require.NoError(t, err)

	waitSpoken(t, spoken, 1)
	seen := synth.seen()
	require.Len(t, seen, 1)
	runes := []rune(seen[0])
	assert.Len(t, runes, 401)
	assert.Equal(t, strings.Repeat("x", 400), string(runes[:400]))
	assert.Equal(t, "…", string(runes[400:]))
}

func TestErrorIsolation(t *testing.T) {
	synth := &fakeSynth{dir: t.TempDir(), failOn: "bravo"}
	player := &fakePlayer{}
	r, bus, _ := newTestRunner(t, synth, player)

	spoken, unsub := bus.Subscribe(events.TopicTTSSpoken)
	defer unsub()

	for _, text := range []string{"alpha", "bravo", "charlie"} {
		_, err := r.Enqueue(context.Background(), domain.SpeakRequest{Text: text})
		require.NoError(t, err)
	}

	got := waitSpoken(t, spoken, 3)
	assert.True(t, got[0].OK)
	assert.False(t, got[1].OK, "failed item must report its error")
	assert.NotEmpty(t, got[1].Error)
	assert.True(t, got[2].OK, "items after a failure must still play")

	// bravo produced no audio
	assert.Len(t, player.played(), 2)
}

func TestPlaybackErrorDoesNotStallQueue(t *testing.T) {
	synth := &fakeSynth{dir: t.TempDir()}
	player := &fakePlayer{failOn: "runner-test"} // every playback fails
	r, bus, _ := newTestRunner(t, synth, player)

	spoken, unsub := bus.Subscribe(events.TopicTTSSpoken)
	defer unsub()

	for _, text := range []string{"one", "two"} {
		_, err := r.Enqueue(context.Background(), domain.SpeakRequest{Text: text})
		require.NoError(t, err)
	}

	got := waitSpoken(t, spoken, 2)
	assert.False(t, got[0].OK)
	assert.False(t, got[1].OK)
}

func TestArtifactsCleanedUp(t *testing.T) {
	dir := t.TempDir()
	synth := &fakeSynth{dir: dir}
	player := &fakePlayer{failOn: "runner-test"} // playback failure path
	r, bus, _ := newTestRunner(t, synth, player)

	spoken, unsub := bus.Subscribe(events.TopicTTSSpoken)
	defer unsub()

	_, err := r.Enqueue(context.Background(), domain.SpeakRequest{Text: "hello"})
	require.NoError(t, err)
	waitSpoken(t, spoken, 1)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "artifact must not outlive its playback attempt")
}

func TestAtMostOneConcurrentPlayback(t *testing.T) {
	synth := &fakeSynth{dir: t.TempDir()}
	player := &fakePlayer{}
	r, bus, _ := newTestRunner(t, synth, player)

	spoken, unsub := bus.Subscribe(events.TopicTTSSpoken)
	defer unsub()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Enqueue(context.Background(), domain.SpeakRequest{Text: "hello"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	waitSpoken(t, spoken, 8)
	assert.Equal(t, int32(1), player.maxSeen.Load())
}
