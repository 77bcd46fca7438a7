// Package runner serializes speak requests into a single audio stream:
// one consumer loop drains a FIFO queue, synthesizing and playing one
// item at a time.
package runner

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"voxbot/internal/app/events"
	"voxbot/internal/domain"
	"voxbot/internal/usecase/tts"
)

const (
	// DefaultMaxLength caps the spoken length of a single request.
	DefaultMaxLength = 400

	truncationMarker = "…"
)

// Synthesizer converts text into a temporary audio artifact.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*tts.Audio, error)
}

// Player streams an audio file into the voice session to completion.
type Player interface {
	Play(ctx context.Context, path string) error
}

type Config struct {
	Synthesizer Synthesizer
	Player      Player
	Bus         *events.Bus
	MaxLength   int
	Logger      *log.Logger
}

// Runner is the speak queue. Enqueue may be called from any goroutine;
// exactly one consumer loop processes items in FIFO order.
type Runner struct {
	cfg    Config
	queue  []*domain.SpeakRequest
	mu     sync.Mutex
	cond   *sync.Cond
	wg     sync.WaitGroup
	closed bool

	status events.TTSStatusDTO
}

func New(cfg Config) *Runner {
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = DefaultMaxLength
	}
	r := &Runner{cfg: cfg}
	r.cond = sync.NewCond(&r.mu)
	r.status = events.NewTTSStatusDTO("idle", 0, "", "")
	return r
}

// Start launches the consumer loop. It exits when ctx is cancelled or
// Close is called.
func (r *Runner) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		<-ctx.Done()
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		r.cond.Broadcast()
	}()
	go func() {
		defer r.wg.Done()
		r.run(ctx)
	}()
	r.publish(events.TopicTTSStatus, r.Status())
}

// Enqueue appends a request to the tail of the queue, truncating the
// text to the configured maximum. Empty text is skipped: the returned ID
// is empty and no item is queued.
func (r *Runner) Enqueue(ctx context.Context, req domain.SpeakRequest) (string, error) {
	req.Text = truncate(strings.TrimSpace(req.Text), r.cfg.MaxLength)
	if req.Text == "" {
		return "", nil
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", context.Canceled
	}

	r.queue = append(r.queue, &req)
	r.setStatusLocked(r.status.State, len(r.queue), r.status.CurrentID, r.status.LastError)
	r.cond.Signal()
	return req.ID, nil
}

func (r *Runner) run(ctx context.Context) {
	for {
		req, ok := r.next(ctx)
		if !ok {
			return
		}
		r.handleRequest(ctx, req)
	}
}

func (r *Runner) next(ctx context.Context) (*domain.SpeakRequest, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		if r.closed {
			return nil, false
		}
		if len(r.queue) > 0 {
			req := r.queue[0]
			r.queue = r.queue[1:]
			r.setStatusLocked("speaking", len(r.queue), req.ID, "")
			return req, true
		}

		r.setStatusLocked("idle", 0, "", "")
		r.cond.Wait()
		if ctx.Err() != nil {
			return nil, false
		}
	}
}

// handleRequest processes one item. Failures are isolated: logged,
// published, the artifact cleaned up, and the loop moves on.
func (r *Runner) handleRequest(ctx context.Context, req *domain.SpeakRequest) {
	audio, err := r.cfg.Synthesizer.Synthesize(ctx, req.Text)
	if err != nil {
		r.handleFailure(req, err)
		return
	}
	defer func() {
		if err := audio.Cleanup(); err != nil {
			r.cfg.Logger.Warn("cleanup audio artifact", "path", audio.Path, "err", err)
		}
	}()

	if err := r.cfg.Player.Play(ctx, audio.Path); err != nil {
		r.handleFailure(req, err)
		return
	}

	r.cfg.Logger.Debug("spoke request", "id", req.ID, "by", req.RequestedBy, "duration", audio.Duration)
	r.publish(events.TopicTTSSpoken, events.NewTTSSpokenDTO(req.ID, req.Text, req.RequestedBy, nil))
	r.setStatus("idle", r.queueLength(), "", "")
}

func (r *Runner) handleFailure(req *domain.SpeakRequest, err error) {
	r.cfg.Logger.Error("speak request failed", "id", req.ID, "err", err)
	r.publish(events.TopicAppError, map[string]any{
		"source": "tts",
		"error":  err.Error(),
	})
	r.publish(events.TopicTTSSpoken, events.NewTTSSpokenDTO(req.ID, req.Text, req.RequestedBy, err))
	r.setStatus("error", r.queueLength(), req.ID, err.Error())
}

func (r *Runner) queueLength() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

func (r *Runner) Status() events.TTSStatusDTO {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Close stops the consumer loop, dropping any pending items, and waits
// for the in-flight item to finish.
func (r *Runner) Close() error {
	r.mu.Lock()
	r.closed = true
	r.queue = nil
	r.cond.Broadcast()
	r.mu.Unlock()

	r.wg.Wait()
	return nil
}

func (r *Runner) setStatus(state string, queueLength int, currentID, lastError string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setStatusLocked(state, queueLength, currentID, lastError)
}

func (r *Runner) setStatusLocked(state string, queueLength int, currentID, lastError string) {
	r.status = events.NewTTSStatusDTO(state, queueLength, currentID, lastError)
	r.publish(events.TopicTTSStatus, r.status)
}

func (r *Runner) publish(topic string, payload any) {
	if r.cfg.Bus != nil {
		r.cfg.Bus.Publish(topic, payload)
	}
}

// truncate caps text at max runes, appending a visible marker when
// anything was cut.
func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + truncationMarker
}
