package voice

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"voxbot/internal/domain"
)

// Discord voice expects 48kHz 16-bit stereo PCM encoded as Opus in 20ms
// frames.
const (
	sampleRate = 48000
	channels   = 2
	frameSize  = 960 // samples per channel per 20ms frame
	maxBytes   = frameSize * channels * 2

	sendTimeout = 5 * time.Second
)

// transcoder converts an audio file into a raw PCM stream matching the
// constants above.
type transcoder interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// opusEncoder is the frame encoder; *gopus.Encoder satisfies it.
type opusEncoder interface {
	Encode(pcm []int16, frameSize, maxBytes int) ([]byte, error)
}

type encoderFactory func() (opusEncoder, error)

// Play streams the audio file at path into the current session and
// returns only once the stream is fully sent, cancelled or failed. Calls
// serialize on an internal mutex so no two playbacks ever overlap.
func (m *Manager) Play(ctx context.Context, path string) error {
	m.playMu.Lock()
	defer m.playMu.Unlock()

	m.mu.Lock()
	c := m.conn
	m.mu.Unlock()
	if c == nil {
		return domain.ErrNotConnected
	}

	pcm, err := m.cfg.Transcoder.Open(ctx, path)
	if err != nil {
		return &PlaybackError{Err: err}
	}

	encoder, err := m.cfg.NewEncoder()
	if err != nil {
		_ = pcm.Close()
		return &PlaybackError{Err: err}
	}

	if err := c.Speaking(true); err != nil {
		_ = pcm.Close()
		return &PlaybackError{Err: err}
	}
	defer func() {
		if err := c.Speaking(false); err != nil {
			m.cfg.Logger.Warn("clear speaking flag", "err", err)
		}
	}()

	if err := m.stream(ctx, c, encoder, pcm); err != nil {
		_ = pcm.Close()
		return err
	}

	// A non-zero transcoder exit surfaces on Close.
	if err := pcm.Close(); err != nil {
		return &PlaybackError{Err: err}
	}
	return nil
}

func (m *Manager) stream(ctx context.Context, c conn, encoder opusEncoder, pcm io.Reader) error {
	frame := make([]int16, frameSize*channels)

	for {
		err := binary.Read(pcm, binary.LittleEndian, frame)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			// Trailing partial frame is dropped.
			return nil
		}
		if err != nil {
			return &PlaybackError{Err: err}
		}

		packet, err := encoder.Encode(frame, frameSize, maxBytes)
		if err != nil {
			return &PlaybackError{Err: fmt.Errorf("opus encode: %w", err)}
		}

		select {
		case c.Send() <- packet:
		case <-ctx.Done():
			return &PlaybackError{Err: ctx.Err()}
		case <-time.After(sendTimeout):
			return &PlaybackError{Err: fmt.Errorf("timed out sending audio frame")}
		}
	}
}
