// Package voice owns the process's single voice session: joining and
// leaving channels and streaming synthesized audio into the connection.
package voice

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const (
	defaultReadyTimeout = 15 * time.Second
	readyPollInterval   = 100 * time.Millisecond
)

// conn abstracts the platform voice connection so tests can stand in a
// fake. The production implementation wraps *discordgo.VoiceConnection.
type conn interface {
	Ready() bool
	Speaking(bool) error
	Send() chan<- []byte
	Disconnect() error
}

// dialer opens a voice connection to a channel.
type dialer func(guildID, channelID string, mute, deaf bool) (conn, error)

// unsuppressor lifts the bot's suppression on stage channels. Failure is
// non-fatal.
type unsuppressor func(guildID, channelID string) error

// Config carries the injectable seams of a Manager.
type Config struct {
	Dial         dialer
	Unsuppress   unsuppressor
	Transcoder   transcoder
	NewEncoder   encoderFactory
	ReadyTimeout time.Duration
	Logger       *log.Logger
}

// Manager holds at most one voice session. Join and leave serialize on
// one mutex so no two connections can coexist.
type Manager struct {
	cfg Config

	mu        sync.Mutex
	guildID   string
	channelID string
	conn      conn

	playMu sync.Mutex
}

func New(cfg Config) *Manager {
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = defaultReadyTimeout
	}
	if cfg.Transcoder == nil {
		cfg.Transcoder = ffmpegTranscoder{}
	}
	if cfg.NewEncoder == nil {
		cfg.NewEncoder = newOpusEncoder
	}
	return &Manager{cfg: cfg}
}

// EnsureJoined is idempotent: joined to channelID already means no work.
// A session on a different channel is torn down before the new join. On
// any failure partial state is destroyed and a JoinError returned.
func (m *Manager) EnsureJoined(ctx context.Context, guildID, channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil && m.channelID == channelID && m.conn.Ready() {
		return nil
	}

	if m.conn != nil {
		if err := m.conn.Disconnect(); err != nil {
			m.cfg.Logger.Warn("disconnect before rejoin", "err", err)
		}
		m.clearLocked()
	}

	c, err := m.cfg.Dial(guildID, channelID, false, true)
	if err != nil {
		return &JoinError{ChannelID: channelID, Err: err}
	}

	if err := m.waitReady(ctx, c); err != nil {
		_ = c.Disconnect()
		return &JoinError{ChannelID: channelID, Err: err}
	}

	m.guildID = guildID
	m.channelID = channelID
	m.conn = c

	if m.cfg.Unsuppress != nil {
		if err := m.cfg.Unsuppress(guildID, channelID); err != nil {
			m.cfg.Logger.Warn("stage unsuppress failed", "channel", channelID, "err", err)
		}
	}

	m.cfg.Logger.Info("joined voice channel", "guild", guildID, "channel", channelID)
	return nil
}

func (m *Manager) waitReady(ctx context.Context, c conn) error {
	deadline := time.NewTimer(m.cfg.ReadyTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()

	for {
		if c.Ready() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return ErrJoinTimeout
		case <-ticker.C:
		}
	}
}

// Leave destroys the current session. Calling it while disconnected is a
// no-op.
func (m *Manager) Leave() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		return nil
	}
	err := m.conn.Disconnect()
	m.cfg.Logger.Info("left voice channel", "channel", m.channelID)
	m.clearLocked()
	return err
}

// Connected reports the channel of the active session, if any.
func (m *Manager) Connected() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.channelID, m.conn != nil
}

func (m *Manager) clearLocked() {
	m.guildID = ""
	m.channelID = ""
	m.conn = nil
}
