package voice

import (
	"errors"
	"fmt"
)

// ErrJoinTimeout is wrapped in a JoinError when the connection never
// reaches the ready state within the join deadline.
var ErrJoinTimeout = errors.New("timed out waiting for voice ready")

// JoinError reports a failed attempt to join a voice channel. Partial
// connection state has already been torn down when it is returned.
type JoinError struct {
	ChannelID string
	Err       error
}

func (e *JoinError) Error() string {
	return fmt.Sprintf("join voice channel %s: %v", e.ChannelID, e.Err)
}

func (e *JoinError) Unwrap() error { return e.Err }

// PlaybackError reports a failure while streaming audio to the session.
type PlaybackError struct {
	Err error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("playback: %v", e.Err)
}

func (e *PlaybackError) Unwrap() error { return e.Err }
