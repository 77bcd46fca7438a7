package domain

import (
	"context"
	"errors"
)

var (
	// ErrNotConnected is returned by voice operations when no session exists.
	ErrNotConnected = errors.New("not connected to a voice channel")

	// ErrNoVoiceChannel is returned when no target voice channel can be resolved
	// for a join (user not in voice and no fixed channel configured).
	ErrNoVoiceChannel = errors.New("no voice channel to join")
)

// Speaker enqueues text for synthesis and playback.
type Speaker interface {
	Enqueue(ctx context.Context, req SpeakRequest) (string, error)
}

// VoicePort is the single voice session owned by the process.
type VoicePort interface {
	EnsureJoined(ctx context.Context, guildID, channelID string) error
	Leave() error
	Connected() (channelID string, ok bool)
}

// VoiceStateLookup resolves the voice channel a user is currently in.
// Returns an empty string when the user is not in any voice channel.
type VoiceStateLookup interface {
	UserVoiceChannel(guildID, userID string) string
}
