package domain

import "time"

// SpeakRequest is one unit of text queued for synthesis and playback.
// Text is expected to be already sanitized; truncation happens on enqueue.
type SpeakRequest struct {
	ID          string
	Text        string
	RequestedBy string
	GuildID     string
	ChannelID   string
	CreatedAt   time.Time
}
