// Package handle_message turns messages from the watched text channel
// into speak requests.
package handle_message

import (
	"context"
	"fmt"

	"voxbot/internal/domain"
	"voxbot/internal/usecase/sanitize"
)

type Interactor struct {
	speaker          domain.Speaker
	watchedChannelID string
	nameFormat       string
}

// NewInteractor watches one text channel. nameFormat is the spoken
// prefix applied per author, e.g. "%s said: "; empty disables the prefix.
func NewInteractor(speaker domain.Speaker, watchedChannelID, nameFormat string) *Interactor {
	return &Interactor{
		speaker:          speaker,
		watchedChannelID: watchedChannelID,
		nameFormat:       nameFormat,
	}
}

// Handle sanitizes and enqueues a message. Messages from bots, from
// other channels, or with nothing speakable are skipped silently.
func (uc *Interactor) Handle(ctx context.Context, msg domain.Message) error {
	if msg.IsBot || msg.ChannelID != uc.watchedChannelID {
		return nil
	}

	text := sanitize.Clean(msg.Text)
	if text == "" {
		return nil
	}
	if uc.nameFormat != "" && msg.Username != "" {
		text = fmt.Sprintf(uc.nameFormat, msg.Username) + text
	}

	req := domain.SpeakRequest{
		Text:        text,
		RequestedBy: msg.Username,
		GuildID:     msg.GuildID,
		ChannelID:   msg.ChannelID,
	}
	_, err := uc.speaker.Enqueue(ctx, req)
	return err
}
