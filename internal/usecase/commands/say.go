package commands

import (
	"context"

	"voxbot/internal/domain"
	"voxbot/internal/usecase/sanitize"
)

type SayCommand struct {
	speaker domain.Speaker
}

func NewSayCommand(speaker domain.Speaker) *SayCommand {
	return &SayCommand{speaker: speaker}
}

func (c *SayCommand) Name() string        { return "say" }
func (c *SayCommand) Description() string { return "Speak the given text in the voice channel" }
func (c *SayCommand) NeedsText() bool     { return true }

// Handle acknowledges immediately; synthesis and playback happen on the
// speak queue.
func (c *SayCommand) Handle(ctx context.Context, inv Invocation) (string, error) {
	text := sanitize.Clean(inv.Arg)
	if text == "" {
		return "There is nothing speakable in that text.", nil
	}

	req := domain.SpeakRequest{
		Text:        text,
		RequestedBy: inv.Username,
		GuildID:     inv.GuildID,
	}
	if _, err := c.speaker.Enqueue(ctx, req); err != nil {
		return "Could not queue that for speaking.", err
	}
	return "Queued for speaking.", nil
}
