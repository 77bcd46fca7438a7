package commands

import (
	"context"

	"voxbot/internal/domain"
)

type JoinCommand struct {
	voice          domain.VoicePort
	lookup         domain.VoiceStateLookup
	fixedChannelID string
}

// NewJoinCommand joins the invoker's current voice channel, falling back
// to the configured fixed channel when the invoker is not in voice.
func NewJoinCommand(voice domain.VoicePort, lookup domain.VoiceStateLookup, fixedChannelID string) *JoinCommand {
	return &JoinCommand{voice: voice, lookup: lookup, fixedChannelID: fixedChannelID}
}

func (c *JoinCommand) Name() string        { return "join" }
func (c *JoinCommand) Description() string { return "Join your voice channel and start reading chat" }
func (c *JoinCommand) NeedsText() bool     { return false }

func (c *JoinCommand) Handle(ctx context.Context, inv Invocation) (string, error) {
	target := c.lookup.UserVoiceChannel(inv.GuildID, inv.UserID)
	if target == "" {
		target = c.fixedChannelID
	}
	if target == "" {
		return "Join a voice channel first, then try again.", domain.ErrNoVoiceChannel
	}

	if err := c.voice.EnsureJoined(ctx, inv.GuildID, target); err != nil {
		return "Could not join the voice channel.", err
	}
	return "Joined the voice channel. I will read new messages out loud.", nil
}
