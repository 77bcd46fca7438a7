package commands

import (
	"context"

	"voxbot/internal/domain"
)

type LeaveCommand struct {
	voice domain.VoicePort
}

func NewLeaveCommand(voice domain.VoicePort) *LeaveCommand {
	return &LeaveCommand{voice: voice}
}

func (c *LeaveCommand) Name() string        { return "leave" }
func (c *LeaveCommand) Description() string { return "Disconnect from the voice channel" }
func (c *LeaveCommand) NeedsText() bool     { return false }

func (c *LeaveCommand) Handle(_ context.Context, _ Invocation) (string, error) {
	if _, ok := c.voice.Connected(); !ok {
		return "Not connected to a voice channel.", nil
	}
	if err := c.voice.Leave(); err != nil {
		return "Left the voice channel.", err
	}
	return "Left the voice channel.", nil
}
