package voice

import (
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"
	"layeh.com/gopus"
)

// NewDiscordManager builds a Manager whose seams are backed by a live
// discordgo session.
func NewDiscordManager(session *discordgo.Session, logger *log.Logger) *Manager {
	return New(Config{
		Dial: func(guildID, channelID string, mute, deaf bool) (conn, error) {
			vc, err := session.ChannelVoiceJoin(guildID, channelID, mute, deaf)
			if err != nil {
				return nil, err
			}
			return &discordConn{vc: vc}, nil
		},
		Unsuppress: func(guildID, channelID string) error {
			return unsuppressStage(session, guildID, channelID)
		},
		Logger: logger,
	})
}

type discordConn struct {
	vc *discordgo.VoiceConnection
}

func (c *discordConn) Ready() bool {
	c.vc.RLock()
	defer c.vc.RUnlock()
	return c.vc.Ready
}

func (c *discordConn) Speaking(b bool) error { return c.vc.Speaking(b) }

func (c *discordConn) Send() chan<- []byte { return c.vc.OpusSend }

func (c *discordConn) Disconnect() error { return c.vc.Disconnect() }

func newOpusEncoder() (opusEncoder, error) {
	return gopus.NewEncoder(sampleRate, channels, gopus.Audio)
}

// unsuppressStage clears the bot's own suppression after joining a stage
// channel. Regular voice channels need no action.
func unsuppressStage(session *discordgo.Session, guildID, channelID string) error {
	channel, err := session.State.Channel(channelID)
	if err != nil {
		channel, err = session.Channel(channelID)
	}
	if err != nil {
		return fmt.Errorf("lookup channel: %w", err)
	}
	if channel.Type != discordgo.ChannelTypeGuildStageVoice {
		return nil
	}

	payload := struct {
		ChannelID string `json:"channel_id"`
		Suppress  bool   `json:"suppress"`
	}{ChannelID: channelID, Suppress: false}

	_, err = session.Request(http.MethodPatch,
		discordgo.EndpointGuild(guildID)+"/voice-states/@me", payload)
	if err != nil {
		return fmt.Errorf("clear suppression: %w", err)
	}
	return nil
}
