// Package discord wires the discordgo session to the bot's use cases:
// inbound messages, slash-command interactions and voice-state lookup.
package discord

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"

	"voxbot/internal/domain"
	"voxbot/internal/usecase/commands"
)

type MessageHandler func(ctx context.Context, msg domain.Message) error

type Config struct {
	Token string
	// GuildID scopes command registration; empty registers globally.
	GuildID string
	Logger  *log.Logger
}

type Adapter struct {
	cfg     Config
	session *discordgo.Session

	mu       sync.RWMutex
	handler  MessageHandler
	registry *commands.Registry
}

func NewAdapter(cfg Config) (*Adapter, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord: new session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsMessageContent

	return &Adapter{cfg: cfg, session: session}, nil
}

// Session exposes the underlying connection for collaborators that talk
// to the platform directly (the voice manager).
func (a *Adapter) Session() *discordgo.Session {
	return a.session
}

func (a *Adapter) SetHandler(h MessageHandler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handler = h
}

func (a *Adapter) SetCommands(registry *commands.Registry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.registry = registry
}

// Start opens the gateway connection, registers slash commands and
// blocks until ctx is cancelled.
func (a *Adapter) Start(ctx context.Context) error {
	a.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		a.cfg.Logger.Info("gateway ready", "user", r.User.Username, "guilds", len(r.Guilds))
	})
	a.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		a.onMessageCreate(ctx, s, m)
	})
	a.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		a.onInteraction(ctx, s, i)
	})

	if err := a.session.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}

	a.registerCommands()

	<-ctx.Done()

	if err := a.session.Close(); err != nil {
		a.cfg.Logger.Warn("close gateway", "err", err)
	}
	return ctx.Err()
}

func (a *Adapter) onMessageCreate(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID {
		return
	}

	a.mu.RLock()
	handler := a.handler
	a.mu.RUnlock()
	if handler == nil {
		return
	}

	msg := domain.Message{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		UserID:    m.Author.ID,
		Username:  displayName(m),
		Text:      m.Content,
		IsBot:     m.Author.Bot,
	}
	if err := handler(ctx, msg); err != nil {
		a.cfg.Logger.Error("message handler", "channel", m.ChannelID, "err", err)
	}
}

func (a *Adapter) onInteraction(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	a.mu.RLock()
	registry := a.registry
	a.mu.RUnlock()
	if registry == nil {
		return
	}

	data := i.ApplicationCommandData()
	cmd, ok := registry.Get(data.Name)
	if !ok {
		return
	}

	inv := commands.Invocation{GuildID: i.GuildID}
	if user := interactionUser(i); user != nil {
		inv.UserID = user.ID
		inv.Username = user.Username
		if user.GlobalName != "" {
			inv.Username = user.GlobalName
		}
	}
	if len(data.Options) > 0 {
		inv.Arg = data.Options[0].StringValue()
	}

	reply, err := cmd.Handle(ctx, inv)
	if err != nil {
		a.cfg.Logger.Warn("command failed", "command", data.Name, "err", err)
	}
	if reply == "" {
		return
	}

	respErr := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: reply},
	})
	if respErr != nil {
		a.cfg.Logger.Warn("interaction reply failed", "command", data.Name, "err", respErr)
	}
}

// registerCommands bulk-overwrites the bot's slash commands on every
// startup. Registration failure is non-fatal: the bot keeps running with
// whatever commands were already registered.
func (a *Adapter) registerCommands() {
	a.mu.RLock()
	registry := a.registry
	a.mu.RUnlock()
	if registry == nil {
		return
	}

	defs := make([]*discordgo.ApplicationCommand, 0, len(registry.All()))
	for _, cmd := range registry.All() {
		def := &discordgo.ApplicationCommand{
			Name:        cmd.Name(),
			Description: cmd.Description(),
		}
		if cmd.NeedsText() {
			def.Options = []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "text",
				Description: "Text to speak",
				Required:    true,
			}}
		}
		defs = append(defs, def)
	}

	_, err := a.session.ApplicationCommandBulkOverwrite(a.session.State.User.ID, a.cfg.GuildID, defs)
	if err != nil {
		a.cfg.Logger.Warn("slash command registration failed", "scope", scopeLabel(a.cfg.GuildID), "err", err)
		return
	}
	a.cfg.Logger.Info("slash commands registered", "count", len(defs), "scope", scopeLabel(a.cfg.GuildID))
}

// UserVoiceChannel implements domain.VoiceStateLookup from the session
// state cache.
func (a *Adapter) UserVoiceChannel(guildID, userID string) string {
	vs, err := a.session.State.VoiceState(guildID, userID)
	if err != nil || vs == nil {
		return ""
	}
	return vs.ChannelID
}

func displayName(m *discordgo.MessageCreate) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	if m.Author.GlobalName != "" {
		return m.Author.GlobalName
	}
	return m.Author.Username
}

func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}

func scopeLabel(guildID string) string {
	if guildID == "" {
		return "global"
	}
	return "guild " + guildID
}
