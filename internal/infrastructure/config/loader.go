// Package config loads bot configuration from the environment, with an
// optional .env file for local runs.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DiscordToken  string `env:"DISCORD_TOKEN,required,notEmpty"`
	TextChannelID string `env:"TEXT_CHANNEL_ID,required,notEmpty"`

	// VoiceChannelID, when set, is the fallback join target for users
	// not currently in a voice channel.
	VoiceChannelID string `env:"VOICE_CHANNEL_ID"`

	// GuildID scopes slash-command registration to one guild; empty
	// registers the commands globally.
	GuildID string `env:"GUILD_ID"`

	Language        string `env:"TTS_LANGUAGE" envDefault:"en"`
	MaxSpeakLength  int    `env:"MAX_SPEAK_LENGTH" envDefault:"400"`
	SpeakNameFormat string `env:"SPEAK_NAME_FORMAT" envDefault:"%s said: "`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
