package domain

// Message is a chat message normalized by the platform adapter.
type Message struct {
	GuildID   string
	ChannelID string
	UserID    string
	Username  string
	Text      string

	// Flags filled in by the adapter.
	IsBot bool
}
