// Package commands implements the bot's interactive commands behind a
// platform-agnostic interface; the platform adapter maps interactions
// onto Invocations.
package commands

import (
	"context"
	"strings"
)

// Invocation is one interactive command call, normalized by the adapter.
type Invocation struct {
	GuildID  string
	UserID   string
	Username string
	Arg      string
}

// Command handles one interactive command. Handle returns the user-facing
// reply; a non-nil error is additionally logged by the adapter.
type Command interface {
	Name() string
	Description() string
	// NeedsText reports whether the command takes a required text argument.
	NeedsText() bool
	Handle(ctx context.Context, inv Invocation) (string, error)
}

// Registry maps command names to handlers.
type Registry struct {
	cmdIndex map[string]Command
	order    []Command
}

func NewRegistry() *Registry {
	return &Registry{cmdIndex: make(map[string]Command)}
}

func (r *Registry) Register(cmd Command) {
	name := strings.ToLower(cmd.Name())
	if _, ok := r.cmdIndex[name]; !ok {
		r.order = append(r.order, cmd)
	}
	r.cmdIndex[name] = cmd
}

func (r *Registry) Get(name string) (Command, bool) {
	cmd, ok := r.cmdIndex[strings.ToLower(name)]
	return cmd, ok
}

// All returns commands in registration order, for startup registration.
func (r *Registry) All() []Command {
	return append([]Command(nil), r.order...)
}
