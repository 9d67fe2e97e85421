// Package discord exposes the agent as a Discord bot. Each direct message
// or mention is one independent request.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/chris/todoagent/internal/logging"
)

// Discord rejects messages longer than this.
const maxMessageLen = 2000

// Submitter runs one request and returns the reply text.
type Submitter interface {
	Submit(ctx context.Context, input string) (string, error)
}

type Bot struct {
	session *discordgo.Session
	agent   Submitter
	onDM    func(userID string)
	log     zerolog.Logger
}

type Option func(*Bot)

// WithDirectMessageHook is called with the author of every direct message
// the bot answers.
func WithDirectMessageHook(fn func(userID string)) Option {
	return func(b *Bot) { b.onDM = fn }
}

func WithLogger(l zerolog.Logger) Option {
	return func(b *Bot) { b.log = l }
}

func newBot(ag Submitter, opts ...Option) *Bot {
	b := &Bot{agent: ag, log: logging.Component("discord")}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewBot connects to Discord and starts handling messages.
func NewBot(token string, ag Submitter, opts ...Option) (*Bot, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating Discord session: %w", err)
	}

	bot := newBot(ag, opts...)
	bot.session = s
	s.AddHandler(bot.onMessage)
	s.Identify.Intents = discordgo.IntentsDirectMessages | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

	if err := s.Open(); err != nil {
		return nil, fmt.Errorf("opening Discord connection: %w", err)
	}

	bot.log.Info().Str("user", s.State.User.Username).Msg("Discord bot connected")
	return bot, nil
}

// SendDM delivers content to a user's direct message channel.
func (b *Bot) SendDM(userID, content string) error {
	ch, err := b.session.UserChannelCreate(userID)
	if err != nil {
		return fmt.Errorf("opening DM channel: %w", err)
	}
	for _, chunk := range splitMessage(content, maxMessageLen) {
		if _, err := b.session.ChannelMessageSend(ch.ID, chunk); err != nil {
			return fmt.Errorf("sending DM: %w", err)
		}
	}
	return nil
}

func (b *Bot) Close() {
	if err := b.session.Close(); err != nil {
		b.log.Warn().Err(err).Msg("closing Discord session")
	}
}
