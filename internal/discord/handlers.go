package discord

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/chris/todoagent/internal/agent"
)

func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	content := prompt(m.Message, s.State.User.ID)
	if content == "" {
		return
	}

	// Show typing indicator
	_ = s.ChannelTyping(m.ChannelID)

	for _, chunk := range b.respond(context.Background(), m.Message, content) {
		if _, err := s.ChannelMessageSend(m.ChannelID, chunk); err != nil {
			b.log.Error().Err(err).Str("channel", m.ChannelID).Msg("sending reply")
			return
		}
	}
}

// prompt returns the request text of m, or "" when the bot should ignore
// it. Only direct messages and mentions from other users are answered.
func prompt(m *discordgo.Message, botID string) string {
	if m.Author == nil || m.Author.ID == botID || m.Author.Bot {
		return ""
	}

	isDM := m.GuildID == ""
	isMentioned := false
	for _, u := range m.Mentions {
		if u.ID == botID {
			isMentioned = true
			break
		}
	}
	if !isDM && !isMentioned {
		return ""
	}

	return strings.TrimSpace(stripMention(m.Content, botID))
}

// respond submits content and returns the reply split into sendable chunks.
func (b *Bot) respond(ctx context.Context, m *discordgo.Message, content string) []string {
	if m.GuildID == "" && b.onDM != nil {
		b.onDM(m.Author.ID)
	}

	reply, err := b.agent.Submit(ctx, content)
	if errors.Is(err, agent.ErrBusy) {
		b.log.Debug().Str("author", m.Author.ID).Msg("request dropped, agent busy")
	} else if err != nil {
		b.log.Error().Err(err).Msg("agent error")
		reply = "Something went wrong. Try again?"
	}
	return splitMessage(reply, maxMessageLen)
}

func stripMention(s, userID string) string {
	s = strings.ReplaceAll(s, "<@"+userID+">", "")
	s = strings.ReplaceAll(s, "<@!"+userID+">", "")
	return s
}

func splitMessage(s string, maxLen int) []string {
	if len(s) <= maxLen {
		return []string{s}
	}
	var chunks []string
	for len(s) > 0 {
		end := maxLen
		if end > len(s) {
			end = len(s)
		}
		// Try to split at a newline
		if idx := strings.LastIndex(s[:end], "\n"); idx > 0 {
			end = idx + 1
		} else if end < len(s) {
			// Never cut inside a multi-byte rune.
			for end > 0 && !utf8.RuneStart(s[end]) {
				end--
			}
			if end == 0 {
				_, end = utf8.DecodeRuneInString(s)
			}
		}
		chunks = append(chunks, s[:end])
		s = s[end:]
	}
	return chunks
}
