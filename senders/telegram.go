package senders

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"sync"

	"github.com/fiffu/bountywatch/config"
	"github.com/fiffu/bountywatch/lib/models"
	tele "gopkg.in/telebot.v4"
)

type telegramSender struct {
	base

	mu  sync.Mutex
	bot *tele.Bot
}

func newTelegramSender(b base) *telegramSender {
	return &telegramSender{base: b}
}

func (s *telegramSender) Platform() string { return config.PlatformTelegram }

// Connect creates the bot online, which calls getMe and fails on a bad token.
func (s *telegramSender) Connect(ctx context.Context) error {
	bot, err := tele.NewBot(tele.Settings{
		Token:  s.cfg.BotToken,
		Client: s.httpClient(),
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.bot = bot
	s.mu.Unlock()

	s.log.Sugar().Infow("Telegram session live", "bot_user", bot.Me.Username)
	return nil
}

func (s *telegramSender) MentionUser(userID string) string {
	return fmt.Sprintf(`<a href="tg://user?id=%s">%s</a>`, html.EscapeString(userID), html.EscapeString(userID))
}

func (s *telegramSender) MentionGroup(groupID string) string {
	return "@" + html.EscapeString(strings.TrimPrefix(groupID, "@"))
}

func (s *telegramSender) SendBounty(ctx context.Context, destinationID, prefix string, n *models.Notification) (string, error) {
	s.mu.Lock()
	bot := s.bot
	s.mu.Unlock()
	if bot == nil {
		return "", &DeliveryError{Platform: s.Platform(), Destination: destinationID, Err: errors.New("not connected")}
	}

	chatID, err := strconv.ParseInt(destinationID, 10, 64)
	if err != nil {
		return "", &DeliveryError{Platform: s.Platform(), Destination: destinationID, Err: fmt.Errorf("invalid chat id: %w", err)}
	}

	type result struct {
		msg *tele.Message
		err error
	}
	done := make(chan result, 1)
	go func() {
		msg, err := bot.Send(tele.ChatID(chatID), TelegramHTML(prefix, n), &tele.SendOptions{
			ParseMode:             tele.ModeHTML,
			DisableWebPagePreview: true,
		})
		done <- result{msg, err}
	}()

	// telebot has no context support; the http client timeout bounds the
	// goroutine once ctx gives up.
	select {
	case <-ctx.Done():
		return "", &DeliveryError{Platform: s.Platform(), Destination: destinationID, Err: ctx.Err()}
	case r := <-done:
		if r.err != nil {
			return "", &DeliveryError{Platform: s.Platform(), Destination: destinationID, Err: r.err}
		}
		return strconv.Itoa(r.msg.ID), nil
	}
}

// TelegramHTML renders a notification using Telegram's HTML subset.
func TelegramHTML(prefix string, n *models.Notification) string {
	var b strings.Builder
	if prefix != "" {
		b.WriteString(prefix)
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, `<b><a href="%s">%s</a></b>`, html.EscapeString(n.URL), html.EscapeString(n.Title))
	if n.Description != "" {
		b.WriteString("\n")
		b.WriteString(html.EscapeString(n.Description))
	}

	if len(n.Fields) > 0 {
		b.WriteString("\n")
	}
	for _, f := range n.Fields {
		fmt.Fprintf(&b, "\n<b>%s:</b> %s", html.EscapeString(f.Name), html.EscapeString(f.Value))
	}

	if n.Footer != "" {
		fmt.Fprintf(&b, "\n\n<i>%s</i>", html.EscapeString(n.Footer))
	}
	return b.String()
}
