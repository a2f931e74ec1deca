package senders

import (
	"context"
	"fmt"
	"strings"

	"github.com/fiffu/bountywatch/config"
	"github.com/fiffu/bountywatch/lib/models"
	"github.com/slack-go/slack"
)

type slackSender struct {
	base
	api *slack.Client
}

func newSlackSender(b base) *slackSender {
	api := slack.New(b.cfg.BotToken, slack.OptionHTTPClient(b.httpClient()))
	return &slackSender{base: b, api: api}
}

func (s *slackSender) Platform() string { return config.PlatformSlack }

func (s *slackSender) Connect(ctx context.Context) error {
	resp, err := s.api.AuthTestContext(ctx)
	if err != nil {
		return err
	}
	s.log.Sugar().Infow("Slack session live", "team", resp.Team, "bot_user", resp.UserID)
	return nil
}

func (s *slackSender) MentionUser(userID string) string {
	return fmt.Sprintf("<@%s>", userID)
}

func (s *slackSender) MentionGroup(groupID string) string {
	return fmt.Sprintf("<!subteam^%s>", groupID)
}

func (s *slackSender) SendBounty(ctx context.Context, destinationID, prefix string, n *models.Notification) (string, error) {
	fallback := n.Title
	if prefix != "" {
		fallback = prefix + " " + n.Title
	}

	_, ts, err := s.api.PostMessageContext(ctx, destinationID,
		slack.MsgOptionText(fallback, false),
		slack.MsgOptionBlocks(SlackBlocks(prefix, n)...),
	)
	if err != nil {
		return "", &DeliveryError{Platform: s.Platform(), Destination: destinationID, Err: err}
	}
	return ts, nil
}

// SlackBlocks lays a notification out as block kit sections. The prefix is
// passed through untouched so mentions keep working.
func SlackBlocks(prefix string, n *models.Notification) []slack.Block {
	blocks := make([]slack.Block, 0, 5)
	if prefix != "" {
		blocks = append(blocks, slack.NewSectionBlock(mrkdwn(prefix), nil, nil))
	}

	heading := fmt.Sprintf("*<%s|%s>*", n.URL, escapeSlack(n.Title))
	if n.Description != "" {
		heading += "\n" + escapeSlack(n.Description)
	}
	blocks = append(blocks, slack.NewSectionBlock(mrkdwn(heading), nil, nil))

	var fields []*slack.TextBlockObject
	for _, f := range n.Fields {
		fields = append(fields, mrkdwn(fmt.Sprintf("*%s*\n%s", f.Name, escapeSlack(f.Value))))
	}
	if len(fields) > 0 {
		blocks = append(blocks, slack.NewSectionBlock(nil, fields, nil))
	}

	if n.Footer != "" {
		blocks = append(blocks, slack.NewContextBlock("", mrkdwn(escapeSlack(n.Footer))))
	}
	return blocks
}

func mrkdwn(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.MarkdownType, text, false, false)
}

var slackEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeSlack(s string) string {
	return slackEscaper.Replace(s)
}
