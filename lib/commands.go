package lib

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fiffu/bountywatch/lib/models"
	"github.com/fiffu/bountywatch/lib/poller"
	"go.uber.org/zap"
)

type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeExists   Outcome = "exists"
	OutcomeNotFound Outcome = "not_found"
	OutcomeInvalid  Outcome = "invalid"
	OutcomeRetry    Outcome = "retry"
)

const RetryMessage = "Something went wrong, please try again later."

// Ack is the reply to an admin command.
type Ack struct {
	Outcome   Outcome
	Message   string
	Locations []string
	Report    *poller.CycleReport
}

// Commands turns admin requests into service calls and user-facing replies.
// Storage failures never leak; they become a retry ack.
type Commands struct {
	log *zap.Logger
	svc *Service
}

func NewCommands(log *zap.Logger, svc *Service) *Commands {
	return &Commands{log, svc}
}

func (c *Commands) retry(op string, err error) Ack {
	c.log.Sugar().Errorw("Command failed", "command", op, "err", err)
	return Ack{Outcome: OutcomeRetry, Message: RetryMessage}
}

// Configure points the tenant at destinationID. The ping group is only
// changed when groupID is given.
func (c *Commands) Configure(ctx context.Context, tenantID, destinationID string, groupID *string) Ack {
	tenantID, destinationID = strings.TrimSpace(tenantID), strings.TrimSpace(destinationID)
	if tenantID == "" || destinationID == "" {
		return Ack{Outcome: OutcomeInvalid, Message: "A tenant and a destination are required."}
	}

	if err := c.svc.SetDestination(ctx, tenantID, destinationID); err != nil {
		return c.retry("configure", err)
	}

	msg := fmt.Sprintf("Bounties will be posted to %s", destinationID)
	if groupID != nil && *groupID != "" {
		if _, err := c.svc.SetPingGroup(ctx, tenantID, groupID); err != nil {
			return c.retry("configure", err)
		}
		msg += fmt.Sprintf(" with %s pings", *groupID)
	}
	return Ack{Outcome: OutcomeOK, Message: msg}
}

func (c *Commands) Subscribe(ctx context.Context, tenantID, userID, location string) Ack {
	normalized := models.NormalizeLocation(location)
	if normalized == "" {
		return Ack{Outcome: OutcomeInvalid, Message: "A location is required."}
	}

	created, err := c.svc.AddSubscription(ctx, userID, tenantID, location)
	if err != nil {
		return c.retry("subscribe", err)
	}
	if !created {
		return Ack{Outcome: OutcomeExists, Message: fmt.Sprintf("You're already subscribed to **%s**.", normalized)}
	}
	return Ack{Outcome: OutcomeOK, Message: fmt.Sprintf("Subscribed to **%s** bounties!", normalized)}
}

func (c *Commands) Unsubscribe(ctx context.Context, tenantID, userID, location string) Ack {
	normalized := models.NormalizeLocation(location)
	if normalized == "" {
		return Ack{Outcome: OutcomeInvalid, Message: "A location is required."}
	}

	removed, err := c.svc.RemoveSubscription(ctx, userID, tenantID, location)
	if err != nil {
		return c.retry("unsubscribe", err)
	}
	if !removed {
		return Ack{Outcome: OutcomeNotFound, Message: fmt.Sprintf("No subscription found for **%s**.", normalized)}
	}
	return Ack{Outcome: OutcomeOK, Message: fmt.Sprintf("Unsubscribed from **%s**.", normalized)}
}

func (c *Commands) ListSubscriptions(ctx context.Context, tenantID, userID string) Ack {
	locations, err := c.svc.ListSubscriptions(ctx, userID, tenantID)
	if err != nil {
		return c.retry("list subscriptions", err)
	}
	if len(locations) == 0 {
		return Ack{
			Outcome:   OutcomeOK,
			Message:   "You have no active subscriptions. Subscribe to a location to add one!",
			Locations: []string{},
		}
	}

	lines := make([]string, len(locations))
	for i, loc := range locations {
		lines[i] = fmt.Sprintf("• **%s**", loc)
	}
	return Ack{Outcome: OutcomeOK, Message: strings.Join(lines, "\n"), Locations: locations}
}

// Poll runs a cycle on demand.
func (c *Commands) Poll(ctx context.Context) Ack {
	report, err := c.svc.RunCycle(ctx)
	switch {
	case errors.Is(err, poller.ErrCycleInProgress):
		return Ack{Outcome: OutcomeExists, Message: "A poll is already running."}
	case err != nil:
		return c.retry("poll", err)
	}
	return Ack{
		Outcome: OutcomeOK,
		Message: fmt.Sprintf("Announced %d new bounties.", report.New),
		Report:  report,
	}
}
