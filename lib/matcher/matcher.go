// Package matcher decides which subscribers of a tenant care about a bounty's
// location.
package matcher

import (
	"context"
	"strings"

	"github.com/fiffu/bountywatch/lib/models"
)

type SubscriptionSource interface {
	TenantSubscriptions(ctx context.Context, tenantID string) (models.Subscriptions, error)
}

type Matcher struct {
	subs SubscriptionSource
}

func New(subs SubscriptionSource) *Matcher {
	return &Matcher{subs}
}

// Match returns the users of tenantID whose stored location is a substring of
// location, or contains it. The comparison is case-insensitive and purely
// literal, so short stored values match broadly. User ids are unique and in
// subscription order.
func (m *Matcher) Match(ctx context.Context, tenantID, location string) ([]string, error) {
	location = strings.ToLower(location)
	if location == "" {
		return nil, nil
	}

	subs, err := m.subs.TenantSubscriptions(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	users := make([]string, 0)
	for _, sub := range subs {
		if seen[sub.UserID] || !Overlaps(sub.Location, location) {
			continue
		}
		seen[sub.UserID] = true
		users = append(users, sub.UserID)
	}
	return users, nil
}

// Overlaps is the bidirectional substring test. Both arguments must already be
// lowercase.
func Overlaps(stored, location string) bool {
	return strings.Contains(location, stored) || strings.Contains(stored, location)
}
