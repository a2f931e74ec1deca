package lib

import (
	"context"

	"github.com/fiffu/bountywatch/lib/models"
	"github.com/fiffu/bountywatch/lib/store"
	"go.uber.org/zap"
)

type manageSubscriptions struct {
	log   *zap.Logger
	store *store.Store
}

func (svc *manageSubscriptions) AddSubscription(ctx context.Context, userID, tenantID, location string) (bool, error) {
	created, err := svc.store.AddSubscription(ctx, userID, tenantID, location)
	if err != nil {
		return false, err
	}
	if created {
		svc.log.Sugar().Infow("Created subscription", "tenant", tenantID, "user", userID, "location", models.NormalizeLocation(location))
	}
	return created, nil
}

func (svc *manageSubscriptions) RemoveSubscription(ctx context.Context, userID, tenantID, location string) (bool, error) {
	removed, err := svc.store.RemoveSubscription(ctx, userID, tenantID, location)
	if err != nil {
		return false, err
	}
	if removed {
		svc.log.Sugar().Infow("Removed subscription", "tenant", tenantID, "user", userID, "location", models.NormalizeLocation(location))
	}
	return removed, nil
}

func (svc *manageSubscriptions) ListSubscriptions(ctx context.Context, userID, tenantID string) ([]string, error) {
	return svc.store.UserSubscriptions(ctx, userID, tenantID)
}
