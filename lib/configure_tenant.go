package lib

import (
	"context"

	"github.com/fiffu/bountywatch/lib/models"
	"github.com/fiffu/bountywatch/lib/store"
	"go.uber.org/zap"
)

type configureTenant struct {
	log   *zap.Logger
	store *store.Store
}

// SetDestination creates the tenant's configuration or replaces its
// destination. The ping group is left as it was.
func (svc *configureTenant) SetDestination(ctx context.Context, tenantID, destinationID string) error {
	if err := svc.store.SetDestination(ctx, tenantID, destinationID); err != nil {
		return err
	}
	svc.log.Sugar().Infow("Tenant destination set", "tenant", tenantID, "destination", destinationID)
	return nil
}

// SetPingGroup only touches configured tenants; a nil groupID clears it.
// It reports whether a configuration was updated.
func (svc *configureTenant) SetPingGroup(ctx context.Context, tenantID string, groupID *string) (bool, error) {
	updated, err := svc.store.SetPingGroup(ctx, tenantID, groupID)
	if err != nil {
		return false, err
	}
	if !updated {
		svc.log.Sugar().Infow("Ping group not set, tenant is unconfigured", "tenant", tenantID)
	}
	return updated, nil
}

func (svc *configureTenant) TenantConfig(ctx context.Context, tenantID string) (*models.TenantConfig, error) {
	return svc.store.TenantConfig(ctx, tenantID)
}
