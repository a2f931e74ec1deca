package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fiffu/bountywatch/lib/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StorageError wraps any failure from the underlying database with the
// operation that triggered it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// Store is the data access layer for tenant configs, subscriptions and the
// seen-item ledger. Each method is a single statement.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func New(db *gorm.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Migrate creates or updates the three relations the service persists.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.TenantConfig{},
		&models.Subscription{},
		&models.SeenItem{},
	)
}

// Tenant configuration

func (s *Store) SetDestination(ctx context.Context, tenantID, destinationID string) error {
	cfg := &models.TenantConfig{TenantID: tenantID, DestinationID: destinationID}
	tx := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"destination_id"}),
		}).
		Create(cfg)
	return wrap("set destination", tx.Error)
}

// SetPingGroup updates the ping group of an existing configuration. It reports
// false when the tenant has not been configured yet.
func (s *Store) SetPingGroup(ctx context.Context, tenantID string, groupID *string) (bool, error) {
	value := sql.NullString{}
	if groupID != nil {
		value = sql.NullString{String: *groupID, Valid: true}
	}
	tx := s.db.WithContext(ctx).
		Model(&models.TenantConfig{}).
		Where("tenant_id = ?", tenantID).
		Update("ping_group_id", value)
	if err := tx.Error; err != nil {
		return false, wrap("set ping group", err)
	}
	return tx.RowsAffected > 0, nil
}

func (s *Store) TenantConfig(ctx context.Context, tenantID string) (*models.TenantConfig, error) {
	cfg := &models.TenantConfig{}
	tx := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(cfg)
	if err := tx.Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, wrap("get tenant config", err)
	}
	return cfg, nil
}

func (s *Store) TenantConfigs(ctx context.Context) (models.TenantConfigs, error) {
	var cfgs models.TenantConfigs
	tx := s.db.WithContext(ctx).Order("tenant_id").Find(&cfgs)
	return cfgs, wrap("list tenant configs", tx.Error)
}

// Subscriptions

func (s *Store) AddSubscription(ctx context.Context, userID, tenantID, location string) (bool, error) {
	sub := &models.Subscription{
		UserID:    userID,
		TenantID:  tenantID,
		Location:  models.NormalizeLocation(location),
		CreatedAt: s.now(),
	}
	tx := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(sub)
	if err := tx.Error; err != nil {
		return false, wrap("add subscription", err)
	}
	return tx.RowsAffected > 0, nil
}

func (s *Store) RemoveSubscription(ctx context.Context, userID, tenantID, location string) (bool, error) {
	tx := s.db.WithContext(ctx).
		Where("user_id = ? AND tenant_id = ? AND location = ?", userID, tenantID, models.NormalizeLocation(location)).
		Delete(&models.Subscription{})
	if err := tx.Error; err != nil {
		return false, wrap("remove subscription", err)
	}
	return tx.RowsAffected > 0, nil
}

func (s *Store) UserSubscriptions(ctx context.Context, userID, tenantID string) ([]string, error) {
	locations := make([]string, 0)
	tx := s.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("user_id = ? AND tenant_id = ?", userID, tenantID).
		Order("id").
		Pluck("location", &locations)
	return locations, wrap("list user subscriptions", tx.Error)
}

func (s *Store) TenantSubscriptions(ctx context.Context, tenantID string) (models.Subscriptions, error) {
	var subs models.Subscriptions
	tx := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("id").Find(&subs)
	return subs, wrap("list tenant subscriptions", tx.Error)
}

// Seen-item ledger

func (s *Store) Seen(ctx context.Context, itemIDs []string) (map[string]bool, error) {
	seen := make(map[string]bool, len(itemIDs))
	if len(itemIDs) == 0 {
		return seen, nil
	}

	var found []string
	tx := s.db.WithContext(ctx).
		Model(&models.SeenItem{}).
		Where("item_id IN ?", itemIDs).
		Pluck("item_id", &found)
	if err := tx.Error; err != nil {
		return nil, wrap("query seen items", err)
	}
	for _, id := range found {
		seen[id] = true
	}
	return seen, nil
}

// Claim records an item as seen. It reports true only for the call that
// actually inserted the row; later claims of the same id are absorbed and
// leave the first title and price untouched.
func (s *Store) Claim(ctx context.Context, item models.FeedItem) (bool, error) {
	row := &models.SeenItem{
		ItemID:      item.ID,
		Title:       item.Title,
		Price:       item.PriceOrZero(),
		FirstSeenAt: s.now(),
	}
	tx := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(row)
	if err := tx.Error; err != nil {
		return false, wrap("mark item seen", err)
	}
	return tx.RowsAffected > 0, nil
}

func (s *Store) SeenItem(ctx context.Context, itemID string) (*models.SeenItem, error) {
	item := &models.SeenItem{}
	tx := s.db.WithContext(ctx).Where("item_id = ?", itemID).First(item)
	if err := tx.Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, wrap("get seen item", err)
	}
	return item, nil
}
