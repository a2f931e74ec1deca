package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fiffu/bountywatch/lib/models"
	"github.com/redis/go-redis/v9"
)

// Ledger is the set of item ids already announced.
type Ledger interface {
	Seen(ctx context.Context, itemIDs []string) (map[string]bool, error)
	Claim(ctx context.Context, item models.FeedItem) (bool, error)
}

var (
	_ Ledger = (*Store)(nil)
	_ Ledger = (*RedisLedger)(nil)
)

const redisLedgerPrefix = "bountywatch:seen:"

// RedisLedger keeps the ledger in redis, one key per item without expiry.
// Claims rely on SETNX so concurrent claimers of one id have a single winner.
type RedisLedger struct {
	rdb *redis.Client
	now func() time.Time
}

// NewRedisLedger parses redisURL and verifies connectivity.
func NewRedisLedger(ctx context.Context, redisURL string) (*RedisLedger, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisLedger{rdb: rdb, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (l *RedisLedger) Close() error {
	return l.rdb.Close()
}

func (l *RedisLedger) Seen(ctx context.Context, itemIDs []string) (map[string]bool, error) {
	seen := make(map[string]bool, len(itemIDs))
	if len(itemIDs) == 0 {
		return seen, nil
	}

	keys := make([]string, len(itemIDs))
	for i, id := range itemIDs {
		keys[i] = redisLedgerPrefix + id
	}
	values, err := l.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, wrap("query seen items", err)
	}
	for i, v := range values {
		if v != nil {
			seen[itemIDs[i]] = true
		}
	}
	return seen, nil
}

func (l *RedisLedger) Claim(ctx context.Context, item models.FeedItem) (bool, error) {
	entry, err := json.Marshal(models.SeenItem{
		ItemID:      item.ID,
		Title:       item.Title,
		Price:       item.PriceOrZero(),
		FirstSeenAt: l.now(),
	})
	if err != nil {
		return false, wrap("mark item seen", err)
	}

	ok, err := l.rdb.SetNX(ctx, redisLedgerPrefix+item.ID, entry, 0).Result()
	if err != nil {
		return false, wrap("mark item seen", err)
	}
	return ok, nil
}

// SeenItem reads back a ledger entry, or nil when the id was never claimed.
func (l *RedisLedger) SeenItem(ctx context.Context, itemID string) (*models.SeenItem, error) {
	b, err := l.rdb.Get(ctx, redisLedgerPrefix+itemID).Bytes()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, wrap("get seen item", err)
	}

	item := &models.SeenItem{}
	if err := json.Unmarshal(b, item); err != nil {
		return nil, wrap("decode seen item", err)
	}
	return item, nil
}
