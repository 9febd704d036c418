// Package settings stores the per-sales-channel Trxps settings in Redis.
package settings

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/programmierbude/trxps-gateway/internal/domain"
)

const keyPrefix = "trxps:settings:"

const (
	fieldLiveAPIKey = "live_api_key"
	fieldTestAPIKey = "test_api_key"
	fieldLiveShopID = "live_shop_id"
	fieldTestShopID = "test_shop_id"
	fieldTestMode   = "test_mode"
	fieldDebugMode  = "debug_mode"
)

// Store reads and writes settings hashes. Fields missing from a hash fall
// back to the defaults the Store was created with.
type Store struct {
	client   redis.UniversalClient
	defaults domain.Settings
}

// NewStore creates a Store.
func NewStore(client redis.UniversalClient, defaults domain.Settings) *Store {
	return &Store{client: client, defaults: defaults}
}

func key(salesChannelID string) string {
	return keyPrefix + salesChannelID
}

// Get returns the settings of a sales channel.
func (s *Store) Get(ctx context.Context, salesChannelID string) (domain.Settings, error) {
	values, err := s.client.HGetAll(ctx, key(salesChannelID)).Result()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("read settings of sales channel %s: %w", salesChannelID, err)
	}

	out := s.defaults
	if v, ok := values[fieldLiveAPIKey]; ok {
		out.LiveAPIKey = v
	}
	if v, ok := values[fieldTestAPIKey]; ok {
		out.TestAPIKey = v
	}
	if v, ok := values[fieldLiveShopID]; ok {
		out.LiveShopID = v
	}
	if v, ok := values[fieldTestShopID]; ok {
		out.TestShopID = v
	}
	if v, ok := values[fieldTestMode]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			out.TestMode = b
		}
	}
	if v, ok := values[fieldDebugMode]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			out.DebugMode = b
		}
	}
	return out, nil
}

// Put replaces the settings of a sales channel.
func (s *Store) Put(ctx context.Context, salesChannelID string, st domain.Settings) error {
	err := s.client.HSet(ctx, key(salesChannelID),
		fieldLiveAPIKey, st.LiveAPIKey,
		fieldTestAPIKey, st.TestAPIKey,
		fieldLiveShopID, st.LiveShopID,
		fieldTestShopID, st.TestShopID,
		fieldTestMode, strconv.FormatBool(st.TestMode),
		fieldDebugMode, strconv.FormatBool(st.DebugMode),
	).Err()
	if err != nil {
		return fmt.Errorf("write settings of sales channel %s: %w", salesChannelID, err)
	}
	return nil
}

// Ping checks the Redis connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
