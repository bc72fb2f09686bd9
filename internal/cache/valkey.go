package cache

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"yoyaku/internal/models"
)

type Config struct {
	Addr     string
	Password string
	PlanTTL  time.Duration
	ListTTL  time.Duration
	AuthTTL  time.Duration
}

type ValkeyClient struct {
	client *redis.Client
	cfg    Config
}

func NewValkeyClient(cfg Config) (*ValkeyClient, error) {
	if cfg.PlanTTL == 0 {
		cfg.PlanTTL = 5 * time.Minute
	}
	if cfg.ListTTL == 0 {
		cfg.ListTTL = time.Minute
	}
	if cfg.AuthTTL == 0 {
		cfg.AuthTTL = 10 * time.Minute
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	return &ValkeyClient{client: rdb, cfg: cfg}, nil
}

// GetActivePlans returns the cached active price plans, or redis.Nil-backed
// error on miss.
func (v *ValkeyClient) GetActivePlans(ctx context.Context) ([]models.PricePlan, error) {
	raw, err := v.client.Get(ctx, "price_plans:active").Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("price plans not cached")
		}
		return nil, fmt.Errorf("cache lookup error: %w", err)
	}

	var plans []models.PricePlan
	if err := json.Unmarshal(raw, &plans); err != nil {
		return nil, fmt.Errorf("invalid cached plans: %w", err)
	}

	return plans, nil
}

func (v *ValkeyClient) SetActivePlans(ctx context.Context, plans []models.PricePlan) {
	raw, err := json.Marshal(plans)
	if err != nil {
		return
	}
	v.client.Set(ctx, "price_plans:active", raw, v.cfg.PlanTTL)
}

// GetRestaurantsListRaw serves the browse list as raw JSON to skip the
// unmarshal/marshal round trip on a hit.
func (v *ValkeyClient) GetRestaurantsListRaw(ctx context.Context, page, pageSize int) ([]byte, error) {
	key := fmt.Sprintf("restaurants:list:%d:%d", page, pageSize)
	raw, err := v.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("restaurant list not cached")
		}
		return nil, fmt.Errorf("cache lookup error: %w", err)
	}
	return raw, nil
}

func (v *ValkeyClient) SetRestaurantsList(ctx context.Context, page, pageSize int, list interface{}) {
	raw, err := json.Marshal(list)
	if err != nil {
		return
	}
	key := fmt.Sprintf("restaurants:list:%d:%d", page, pageSize)
	v.client.Set(ctx, key, raw, v.cfg.ListTTL)
}

// GetStaffIDByAuth looks up a previously verified staff credential pair
func (v *ValkeyClient) GetStaffIDByAuth(ctx context.Context, email, credentialHash string) (int64, error) {
	key := authCacheKey(email, credentialHash)
	idStr, err := v.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, fmt.Errorf("staff credentials not cached")
		}
		return 0, fmt.Errorf("cache lookup error: %w", err)
	}

	userID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user ID in cache: %w", err)
	}

	return userID, nil
}

// SetStaffAuth caches a credential pair only after bcrypt verification
func (v *ValkeyClient) SetStaffAuth(ctx context.Context, email, credentialHash string, userID int64) {
	key := authCacheKey(email, credentialHash)
	v.client.Set(ctx, key, strconv.FormatInt(userID, 10), v.cfg.AuthTTL)
}

func authCacheKey(email, credentialHash string) string {
	pair := base64.StdEncoding.EncodeToString([]byte(email + ":" + credentialHash))
	return "staff:auth:" + pair
}

func (v *ValkeyClient) Close() error {
	return v.client.Close()
}
