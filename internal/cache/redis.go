package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const checkoutPending = "pending"

// RedisStore guarda el token de M-Pesa y las claves de idempotencia del checkout.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) GetToken(ctx context.Context, key string) (string, bool, error) {
	val, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *RedisStore) SetToken(ctx context.Context, key, token string, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, token, ttl).Err()
}

// ReserveCheckout reserva la clave de idempotencia. Devuelve false si ya fue usada,
// junto con el id de orden asociado si el primer intento llegó a crearla.
func (s *RedisStore) ReserveCheckout(ctx context.Context, key string, ttl time.Duration) (bool, string, error) {
	redisKey := checkoutKey(key)
	ok, err := s.rdb.SetNX(ctx, redisKey, checkoutPending, ttl).Result()
	if err != nil {
		return false, "", err
	}
	if ok {
		return true, "", nil
	}

	val, err := s.rdb.Get(ctx, redisKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, "", err
	}
	if val == checkoutPending {
		val = ""
	}
	return false, val, nil
}

// CompleteCheckout asocia la clave con la orden creada, respetando el TTL original.
func (s *RedisStore) CompleteCheckout(ctx context.Context, key, orderID string) error {
	return s.rdb.SetXX(ctx, checkoutKey(key), orderID, redis.KeepTTL).Err()
}

// ReleaseCheckout libera la clave cuando el checkout falló antes de crear la orden.
func (s *RedisStore) ReleaseCheckout(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, checkoutKey(key)).Err()
}

func checkoutKey(key string) string {
	return fmt.Sprintf("idempotent-key:%s", key)
}
