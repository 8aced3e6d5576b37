package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var Rdb *redis.Client

// InitRedis connects the shared client and verifies the connection. The
// session store, delayed queue and pub/sub bridge all share this client.
func InitRedis(address, username, password string) (*redis.Client, error) {
	Rdb = redis.NewClient(&redis.Options{
		Addr:     address,
		Username: username,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	log.Info().Str("address", address).Msg("connected to redis")
	return Rdb, nil
}
