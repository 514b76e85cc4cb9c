// day-night-cycle - publish whether it is currently day or night
//  Copyright (C) 2026, The Cacophony Project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package sink publishes day/night state to Redis: fields are kept in a
// hash and every update is also broadcast with PUBLISH.
package sink

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultRedisConfig returns a config for a Redis server on localhost.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		URL:     "redis://127.0.0.1:6379/0",
		Timeout: 5 * time.Second,
	}
}

func (conf *RedisConfig) Validate() error {
	if _, err := redis.ParseURL(conf.URL); err != nil {
		return fmt.Errorf("invalid redis url: %v", err)
	}
	if conf.Timeout <= 0 {
		return fmt.Errorf("redis timeout should be positive")
	}
	return nil
}

// RedactedURL returns the URL with any password masked.
func (conf *RedisConfig) RedactedURL() string {
	u, err := url.Parse(conf.URL)
	if err != nil {
		return "<invalid>"
	}
	return u.Redacted()
}

// Redis writes to a single long lived Redis connection. Failed commands
// are not retried.
type Redis struct {
	client  *redis.Client
	timeout time.Duration
	log     zerolog.Logger
}

// NewRedis connects to Redis and checks the connection with a PING.
func NewRedis(ctx context.Context, conf RedisConfig, logger zerolog.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(conf.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opts.PoolSize = 1
	opts.MaxRetries = -1
	opts.DialTimeout = conf.Timeout
	opts.ReadTimeout = conf.Timeout
	opts.WriteTimeout = conf.Timeout

	r := &Redis{
		client:  redis.NewClient(opts),
		timeout: conf.Timeout,
		log:     logger.With().Str("component", "redis").Logger(),
	}

	pingCtx, cancel := context.WithTimeout(ctx, conf.Timeout)
	defer cancel()
	if err := r.client.Ping(pingCtx).Err(); err != nil {
		r.client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", opts.Addr, err)
	}

	r.log.Info().Str("addr", opts.Addr).Int("db", opts.DB).Msg("connected to redis")
	return r, nil
}

// SetFields sets several fields of the hash named collection.
func (r *Redis) SetFields(ctx context.Context, collection string, fields map[string]string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	values := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		values[k] = v
	}
	if err := r.client.HSet(ctx, collection, values).Err(); err != nil {
		return err
	}
	r.log.Debug().Str("key", collection).Interface("fields", fields).Msg("HSET")
	return nil
}

// SetField sets one field of the hash named collection.
func (r *Redis) SetField(ctx context.Context, collection, field, value string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.client.HSet(ctx, collection, field, value).Err(); err != nil {
		return err
	}
	r.log.Debug().Str("key", collection).Str(field, value).Msg("HSET")
	return nil
}

// Broadcast publishes message on channel. It doesn't matter whether
// anyone is subscribed.
func (r *Redis) Broadcast(ctx context.Context, channel, message string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	receivers, err := r.client.Publish(ctx, channel, message).Result()
	if err != nil {
		return err
	}
	r.log.Debug().
		Str("channel", channel).
		Str("message", message).
		Int64("receivers", receivers).
		Msg("PUBLISH")
	return nil
}

// Close closes the connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
