// Package redisstore keeps persistent subscriptions and topic marks in
// Redis, for naming spaces whose subscription state must outlive any
// single name-server process.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hanyuan666/yarp/namespace"
)

const (
	subsKey   = "yarp:subscriptions"
	topicsKey = "yarp:topics"
)

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Username string
	Password string
	DB       int
	Timeout  time.Duration
}

// Store implements namespace.SubscriptionStore on two Redis keys: a
// hash for subscriptions and a set for topic marks.
type Store struct {
	rdb     *redis.Client
	timeout time.Duration
}

// New connects to Redis and verifies the connection with a ping.
func New(opts Options) (*Store, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.Username,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.Timeout,
		ReadTimeout:  opts.Timeout,
		WriteTimeout: opts.Timeout,
	})
	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redisstore: ping %s: %w", opts.Addr, err)
	}
	return &Store{rdb: rdb, timeout: opts.Timeout}, nil
}

// Close releases the client.
func (s *Store) Close() error { return s.rdb.Close() }

func (s *Store) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func field(src, dst string) string { return src + "->" + dst }

// Subscribe records a persistent link.
func (s *Store) Subscribe(src, dst, carrier string) error {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.rdb.HSet(ctx, subsKey, field(src, dst), carrier).Err()
}

// Unsubscribe drops a persistent link.
func (s *Store) Unsubscribe(src, dst string) error {
	ctx, cancel := s.ctx()
	defer cancel()
	removed, err := s.rdb.HDel(ctx, subsKey, field(src, dst)).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return namespace.ErrNotFound
	}
	return nil
}

// Subscriptions returns links touching port, or all links for "".
func (s *Store) Subscriptions(port string) ([]namespace.Subscription, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	all, err := s.rdb.HGetAll(ctx, subsKey).Result()
	if err != nil {
		return nil, err
	}
	var out []namespace.Subscription
	for key, carrier := range all {
		src, dst, ok := splitField(key)
		if !ok {
			continue
		}
		if port == "" || src == port || dst == port {
			out = append(out, namespace.Subscription{Src: src, Dst: dst, Carrier: carrier})
		}
	}
	return out, nil
}

func splitField(key string) (src, dst string, ok bool) {
	for i := 0; i+1 < len(key); i++ {
		if key[i] == '-' && key[i+1] == '>' {
			return key[:i], key[i+2:], true
		}
	}
	return "", "", false
}

// SetTopic marks or unmarks a name as a topic.
func (s *Store) SetTopic(name string, active bool) error {
	ctx, cancel := s.ctx()
	defer cancel()
	if active {
		return s.rdb.SAdd(ctx, topicsKey, name).Err()
	}
	return s.rdb.SRem(ctx, topicsKey, name).Err()
}

// IsTopic reports whether name is a topic.
func (s *Store) IsTopic(name string) (bool, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	is, err := s.rdb.SIsMember(ctx, topicsKey, name).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, err
	}
	return is, nil
}

// Topics lists topic names.
func (s *Store) Topics() ([]string, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.rdb.SMembers(ctx, topicsKey).Result()
}
