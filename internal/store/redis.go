package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/playperu/beastgames/internal/beastgames"
)

const keyPrefix = "beastgames"

func userKey(id string) string {
	return fmt.Sprintf("%s:user:%s", keyPrefix, id)
}

// usersIndexKey is the SET of every user id in the collection.
func usersIndexKey() string {
	return keyPrefix + ":idx:users"
}

// changesChannel carries the id of every written document, so that all
// processes sharing the Redis instance refresh their subscriptions.
func changesChannel() string {
	return keyPrefix + ":changes"
}

// maxTxRetries bounds optimistic-lock retries for read-modify-write updates.
const maxTxRetries = 5

// RedisStore keeps each profile as a JSON string value.
type RedisStore struct {
	client *redis.Client
	hub    *hub
	logger *slog.Logger
	pubsub *redis.PubSub
	done   chan struct{}
}

// NewRedisStore connects to url and starts listening for change
// notifications.
func NewRedisStore(ctx context.Context, url string, logger *slog.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return NewRedisStoreWithClient(ctx, client, logger)
}

// NewRedisStoreWithClient wraps an existing client. The store owns the
// client from then on and closes it in Close.
func NewRedisStoreWithClient(ctx context.Context, client *redis.Client, logger *slog.Logger) (*RedisStore, error) {
	pubsub := client.Subscribe(ctx, changesChannel())
	// Wait for the subscription confirmation so writes made right after
	// construction are observed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribing to changes: %w", err)
	}

	s := &RedisStore{
		client: client,
		hub:    newHub(),
		logger: logger,
		pubsub: pubsub,
		done:   make(chan struct{}),
	}
	go s.listen()
	return s, nil
}

func (s *RedisStore) listen() {
	defer close(s.done)
	for range s.pubsub.Channel() {
		s.hub.notify()
	}
}

func (s *RedisStore) publish(ctx context.Context, ids ...string) {
	for _, id := range ids {
		if err := s.client.Publish(ctx, changesChannel(), id).Err(); err != nil {
			s.logger.Warn("publishing profile change failed", "id", id, "error", err)
		}
	}
}

func (s *RedisStore) Get(ctx context.Context, id string) (beastgames.Profile, error) {
	data, err := s.client.Get(ctx, userKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return beastgames.Profile{}, ErrNotFound
	}
	if err != nil {
		return beastgames.Profile{}, err
	}
	return decodeProfile(id, data)
}

func (s *RedisStore) Set(ctx context.Context, p beastgames.Profile) error {
	if p.ID == "" {
		return errors.New("profile id is required")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, userKey(p.ID), data, 0)
		pipe.SAdd(ctx, usersIndexKey(), p.ID)
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(ctx, p.ID)
	return nil
}

func (s *RedisStore) Update(ctx context.Context, id string, patch Patch) error {
	if err := s.Batch(ctx, []BatchUpdate{{ID: id, Patch: patch}}); err != nil {
		var batchErr *batchError
		if errors.As(err, &batchErr) {
			return batchErr.err
		}
		return err
	}
	return nil
}

type batchError struct {
	id  string
	err error
}

func (e *batchError) Error() string { return fmt.Sprintf("updating %s: %v", e.id, e.err) }

func (e *batchError) Unwrap() error { return e.err }

// Batch reads every target under WATCH and writes them in one MULTI/EXEC,
// retrying when another client touches a watched key in between.
func (s *RedisStore) Batch(ctx context.Context, updates []BatchUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	keys := make([]string, len(updates))
	for i, u := range updates {
		if len(u.Patch) == 0 {
			return &batchError{id: u.ID, err: errors.New("empty patch")}
		}
		keys[i] = userKey(u.ID)
	}

	txf := func(tx *redis.Tx) error {
		values, err := tx.MGet(ctx, keys...).Result()
		if err != nil {
			return err
		}

		encoded := make([][]byte, len(updates))
		for i, u := range updates {
			raw, ok := values[i].(string)
			if !ok {
				return &batchError{id: u.ID, err: ErrNotFound}
			}
			var doc map[string]any
			if err := json.Unmarshal([]byte(raw), &doc); err != nil {
				return &batchError{id: u.ID, err: err}
			}
			if err := applyPatch(doc, u.Patch); err != nil {
				return &batchError{id: u.ID, err: err}
			}
			if encoded[i], err = json.Marshal(doc); err != nil {
				return &batchError{id: u.ID, err: err}
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for i := range updates {
				pipe.Set(ctx, keys[i], encoded[i], 0)
			}
			return nil
		})
		return err
	}

	for range maxTxRetries {
		err := s.client.Watch(ctx, txf, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return err
		}
		ids := make([]string, len(updates))
		for i, u := range updates {
			ids[i] = u.ID
		}
		s.publish(ctx, ids...)
		return nil
	}
	return fmt.Errorf("batch update: %w", redis.TxFailedErr)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, userKey(id))
		pipe.SRem(ctx, usersIndexKey(), id)
		return nil
	})
	if err != nil {
		return err
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	s.publish(ctx, id)
	return nil
}

func (s *RedisStore) Query(ctx context.Context, q Query) ([]beastgames.Profile, error) {
	if q.ID != "" {
		p, err := s.Get(ctx, q.ID)
		if errors.Is(err, ErrNotFound) {
			return []beastgames.Profile{}, nil
		}
		if err != nil {
			return nil, err
		}
		return []beastgames.Profile{p}, nil
	}

	ids, err := s.client.SMembers(ctx, usersIndexKey()).Result()
	if err != nil {
		return nil, err
	}
	profiles := []beastgames.Profile{}
	if len(ids) == 0 {
		return profiles, nil
	}
	slices.Sort(ids)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = userKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Index entry without a document; skip the orphan.
			continue
		}
		p, err := decodeProfile(ids[i], []byte(raw))
		if err != nil {
			return nil, err
		}
		if q.matches(p) {
			profiles = append(profiles, p)
		}
	}
	return profiles, nil
}

func (s *RedisStore) Subscribe(ctx context.Context, q Query) (*Subscription, error) {
	return s.hub.watch(ctx, q, s.Query)
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	err := s.pubsub.Close()
	<-s.done
	if cerr := s.client.Close(); err == nil {
		err = cerr
	}
	return err
}

var _ Store = (*RedisStore)(nil)
