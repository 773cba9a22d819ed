package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// maxPutRetries bounds optimistic-lock retries in Put.
const maxPutRetries = 32

var _ Store = (*RedisStore)(nil)

// RedisStore keeps entries in a Redis hash under "<prefix>:entries".
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects and pings the server.
func NewRedisStore(options *redis.Options, prefix string) (*RedisStore, error) {
	client := redis.NewClient(options)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisStore{client: client, prefix: prefix}, nil
}

func (r *RedisStore) Put(ctx context.Context, entry *Entry) error {
	if err := ValidateName(entry.Name); err != nil {
		return err
	}

	key := r.entriesKey()
	txf := func(tx *redis.Tx) error {
		now := time.Now().UTC()
		stored := *entry
		stored.Modified = now

		prev, err := tx.HGet(ctx, key, entry.Name).Bytes()
		switch {
		case err == nil:
			var old Entry
			if json.Unmarshal(prev, &old) == nil {
				stored.Created = old.Created
			}
		case !errors.Is(err, redis.Nil):
			return err
		}
		if stored.Created.IsZero() {
			stored.Created = now
		}

		data, err := json.Marshal(stored)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, entry.Name, data)
			return nil
		})
		if err == nil {
			*entry = stored
		}
		return err
	}

	for i := 0; i < maxPutRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return redis.TxFailedErr
}

func (r *RedisStore) Get(ctx context.Context, name string) (*Entry, error) {
	data, err := r.client.HGet(ctx, r.entriesKey(), name).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("corrupt entry %s: %w", name, err)
	}
	return &entry, nil
}

func (r *RedisStore) Delete(ctx context.Context, name string) error {
	n, err := r.client.HDel(ctx, r.entriesKey(), name).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

func (r *RedisStore) List(ctx context.Context) ([]Entry, error) {
	all, err := r.client.HGetAll(ctx, r.entriesKey()).Result()
	if err != nil {
		return nil, err
	}

	list := make([]Entry, 0, len(all))
	for name, data := range all {
		var entry Entry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			return nil, fmt.Errorf("corrupt entry %s: %w", name, err)
		}
		list = append(list, entry)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (r *RedisStore) ID(ctx context.Context) (string, error) {
	generated, err := newStoreID()
	if err != nil {
		return "", err
	}
	// SETNX keeps the first ID when two clients race.
	if err := r.client.SetNX(ctx, r.idKey(), generated, 0).Err(); err != nil {
		return "", err
	}
	return r.client.Get(ctx, r.idKey()).Result()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) entriesKey() string {
	return r.prefix + ":entries"
}

func (r *RedisStore) idKey() string {
	return r.prefix + ":store_id"
}
