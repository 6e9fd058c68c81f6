package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tablewise-app/tablewise-backend/internal/cart"
	pkgredis "github.com/tablewise-app/tablewise-backend/pkg/redis"
)

// RedisAdapter persists one session's cart under a TTL'd key and broadcasts
// changes on a per-session pub/sub channel.
type RedisAdapter struct {
	client    *pkgredis.Client
	sessionID string
	origin    string
	ttl       time.Duration
}

// NewRedisAdapter binds an adapter to a session. Each adapter instance gets
// its own origin id, so it ignores the broadcasts of its own saves.
func NewRedisAdapter(client *pkgredis.Client, sessionID string, ttl time.Duration) (*RedisAdapter, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	if sessionID == "" {
		return nil, errors.New("session id required")
	}
	return &RedisAdapter{
		client:    client,
		sessionID: sessionID,
		origin:    uuid.NewString(),
		ttl:       ttl,
	}, nil
}

// Load pulls the session's snapshot, reporting absence without error.
func (a *RedisAdapter) Load(ctx context.Context) (cart.Snapshot, bool, error) {
	raw, err := a.client.Get(ctx, a.client.SessionCartKey(a.sessionID))
	if err != nil {
		if errors.Is(err, pkgredis.Nil) {
			return cart.Snapshot{}, false, nil
		}
		return cart.Snapshot{}, false, fmt.Errorf("load session cart: %w", err)
	}

	var snapshot cart.Snapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return cart.Snapshot{}, false, fmt.Errorf("decode session cart: %w", err)
	}
	return snapshot, true, nil
}

// Save serializes the snapshot under the session key and broadcasts the
// change. An empty cart drops the key instead of storing an empty record, so
// a cleared session carries no state past its TTL. The broadcast is
// best-effort: a failed publish does not fail the save, since the key is
// already durable for the session.
func (a *RedisAdapter) Save(ctx context.Context, snapshot cart.Snapshot) error {
	key := a.client.SessionCartKey(a.sessionID)
	if snapshot.IsEmpty() && snapshot.AppliedPromo == nil {
		if err := a.client.Del(ctx, key); err != nil {
			return fmt.Errorf("drop session cart: %w", err)
		}
	} else {
		payload, err := json.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("encode session cart: %w", err)
		}
		if err := a.client.Set(ctx, key, payload, a.ttl); err != nil {
			return fmt.Errorf("save session cart: %w", err)
		}
	}

	broadcast, err := json.Marshal(envelope{Origin: a.origin, Snapshot: snapshot})
	if err != nil {
		return nil
	}
	_ = a.client.Publish(ctx, a.client.CartChangedChannel(a.sessionID), broadcast)
	return nil
}

// OnExternalChange subscribes to the session's change channel and invokes fn
// for every snapshot written by a different origin.
func (a *RedisAdapter) OnExternalChange(ctx context.Context, fn func(cart.Snapshot)) (func(), error) {
	pubsub, err := a.client.Subscribe(ctx, a.client.CartChangedChannel(a.sessionID))
	if err != nil {
		return nil, fmt.Errorf("subscribe session cart: %w", err)
	}

	go func() {
		for msg := range pubsub.Channel() {
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				continue
			}
			if env.Origin == a.origin {
				continue
			}
			fn(env.Snapshot)
		}
	}()

	return func() { _ = pubsub.Close() }, nil
}
