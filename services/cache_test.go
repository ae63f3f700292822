package services

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

func TestNewCacheSelection(t *testing.T) {
	testCases := []struct {
		name     string
		client   *redis.Client
		ttl      time.Duration
		wantNoop bool
	}{
		{"nil client", nil, time.Minute, true},
		{"zero ttl disables caching", redis.NewClient(&redis.Options{}), 0, true},
		{"negative ttl disables caching", redis.NewClient(&redis.Options{}), -time.Second, true},
		{"client and positive ttl", redis.NewClient(&redis.Options{}), time.Minute, false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			c := NewCache(tc.client, tc.ttl)
			_, isNoop := c.(NoopCache)
			if isNoop != tc.wantNoop {
				t.Errorf("expected noop=%v, got %T", tc.wantNoop, c)
			}
		})
	}
}

func TestNoopCacheNeverHits(t *testing.T) {
	c := NoopCache{}
	c.Put(context.Background(), "k", "v", time.Minute)

	var dest string
	if c.Get(context.Background(), "k", &dest) {
		t.Error("noop cache must never report a hit")
	}
}
