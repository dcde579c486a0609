package testutil

import (
	"context"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// defaultTestRedisDB keeps test data away from DB 0, where a developer's local instance lives.
const defaultTestRedisDB = 9

// WaitFor polls condition every interval until it returns true or timeout elapses.
func WaitFor(timeout, interval time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for {
		if condition() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(interval)
	}
}

// SetupTestRedis connects to a test Redis and empties its database.
//
// The address comes from REDIS_ADDR or TEST_REDIS_ADDR, falling back to
// localhost:6379 and the compose service name "redis:6379". The database index is
// TEST_REDIS_DB (default 9). The test is skipped when no server answers, unless
// TEST_REQUIRE_REDIS or TEST_REQUIRE_INFRA is true. The client is closed on cleanup.
func SetupTestRedis(t testing.TB) *redis.Client {
	t.Helper()

	db := testRedisDB(t)
	for _, addr := range redisCandidates() {
		client := redis.NewClient(&redis.Options{Addr: addr, DB: db, DialTimeout: time.Second})

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := client.Ping(ctx).Err()
		if err == nil {
			err = client.FlushDB(ctx).Err()
		}
		cancel()

		if err != nil {
			t.Logf("redis not usable at %s: %v", addr, err)
			_ = client.Close()
			continue
		}

		t.Cleanup(func() { _ = client.Close() })
		return client
	}

	if requireRedis() {
		t.Fatal("redis not available for testing")
	}
	t.Skip("redis not available for testing")
	return nil
}

func redisCandidates() []string {
	var out []string
	for _, key := range []string{"REDIS_ADDR", "TEST_REDIS_ADDR"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			out = append(out, v)
		}
	}
	if len(out) > 0 {
		return out
	}
	return []string{"localhost:6379", "redis:6379"}
}

func testRedisDB(t testing.TB) int {
	raw := strings.TrimSpace(os.Getenv("TEST_REDIS_DB"))
	if raw == "" {
		return defaultTestRedisDB
	}
	db, err := strconv.Atoi(raw)
	if err != nil || db < 0 {
		t.Logf("ignoring invalid TEST_REDIS_DB=%q", raw)
		return defaultTestRedisDB
	}
	return db
}

func requireRedis() bool {
	return envBool("TEST_REQUIRE_REDIS") || envBool("TEST_REQUIRE_INFRA")
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return err == nil && v
}
