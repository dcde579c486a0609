package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/verifyd/internal/domain/model"
	"github.com/target/verifyd/internal/testutil"
)

// setupTestRedis returns a client on an emptied test database or skips the test.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	return testutil.SetupTestRedis(t)
}

func newReadyStore(t *testing.T, client redis.UniversalClient, opts JobStoreOptions) *JobStore {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	opts.Client = client
	store, err := NewJobStore(ctx, opts)
	require.NoError(t, err)

	select {
	case <-store.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("redis job store never became ready")
	}
	return store
}

func eiffelInput() model.JobInput {
	return model.JobInput{
		Output:   "The Eiffel Tower is 330m tall.",
		Question: "How tall is the Eiffel Tower?",
		Tier:     model.TierBasic,
	}
}

func TestNewJobStore_RequiresClient(t *testing.T) {
	_, err := NewJobStore(context.Background(), JobStoreOptions{})
	require.Error(t, err)
}

func TestJobStore_Key(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := NewJobStore(ctx, JobStoreOptions{Client: client, Prefix: "custom:"})
	require.NoError(t, err)
	assert.Equal(t, "custom:abc", store.Key("abc"))

	store, err = NewJobStore(ctx, JobStoreOptions{Client: client})
	require.NoError(t, err)
	assert.Equal(t, "verify:job:abc", store.Key("abc"))
}

func TestJobStore_OperationsWaitForHandshake(t *testing.T) {
	// Nothing listens on port 1, so the handshake never completes.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond})
	defer client.Close()

	storeCtx, stop := context.WithCancel(context.Background())
	defer stop()

	store, err := NewJobStore(storeCtx, JobStoreOptions{Client: client, HandshakeBackoff: 10 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err = store.CreateJob(ctx, eiffelInput())
	require.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = store.GetJob(ctx, "anything")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	err = store.UpdateJob(ctx, "anything", model.RunningPatch())
	require.ErrorIs(t, err, context.DeadlineExceeded)

	select {
	case <-store.Ready():
		t.Fatal("store must not report ready without a reachable server")
	default:
	}
}

func TestJobStore_CreateAndGet(t *testing.T) {
	client := setupTestRedis(t)

	store := newReadyStore(t, client, JobStoreOptions{})
	ctx := context.Background()

	created, err := store.CreateJob(ctx, eiffelInput())
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPending, created.Status)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	got, err := store.GetJob(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Input, got.Input)
	assert.Equal(t, model.JobStatusPending, got.Status)
	assert.WithinDuration(t, created.CreatedAt, got.CreatedAt, time.Millisecond)

	ttl := client.TTL(ctx, store.Key(created.ID)).Val()
	assert.InDelta(t, DefaultJobTTL.Seconds(), ttl.Seconds(), 5)
}

func TestJobStore_GetMissing(t *testing.T) {
	client := setupTestRedis(t)

	store := newReadyStore(t, client, JobStoreOptions{})

	_, err := store.GetJob(context.Background(), "non-existent")
	assert.ErrorIs(t, err, model.ErrJobNotFound)

	_, err = store.GetJob(context.Background(), "")
	assert.ErrorIs(t, err, model.ErrJobNotFound)
}

func TestJobStore_GetUndecodableIsNotFound(t *testing.T) {
	client := setupTestRedis(t)

	store := newReadyStore(t, client, JobStoreOptions{})
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, store.Key("corrupt"), "{not json", time.Minute).Err())

	_, err := store.GetJob(ctx, "corrupt")
	assert.ErrorIs(t, err, model.ErrJobNotFound)
}

func TestJobStore_UpdateMergesAndRefreshesTTL(t *testing.T) {
	client := setupTestRedis(t)

	clock := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	store := newReadyStore(t, client, JobStoreOptions{
		TTL: time.Hour,
		Now: func() time.Time { return clock },
	})
	ctx := context.Background()

	job, err := store.CreateJob(ctx, eiffelInput())
	require.NoError(t, err)

	// Shorten the TTL by hand so the refresh is observable.
	require.NoError(t, client.Expire(ctx, store.Key(job.ID), time.Minute).Err())

	clock = clock.Add(10 * time.Second)
	require.NoError(t, store.UpdateJob(ctx, job.ID, model.RunningPatch()))

	got, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusRunning, got.Status)
	assert.Equal(t, job.CreatedAt.Add(10*time.Second), got.UpdatedAt)

	ttl := client.TTL(ctx, store.Key(job.ID)).Val()
	assert.Greater(t, ttl, 50*time.Minute)

	clock = clock.Add(5 * time.Second)
	require.NoError(t, store.UpdateJob(ctx, job.ID, model.DonePatch(json.RawMessage(`{"verdict":"false"}`))))

	got, err = store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusDone, got.Status)
	assert.JSONEq(t, `{"verdict":"false"}`, string(got.Result))
	assert.Empty(t, got.Error)
	assert.Equal(t, job.Input, got.Input)
}

func TestJobStore_UpdateUnknownIsNoop(t *testing.T) {
	client := setupTestRedis(t)

	store := newReadyStore(t, client, JobStoreOptions{})
	ctx := context.Background()

	require.NoError(t, store.UpdateJob(ctx, "ghost", model.ErrorPatch("boom")))

	exists := client.Exists(ctx, store.Key("ghost")).Val()
	assert.Equal(t, int64(0), exists)
}

func TestJobStore_CustomPrefix(t *testing.T) {
	client := setupTestRedis(t)

	store := newReadyStore(t, client, JobStoreOptions{Prefix: "test-prefix"})
	ctx := context.Background()

	job, err := store.CreateJob(ctx, eiffelInput())
	require.NoError(t, err)

	exists := client.Exists(ctx, "test-prefix:"+job.ID).Val()
	assert.Equal(t, int64(1), exists)
}

func TestJobStore_TTLExpiration(t *testing.T) {
	client := setupTestRedis(t)

	store := newReadyStore(t, client, JobStoreOptions{TTL: 100 * time.Millisecond})
	ctx := context.Background()

	job, err := store.CreateJob(ctx, eiffelInput())
	require.NoError(t, err)

	time.Sleep(250 * time.Millisecond)

	_, err = store.GetJob(ctx, job.ID)
	assert.ErrorIs(t, err, model.ErrJobNotFound)
}
