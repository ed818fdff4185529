package dedup

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundbite/engagement/internal/domain"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func backings(t *testing.T) map[string]Deduplicator {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return map[string]Deduplicator{
		"memory": NewMemory(100, time.Minute),
		"redis":  NewRedis(client),
	}
}

func TestPolicy(t *testing.T) {
	w, r, ok := Policy(domain.EventPlayStart)
	assert.True(t, ok)
	assert.Equal(t, 60*time.Second, w)
	assert.Equal(t, ReasonDeduped, r)

	for _, k := range []domain.EventKind{domain.EventLike, domain.EventSave, domain.EventFollow} {
		w, r, ok := Policy(k)
		assert.True(t, ok, k)
		assert.Equal(t, 3*time.Second, w)
		assert.Equal(t, ReasonThrottled, r)
	}

	for _, k := range []domain.EventKind{domain.EventImpression, domain.EventComplete, domain.EventShare, domain.EventAllocation} {
		_, _, ok := Policy(k)
		assert.False(t, ok, k)
	}
}

func TestShouldAccept_PlayStartWindow(t *testing.T) {
	for name, d := range backings(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := Key{UserID: "u1", ContentID: "c1", Kind: domain.EventPlayStart}

			dec, err := ShouldAccept(ctx, d, key, t0)
			require.NoError(t, err)
			assert.True(t, dec.Accept)

			dec, err = ShouldAccept(ctx, d, key, t0.Add(59*time.Second))
			require.NoError(t, err)
			assert.False(t, dec.Accept)
			assert.Equal(t, ReasonDeduped, dec.Reason)

			// Window measured from the last check, which was suppressed.
			dec, err = ShouldAccept(ctx, d, key, t0.Add(119*time.Second))
			require.NoError(t, err)
			assert.True(t, dec.Accept, "exactly one window after the previous check must be accepted")
		})
	}
}

func TestShouldAccept_ToggleThrottle(t *testing.T) {
	for name, d := range backings(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := Key{UserID: "u1", ContentID: "c1", Kind: domain.EventLike}

			dec, _ := ShouldAccept(ctx, d, key, t0)
			assert.True(t, dec.Accept)

			dec, _ = ShouldAccept(ctx, d, key, t0.Add(time.Second))
			assert.Equal(t, Decision{Accept: false, Reason: ReasonThrottled}, dec)

			dec, _ = ShouldAccept(ctx, d, key, t0.Add(4*time.Second))
			assert.True(t, dec.Accept)

			// Different kind, user or content is an independent slot.
			dec, _ = ShouldAccept(ctx, d, Key{UserID: "u1", ContentID: "c1", Kind: domain.EventSave}, t0.Add(4*time.Second))
			assert.True(t, dec.Accept)
			dec, _ = ShouldAccept(ctx, d, Key{UserID: "u2", ContentID: "c1", Kind: domain.EventLike}, t0.Add(4*time.Second))
			assert.True(t, dec.Accept)
			dec, _ = ShouldAccept(ctx, d, Key{UserID: "u1", ContentID: "c2", Kind: domain.EventLike}, t0.Add(4*time.Second))
			assert.True(t, dec.Accept)
		})
	}
}

func TestShouldAccept_BurstKeepsSliding(t *testing.T) {
	for name, d := range backings(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := Key{UserID: "u1", ContentID: "c1", Kind: domain.EventLike}

			dec, _ := ShouldAccept(ctx, d, key, t0)
			assert.True(t, dec.Accept)

			// Each tap lands 2s after the previous one, so the window never closes.
			dec, _ = ShouldAccept(ctx, d, key, t0.Add(2*time.Second))
			assert.Equal(t, Decision{Accept: false, Reason: ReasonThrottled}, dec)
			dec, _ = ShouldAccept(ctx, d, key, t0.Add(4*time.Second))
			assert.Equal(t, Decision{Accept: false, Reason: ReasonThrottled}, dec)

			dec, _ = ShouldAccept(ctx, d, key, t0.Add(7*time.Second))
			assert.True(t, dec.Accept, "a full window of quiet reopens the slot")
		})
	}
}

func TestShouldAccept_UnruledKindsAlwaysAccepted(t *testing.T) {
	m := NewMemory(100, time.Minute)
	key := Key{UserID: "u1", ContentID: "c1", Kind: domain.EventImpression}
	for i := 0; i < 10; i++ {
		dec, err := ShouldAccept(context.Background(), m, key, t0.Add(time.Duration(i)*100*time.Millisecond))
		require.NoError(t, err)
		assert.True(t, dec.Accept)
	}
	assert.Equal(t, 0, m.Len(), "unruled kinds are not recorded")
}

func TestMemory_Sweep(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0, time.Minute)
	require.NoError(t, m.Record(ctx, Key{UserID: "old", ContentID: "c", Kind: domain.EventLike}, t0))
	require.NoError(t, m.Record(ctx, Key{UserID: "new", ContentID: "c", Kind: domain.EventLike}, t0.Add(100*time.Second)))

	n, err := m.Sweep(ctx, t0.Add(121*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, m.Len())
}

func TestMemory_LazySweepBoundsSize(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(100, time.Hour)
	for i := 0; i < 100; i++ {
		require.NoError(t, m.Record(ctx, Key{UserID: fmt.Sprintf("u%d", i), ContentID: "c", Kind: domain.EventPlayStart}, t0))
	}
	assert.Equal(t, 100, m.Len())

	// The 101st entry, well past retention, triggers a sweep of the stale ones.
	require.NoError(t, m.Record(ctx, Key{UserID: "late", ContentID: "c", Kind: domain.EventPlayStart}, t0.Add(10*time.Minute)))
	assert.Equal(t, 1, m.Len())
}

func TestMemory_LazySweepThrottled(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2, time.Hour)
	rec := func(user string, at time.Duration) {
		require.NoError(t, m.Record(ctx, Key{UserID: user, ContentID: "c", Kind: domain.EventLike}, t0.Add(at)))
	}

	rec("a", 0)
	rec("b", 700*time.Millisecond)
	rec("c", 120500*time.Millisecond) // over the limit: sweeps "a"
	assert.Equal(t, 2, m.Len())

	// "b" is stale by now, but the last sweep was under a second ago.
	rec("d", 121*time.Second)
	assert.Equal(t, 3, m.Len())

	rec("e", 121600*time.Millisecond)
	assert.Equal(t, 3, m.Len(), "second sweep drops b")
}

func TestMemory_RunStopsOnCancel(t *testing.T) {
	m := NewMemory(100, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRedis_KeyExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	d := NewRedis(client)
	key := Key{UserID: "u1", ContentID: "c1", Kind: domain.EventPlayStart}
	require.NoError(t, d.Record(context.Background(), key, t0))
	assert.Equal(t, RetentionWindow, mr.TTL("dedup:u1:c1:play_start"))

	mr.FastForward(RetentionWindow + time.Second)
	assert.False(t, mr.Exists("dedup:u1:c1:play_start"))
}

func TestRedis_ErrorSurfaces(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	_, err := NewRedis(client).Check(context.Background(), Key{UserID: "u", ContentID: "c", Kind: domain.EventLike}, t0)
	assert.Error(t, err)
}
