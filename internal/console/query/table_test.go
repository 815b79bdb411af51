package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counter(calls *int32, value string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		atomic.AddInt32(calls, 1)
		return value, nil
	}
}

func TestKeyHasPrefix(t *testing.T) {
	k := NewKey("subscriptions", "team_1")
	assert.Equal(t, "subscriptions/team_1", k.String())
	assert.True(t, k.HasPrefix(NewKey("subscriptions")))
	assert.True(t, k.HasPrefix(k))
	assert.False(t, k.HasPrefix(NewKey("subscriptions", "team_10")))
	assert.False(t, NewKey("subscription-members", "sub_1").HasPrefix(NewKey("subscriptions")))
	assert.False(t, NewKey("teams").HasPrefix(NewKey("teams", "x")))
}

func TestFetchCachesUntilInvalidated(t *testing.T) {
	table := NewTable(0)
	ctx := context.Background()
	var calls int32

	v, err := Fetch(ctx, table, NewKey("teams"), counter(&calls, "a"))
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	v, err = Fetch(ctx, table, NewKey("teams"), counter(&calls, "b"))
	require.NoError(t, err)
	assert.Equal(t, "a", v)
	assert.Equal(t, int32(1), calls)

	assert.Equal(t, 1, table.Invalidate(NewKey("teams")))
	v, err = Fetch(ctx, table, NewKey("teams"), counter(&calls, "b"))
	require.NoError(t, err)
	assert.Equal(t, "b", v)
	assert.Equal(t, int32(2), calls)
}

func TestStaleTime(t *testing.T) {
	table := NewTable(time.Minute)
	now := time.Unix(1000, 0)
	table.now = func() time.Time { return now }
	var calls int32

	Fetch(context.Background(), table, NewKey("apps"), counter(&calls, "a"))
	now = now.Add(30 * time.Second)
	Fetch(context.Background(), table, NewKey("apps"), counter(&calls, "a"))
	assert.Equal(t, int32(1), calls)

	now = now.Add(time.Minute)
	Fetch(context.Background(), table, NewKey("apps"), counter(&calls, "a"))
	assert.Equal(t, int32(2), calls)
}

func TestInvalidateIsPrecise(t *testing.T) {
	table := NewTable(0)
	ctx := context.Background()
	var calls int32
	for _, k := range []Key{
		NewKey("subscriptions", "team_1"),
		NewKey("subscriptions", "team_2"),
		NewKey("subscription-members", "sub_1"),
		NewKey("invoices", "team_1"),
	} {
		_, err := Fetch(ctx, table, k, counter(&calls, k.String()))
		require.NoError(t, err)
	}

	assert.Equal(t, 1, table.Invalidate(NewKey("subscriptions", "team_1")))
	assert.Equal(t, 3, table.Len())
	_, ok := table.Peek(NewKey("subscriptions", "team_2"))
	assert.True(t, ok)

	assert.Equal(t, 1, table.Invalidate(NewKey("subscriptions")))
	assert.Equal(t, 0, table.Invalidate(NewKey("api-keys")))
	assert.Equal(t, 2, table.Len())
}

func TestFetchDeduplicatesInFlight(t *testing.T) {
	table := NewTable(0)
	release := make(chan struct{})
	started := make(chan struct{})
	var calls int32

	fn := func(context.Context) (string, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		<-release
		return "teams", nil
	}

	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = Fetch(context.Background(), table, NewKey("teams"), fn)
		}(i)
	}

	<-started
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, r := range results {
		assert.Equal(t, "teams", r)
	}
}

func TestCancelledCallerDoesNotFailOthers(t *testing.T) {
	table := NewTable(0)
	release := make(chan struct{})
	started := make(chan struct{})
	var calls int32

	fn := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		close(started)
		select {
		case <-release:
			return "teams", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := Fetch(first, table, NewKey("teams"), fn)
		firstErr <- err
	}()
	<-started

	type result struct {
		value string
		err   error
	}
	second := make(chan result, 1)
	go func() {
		v, err := Fetch(context.Background(), table, NewKey("teams"), fn)
		second <- result{v, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, "teams", got.value)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	_, ok := table.Peek(NewKey("teams"))
	assert.True(t, ok, "the shared result is still stored")
}

func TestInvalidatedResponseIsNotStored(t *testing.T) {
	table := NewTable(0)
	release := make(chan struct{})
	started := make(chan struct{})

	done := make(chan string)
	go func() {
		v, _ := Fetch(context.Background(), table, NewKey("subscriptions", "team_1"), func(context.Context) (string, error) {
			close(started)
			<-release
			return "old", nil
		})
		done <- v
	}()

	<-started
	table.Invalidate(NewKey("subscriptions"))

	// A caller after the invalidation does not join the stale flight.
	v, err := Fetch(context.Background(), table, NewKey("subscriptions", "team_1"), func(context.Context) (string, error) {
		return "new", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "new", v)

	close(release)
	assert.Equal(t, "old", <-done, "the original caller still gets its answer")

	e, ok := table.Peek(NewKey("subscriptions", "team_1"))
	require.True(t, ok)
	assert.Equal(t, "new", e.Value)
}

func TestErrorsKeepPreviousValue(t *testing.T) {
	table := NewTable(time.Nanosecond)
	now := time.Unix(0, 0)
	table.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := Fetch(ctx, table, NewKey("invoices", "team_1"), func(context.Context) (string, error) { return "v1", nil })
	require.NoError(t, err)
	_, err = Fetch(ctx, table, NewKey("apps"), func(context.Context) (string, error) { return "apps", nil })
	require.NoError(t, err)

	now = now.Add(time.Second)
	boom := errors.New("boom")
	_, err = Fetch(ctx, table, NewKey("invoices", "team_1"), func(context.Context) (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)

	e, ok := table.Peek(NewKey("invoices", "team_1"))
	require.True(t, ok)
	assert.Equal(t, "v1", e.Value)
	_, ok = table.Peek(NewKey("apps"))
	assert.True(t, ok)
}

func TestFetchTypeMismatch(t *testing.T) {
	table := NewTable(0)
	ctx := context.Background()
	_, err := Fetch(ctx, table, NewKey("apps"), func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)

	_, err = Fetch(ctx, table, NewKey("apps"), func(context.Context) (string, error) { return "", nil })
	assert.Error(t, err)
}

func TestVersionsIncrease(t *testing.T) {
	table := NewTable(0)
	ctx := context.Background()
	Fetch(ctx, table, NewKey("a"), func(context.Context) (int, error) { return 1, nil })
	Fetch(ctx, table, NewKey("b"), func(context.Context) (int, error) { return 2, nil })

	a, _ := table.Peek(NewKey("a"))
	b, _ := table.Peek(NewKey("b"))
	assert.Less(t, a.Version, b.Version)
}
