package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JMAlloway/Check-sub001/internal/model"
)

func testImage(b byte) *model.DecodedImage {
	return &model.DecodedImage{PNG: []byte{b, b, b}, Width: 1, Height: 1}
}

// newFrozenCache returns a cache whose clock only moves when the test says
// so. The TTL doubles as the sweep interval and is long enough that the
// background sweeper never fires mid-test.
func newFrozenCache(t *testing.T, ttl time.Duration) (*Cache, *time.Time) {
	t.Helper()
	now := time.Now()
	c := New(ttl)
	c.now = func() time.Time { return now }
	t.Cleanup(c.Stop)
	return c, &now
}

func TestGetOrFetch_MissThenHit(t *testing.T) {
	c, _ := newFrozenCache(t, time.Minute)
	key := Key{Path: `\\bank\Checks\Transit\item.tif`, Side: model.SideFront}
	var fetches atomic.Int32

	img1, fromCache, err := c.GetOrFetch(context.Background(), key, func(context.Context) (*model.DecodedImage, error) {
		fetches.Add(1)
		return testImage(1), nil
	})
	require.NoError(t, err)
	assert.False(t, fromCache)

	img2, fromCache, err := c.GetOrFetch(context.Background(), key, func(context.Context) (*model.DecodedImage, error) {
		fetches.Add(1)
		return testImage(2), nil
	})
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Equal(t, img1.PNG, img2.PNG, "hit must return the originally cached bytes")
	assert.Equal(t, int32(1), fetches.Load())
}

func TestGetOrFetch_SidesAreDistinctEntries(t *testing.T) {
	c, _ := newFrozenCache(t, time.Minute)
	path := `\\bank\Checks\Transit\item.tif`

	front, _, err := c.GetOrFetch(context.Background(), Key{Path: path, Side: model.SideFront}, func(context.Context) (*model.DecodedImage, error) {
		return testImage(1), nil
	})
	require.NoError(t, err)
	back, _, err := c.GetOrFetch(context.Background(), Key{Path: path, Side: model.SideBack}, func(context.Context) (*model.DecodedImage, error) {
		return testImage(2), nil
	})
	require.NoError(t, err)
	assert.NotEqual(t, front.PNG, back.PNG)
	assert.Equal(t, 2, c.Len())
}

func TestGetOrFetch_ExpiryTriggersRefetch(t *testing.T) {
	c, now := newFrozenCache(t, time.Minute)
	key := Key{Path: "p", Side: model.SideFront}
	var fetches atomic.Int32

	fetch := func(context.Context) (*model.DecodedImage, error) {
		fetches.Add(1)
		return testImage(byte(fetches.Load())), nil
	}

	_, _, err := c.GetOrFetch(context.Background(), key, fetch)
	require.NoError(t, err)

	*now = now.Add(61 * time.Second)

	img, fromCache, err := c.GetOrFetch(context.Background(), key, fetch)
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, []byte{2, 2, 2}, img.PNG)
	assert.Equal(t, int32(2), fetches.Load())
}

func TestGetOrFetch_ErrorNotCached(t *testing.T) {
	c, _ := newFrozenCache(t, time.Minute)
	key := Key{Path: "p", Side: model.SideFront}
	boom := errors.New("storage unreachable")

	_, _, err := c.GetOrFetch(context.Background(), key, func(context.Context) (*model.DecodedImage, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	// A later fetch for the same key runs again and can succeed.
	_, fromCache, err := c.GetOrFetch(context.Background(), key, func(context.Context) (*model.DecodedImage, error) {
		return testImage(1), nil
	})
	require.NoError(t, err)
	assert.False(t, fromCache)
}

func TestGetOrFetch_ConcurrentCallersShareOneFetch(t *testing.T) {
	c, _ := newFrozenCache(t, time.Minute)
	key := Key{Path: "p", Side: model.SideFront}

	var fetches atomic.Int32
	release := make(chan struct{})
	fetch := func(context.Context) (*model.DecodedImage, error) {
		fetches.Add(1)
		<-release
		return testImage(7), nil
	}

	const callers = 16
	var wg sync.WaitGroup
	results := make([][]byte, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			img, _, err := c.GetOrFetch(context.Background(), key, fetch)
			if assert.NoError(t, err) {
				results[i] = img.PNG
			}
		}()
	}

	// Give the goroutines time to pile onto the in-flight fetch.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), fetches.Load(), "all callers must share one fetch")
	for _, png := range results {
		assert.Equal(t, []byte{7, 7, 7}, png)
	}

	// One storage read served 16 callers: exactly one miss.
	assert.Equal(t, int64(1), c.misses.Load())
	assert.Equal(t, int64(callers-1), c.hits.Load())
	assert.InDelta(t, float64(callers-1)/float64(callers), c.HitRate(), 0.001)
}

func TestHitRate(t *testing.T) {
	c, _ := newFrozenCache(t, time.Minute)
	key := Key{Path: "p", Side: model.SideFront}
	fetch := func(context.Context) (*model.DecodedImage, error) { return testImage(1), nil }

	assert.Equal(t, 0.0, c.HitRate())

	_, _, err := c.GetOrFetch(context.Background(), key, fetch)
	require.NoError(t, err)
	_, _, err = c.GetOrFetch(context.Background(), key, fetch)
	require.NoError(t, err)
	_, _, err = c.GetOrFetch(context.Background(), key, fetch)
	require.NoError(t, err)

	assert.InDelta(t, 2.0/3.0, c.HitRate(), 0.001)
}

func TestStop_Idempotent(t *testing.T) {
	c := New(time.Minute)
	c.Stop()
	c.Stop()
}
