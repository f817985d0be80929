package paginate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadimbarashkov/shorty/internal/cache"
)

type page struct {
	Items []string
	Next  string
}

type fakeAPI struct {
	mu     sync.Mutex
	pages  map[string]page
	errs   map[string]error
	called []string
}

func (f *fakeAPI) fetch(_ context.Context, key cache.Key) (page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.called = append(f.called, key.Path)
	if err, ok := f.errs[key.Path]; ok {
		return page{}, err
	}
	return f.pages[key.Path], nil
}

func (f *fakeAPI) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.called...)
}

func listKey(credential string) KeyFunc[page] {
	return func(_ int, previous *page) cache.Key {
		path := "/api/links?domain_id=1&limit=30"
		if previous != nil {
			path += "&pageToken=" + previous.Next
		}
		return cache.NewKey(path, credential)
	}
}

func isEmpty(p page) bool {
	return len(p.Items) == 0
}

func items(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("link-%d", i)
	}
	return out
}

func TestPager_EndReached(t *testing.T) {
	api := &fakeAPI{pages: map[string]page{
		"/api/links?domain_id=1&limit=30":               {Items: items(30), Next: "abc"},
		"/api/links?domain_id=1&limit=30&pageToken=abc": {},
	}}
	p := New(cache.New(), listKey("secret"), api.fetch, isEmpty)

	require.NoError(t, p.Load(context.Background()))
	assert.False(t, p.EndReached())
	assert.Len(t, p.Pages(), 1)

	fetched, err := p.LoadMore(context.Background())
	require.NoError(t, err)
	assert.True(t, fetched)
	assert.Equal(t, []string{
		"/api/links?domain_id=1&limit=30",
		"/api/links?domain_id=1&limit=30&pageToken=abc",
	}, api.calls())
	assert.True(t, p.EndReached())

	fetched, err = p.LoadMore(context.Background())
	require.NoError(t, err)
	assert.False(t, fetched)
	assert.Len(t, api.calls(), 2)
	assert.Len(t, p.Pages(), 2)
}

func TestPager_NullKey(t *testing.T) {
	api := &fakeAPI{}
	p := New(cache.New(), listKey(""), api.fetch, isEmpty)

	require.NoError(t, p.Load(context.Background()))

	assert.Empty(t, api.calls())
	assert.Empty(t, p.Pages())
	assert.False(t, p.EndReached())
}

func TestPager_FailedPageIsRetried(t *testing.T) {
	errUnavailable := errors.New("unavailable")
	api := &fakeAPI{
		pages: map[string]page{
			"/api/links?domain_id=1&limit=30":               {Items: items(2), Next: "abc"},
			"/api/links?domain_id=1&limit=30&pageToken=abc": {Items: items(1), Next: "def"},
		},
		errs: map[string]error{
			"/api/links?domain_id=1&limit=30&pageToken=abc": errUnavailable,
		},
	}
	p := New(cache.New(), listKey("secret"), api.fetch, isEmpty)

	require.NoError(t, p.Load(context.Background()))

	_, err := p.LoadMore(context.Background())
	assert.ErrorIs(t, err, errUnavailable)
	assert.ErrorIs(t, p.Err(), errUnavailable)
	assert.Len(t, p.Pages(), 1)
	assert.False(t, p.Loading())

	api.mu.Lock()
	delete(api.errs, "/api/links?domain_id=1&limit=30&pageToken=abc")
	api.mu.Unlock()

	_, err = p.LoadMore(context.Background())
	require.NoError(t, err)
	assert.Len(t, p.Pages(), 2)
	assert.NoError(t, p.Err())
}

func TestPager_Reset(t *testing.T) {
	api := &fakeAPI{pages: map[string]page{
		"/api/links?domain_id=1&limit=30": {Items: items(1), Next: "abc"},
	}}
	p := New(cache.New(), listKey("secret"), api.fetch, isEmpty)

	require.NoError(t, p.Load(context.Background()))
	p.Reset()

	assert.Empty(t, p.Pages())
	assert.False(t, p.EndReached())
}

func TestPager_LoadRereadsKnownPages(t *testing.T) {
	api := &fakeAPI{pages: map[string]page{
		"/api/links?domain_id=1&limit=30": {Items: items(1), Next: "abc"},
	}}
	c := cache.New()
	p := New(c, listKey("secret"), api.fetch, isEmpty)

	require.NoError(t, p.Load(context.Background()))

	api.mu.Lock()
	api.pages["/api/links?domain_id=1&limit=30"] = page{Items: items(3), Next: "abc"}
	api.mu.Unlock()
	c.InvalidatePrefix("secret", "/api/links")

	require.NoError(t, p.Load(context.Background()))
	c.Wait()
	require.NoError(t, p.Load(context.Background()))

	pages := p.Pages()
	require.Len(t, pages, 1)
	assert.Len(t, pages[0].Items, 3)
}

func TestPager_OneInFlight(t *testing.T) {
	var fetches atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(_ context.Context, _ cache.Key) (page, error) {
		if fetches.Add(1) == 1 {
			close(started)
		}
		<-release
		return page{Items: items(30), Next: "abc"}, nil
	}
	p := New(cache.New(), listKey("secret"), fetch, isEmpty)

	first := make(chan bool)
	go func() {
		fetched, _ := p.LoadMore(context.Background())
		first <- fetched
	}()
	<-started

	const n = 8
	var wg sync.WaitGroup
	var skipped atomic.Int32
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if fetched, _ := p.LoadMore(context.Background()); !fetched {
				skipped.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.True(t, p.Loading())

	close(release)
	require.True(t, <-first)

	assert.Equal(t, int32(n), skipped.Load())
	assert.Equal(t, int32(1), fetches.Load())
	assert.Len(t, p.Pages(), 1)
	assert.False(t, p.Loading())
}
