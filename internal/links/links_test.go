package links

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guillermoamaral/VSCside/internal/imagesim"
	"github.com/guillermoamaral/VSCside/internal/remote"
)

func TestLinksAgainstBackend(t *testing.T) {
	sim := imagesim.NewServer(imagesim.Sample())
	ts := httptest.NewServer(sim.Handler())
	defer ts.Close()

	p := New(remote.NewClient(ts.URL, "dev"))
	text := "+ aPoint\n\t^Point x: x + aPoint x y: Missing y. Point new"

	links, err := p.Links(context.Background(), text)
	require.NoError(t, err)
	require.Len(t, links, 2)
	for _, l := range links {
		assert.Equal(t, "Point", l.Class)
		assert.Equal(t, "webside:/Point.st", l.Target)
		assert.Equal(t, "Point", text[l.Start:l.End])
	}
	assert.Less(t, links[0].Start, links[1].Start)

	// Each distinct name is looked up once.
	assert.Equal(t, 1, sim.Count("GET", "/classes/Point"))
	assert.Equal(t, 1, sim.Count("GET", "/classes/Missing"))
}

func TestLinksNoCandidates(t *testing.T) {
	p := New(nil)
	links, err := p.Links(context.Background(), "x ^ y + 1")
	require.NoError(t, err)
	assert.Empty(t, links)
}

type slowLookup struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	mu       sync.Mutex
	failing  map[string]error
}

func (s *slowLookup) Class(ctx context.Context, name string) (*remote.Class, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing[name]; err != nil {
		return nil, err
	}
	return &remote.Class{Name: name}, nil
}

func TestLinksConcurrencyLimit(t *testing.T) {
	lookup := &slowLookup{}
	p := New(lookup, WithConcurrency(3))

	text := "A1 A2 A3 A4 A5 A6 A7 A8 A9 A10 A11 A12"
	links, err := p.Links(context.Background(), text)
	require.NoError(t, err)
	assert.Len(t, links, 12)
	assert.LessOrEqual(t, lookup.peak.Load(), int32(3))
}

func TestLinksSkipsFailedLookups(t *testing.T) {
	lookup := &slowLookup{failing: map[string]error{"Broken": errors.New("connection reset")}}
	p := New(lookup)

	links, err := p.Links(context.Background(), "Broken Fine")
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "Fine", links[0].Class)
	assert.Equal(t, 7, links[0].Start)
}

func TestLinksCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(&slowLookup{}).Links(ctx, "Point")
	assert.ErrorIs(t, err, context.Canceled)
}
