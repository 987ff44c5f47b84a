package navigation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu  sync.Mutex
	loc Location
}

func (s *fakeSource) Location() Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loc
}

func (s *fakeSource) set(path string) {
	s.mu.Lock()
	s.loc = Location{URL: "https://shop.example" + path, Path: path}
	s.mu.Unlock()
}

type collector struct {
	mu    sync.Mutex
	paths []string
}

func (c *collector) notify(loc Location) {
	c.mu.Lock()
	c.paths = append(c.paths, loc.Path)
	c.mu.Unlock()
}

func (c *collector) get() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.paths...)
}

func TestMutationDetectorReportsPathChangesOnly(t *testing.T) {
	src := &fakeSource{}
	src.set("/")
	d := NewMutationDetector(src)
	got := &collector{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx, src.Location(), got.notify)

	d.Mutated()
	src.set("/products")
	d.Mutated()
	d.Mutated()

	require.Eventually(t, func() bool { return len(got.get()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"/products"}, got.get())
}

func TestPollingDetector(t *testing.T) {
	src := &fakeSource{}
	src.set("/")
	d := NewPollingDetector(src, 5*time.Millisecond)
	got := &collector{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx, src.Location(), got.notify)

	src.set("/a")
	require.Eventually(t, func() bool { return len(got.get()) == 1 }, time.Second, 5*time.Millisecond)
	src.set("/b")
	require.Eventually(t, func() bool { return len(got.get()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"/a", "/b"}, got.get())
}

func TestHistoryDetector(t *testing.T) {
	d := NewHistoryDetector()
	got := &collector{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx, Location{}, got.notify)

	d.Changed(Location{Path: "/checkout"})
	require.Eventually(t, func() bool { return len(got.get()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestDetectorsReportChangesBeforeRunStarted(t *testing.T) {
	landing := Location{URL: "https://shop.example/", Path: "/"}

	for name, newDetector := range map[string]func(Source) Detector{
		"polling":  func(s Source) Detector { return NewPollingDetector(s, time.Hour) },
		"mutation": func(s Source) Detector { return NewMutationDetector(s) },
	} {
		t.Run(name, func(t *testing.T) {
			src := &fakeSource{}
			src.set("/b")
			got := &collector{}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go newDetector(src).Run(ctx, landing, got.notify)

			require.Eventually(t, func() bool { return len(got.get()) == 1 }, time.Second, 5*time.Millisecond)
			assert.Equal(t, []string{"/b"}, got.get())
		})
	}
}
