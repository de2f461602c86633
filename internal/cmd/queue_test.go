package cmd

import (
	"bytes"
	"context"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movienighthub/movienight/internal/catalog"
	"github.com/movienighthub/movienight/internal/output"
	"github.com/movienighthub/movienight/internal/queue"
)

type stubServer struct {
	mu        sync.Mutex
	available bool
	enriched  []string
}

func (s *stubServer) Enrich(_ context.Context, title string) (catalog.Fields, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enriched = append(s.enriched, title)
	return catalog.Fields{Genre: "Drama", Mood: "Intense", Streaming: []string{"Netflix"}}, nil
}

func (s *stubServer) Status(context.Context) (queue.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.available {
		return queue.Status{Available: true}, nil
	}
	return queue.Status{Available: false, RemainingSeconds: 0}, nil
}

func TestRunQueueDrainsAndExits(t *testing.T) {
	server := &stubServer{available: true}
	q := queue.New(server, server, queue.WithInterval(10*time.Millisecond))
	q.Add(queue.Movie{Title: "Heat"})
	q.Add(queue.Movie{Title: "Arrival"})

	var out bytes.Buffer
	err := runQueue(context.Background(), signals.NewManager(), q, &out, output.FormatTable)

	require.NoError(t, err)
	assert.Equal(t, []string{"Heat", "Arrival"}, server.enriched)
	assert.Contains(t, out.String(), "Heat: genre=Drama mood=Intense streaming=Netflix")
	assert.Contains(t, out.String(), "Arrival: genre=Drama")
}

func TestRunQueueStopsOnSignal(t *testing.T) {
	server := &stubServer{available: false}
	q := queue.New(server, server, queue.WithInterval(10*time.Millisecond))
	q.Add(queue.Movie{Title: "Heat"})

	manager := signals.NewManager()
	injector := signals.NewInjector(manager)

	done := make(chan error, 1)
	go func() {
		done <- runQueue(context.Background(), manager, q, &bytes.Buffer{}, output.FormatJSON)
	}()

	require.NoError(t, injector.WaitForListen(time.Second))
	require.NoError(t, injector.Inject(syscall.SIGTERM))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("queue run did not stop after SIGTERM")
	}
	assert.Empty(t, server.enriched)
	assert.Equal(t, 1, q.Len())
}
