package telemetry

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/siteguard/widget-go/internal/infrastructure/observability/logging"
)

// KeepaliveTransport posts each record on its own goroutine. Callers never wait;
// Wait exists only for hosts that are about to terminate.
type KeepaliveTransport struct {
	client *http.Client
	logger *logging.ChanneledLogger
	wg     sync.WaitGroup
}

// NewKeepaliveTransport creates the fallback transport.
func NewKeepaliveTransport(client *http.Client, logger *logging.ChanneledLogger) *KeepaliveTransport {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &KeepaliveTransport{client: client, logger: logger}
}

// Post implements Fallback.
func (t *KeepaliveTransport) Post(url, contentType string, body []byte) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		deliver(t.client, url, contentType, body, t.logger)
	}()
}

// Wait blocks until in-flight posts finish or ctx ends.
func (t *KeepaliveTransport) Wait(ctx context.Context) error {
	return waitGroup(ctx, &t.wg)
}

type beaconRequest struct {
	url         string
	contentType string
	body        []byte
}

// HTTPBeacon emulates a browser beacon for Go hosts: a bounded queue drained by one
// worker. SendBeacon refuses (returns false) when the queue is full or closed, which
// makes the dispatcher fall back to a keepalive request.
type HTTPBeacon struct {
	client *http.Client
	logger *logging.ChanneledLogger
	queue  chan beaconRequest
	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewHTTPBeacon starts the beacon worker.
func NewHTTPBeacon(client *http.Client, queueSize int, logger *logging.ChanneledLogger) *HTTPBeacon {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	b := &HTTPBeacon{
		client: client,
		logger: logger,
		queue:  make(chan beaconRequest, queueSize),
		done:   make(chan struct{}),
	}
	go b.run()
	return b
}

// SendBeacon implements Beacon.
func (b *HTTPBeacon) SendBeacon(url, contentType string, body []byte) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return false
	}
	select {
	case b.queue <- beaconRequest{url: url, contentType: contentType, body: body}:
		return true
	default:
		return false
	}
}

// Close stops accepting records and waits for the queue to drain or ctx to end.
func (b *HTTPBeacon) Close(ctx context.Context) error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.queue)
	}
	b.mu.Unlock()

	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *HTTPBeacon) run() {
	defer close(b.done)
	for req := range b.queue {
		deliver(b.client, req.url, req.contentType, req.body, b.logger)
	}
}

func deliver(client *http.Client, url, contentType string, body []byte, logger *logging.ChanneledLogger) {
	resp, err := client.Post(url, contentType, bytes.NewReader(body))
	if err != nil {
		logger.Telemetry().Debug("Telemetry delivery failed, dropped", "url", url, "error", err.Error())
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		logger.Telemetry().Debug("Telemetry rejected, dropped", "url", url, "status", resp.StatusCode)
	}
}

func waitGroup(ctx context.Context, wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
