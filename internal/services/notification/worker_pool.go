package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/givehub/backend/internal/queue"
)

// WorkerPool drains the notification queue and delivers events to the
// external notification center over HTTP. The pool is initialized once with
// an explicit concurrency bound; Start is safe to call multiple times but
// only the first call spawns workers.
type WorkerPool struct {
	queue     *queue.Queue
	client    *http.Client
	endpoint  string
	size      int
	wg        sync.WaitGroup
	quit      chan struct{}
	startOnce sync.Once
}

// NewWorkerPool creates a worker pool with the given concurrency bound
func NewWorkerPool(q *queue.Queue, endpoint string, size int) *WorkerPool {
	if size < 1 {
		size = 1
	}
	return &WorkerPool{
		queue:    q,
		client:   &http.Client{Timeout: 10 * time.Second},
		endpoint: endpoint,
		size:     size,
		quit:     make(chan struct{}),
	}
}

// Start spawns the worker goroutines
func (p *WorkerPool) Start() {
	p.startOnce.Do(func() {
		log.Printf("Starting %d notification workers", p.size)
		for i := 0; i < p.size; i++ {
			p.wg.Add(1)
			go p.run(i)
		}
	})
}

// Stop signals the workers to exit and waits for them
func (p *WorkerPool) Stop() {
	close(p.quit)
	p.wg.Wait()
	log.Println("Notification workers stopped")
}

// run is the loop of a single worker
func (p *WorkerPool) run(workerID int) {
	defer p.wg.Done()

	ctx := context.Background()
	for {
		select {
		case <-p.quit:
			return
		default:
			msg, err := p.queue.Dequeue(ctx, 1*time.Second)
			if err != nil {
				log.Printf("Notification worker %d: dequeue error: %v", workerID, err)
				time.Sleep(1 * time.Second)
				continue
			}
			if msg == nil {
				continue
			}

			if err := p.deliver(ctx, msg); err != nil {
				// Notifications are best effort: log and drop
				log.Printf("Notification worker %d: failed to deliver %s (%s): %v", workerID, msg.Event, msg.ID, err)
			}
		}
	}
}

// deliver posts one event to the notification center
func (p *WorkerPool) deliver(ctx context.Context, msg *queue.Message) error {
	body, err := json.Marshal(map[string]interface{}{
		"event":   msg.Event,
		"payload": msg.Payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("notification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification center returned status %d", resp.StatusCode)
	}

	return nil
}
