package jobs

import (
	"context"
	"log"
	"time"
)

// JobProcessor runs one polling round of a background queue.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker polls a JobProcessor on a fixed interval until stopped.
type Worker struct {
	processor    JobProcessor
	pollInterval time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
}

func NewWorker(processor JobProcessor, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start blocks until ctx is cancelled or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("embedding worker started (interval %v)", w.pollInterval)

	for {
		select {
		case <-ctx.Done():
			log.Println("embedding worker stopped: context cancelled")
			return
		case <-w.stopChan:
			log.Println("embedding worker stopped")
			return
		case <-ticker.C:
			if err := w.processor.ProcessJobs(ctx); err != nil {
				log.Printf("embedding worker: %v", err)
			}
		}
	}
}

// Stop signals the loop and waits for the current round to finish.
func (w *Worker) Stop() {
	select {
	case <-w.stopChan:
	default:
		close(w.stopChan)
	}
	<-w.doneChan
}
