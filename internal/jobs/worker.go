// Package jobs runs the background processing loop for queued work,
// currently the chunk embedding backlog.
package jobs

import (
	"context"
	"log"
	"time"
)

// JobProcessor drains one batch of queued work.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker polls a JobProcessor at a fixed interval until stopped. A
// processing error is logged and the loop keeps going; the next tick
// retries whatever is still queued.
type Worker struct {
	processor    JobProcessor
	pollInterval time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
}

func NewWorker(processor JobProcessor, pollInterval time.Duration) *Worker {
	return &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start runs the polling loop until the context is cancelled or Stop is
// called. The first drain happens immediately so jobs queued before
// startup are not delayed by a full poll interval.
func (w *Worker) Start(ctx context.Context) {
	defer close(w.doneChan)

	log.Printf("job worker started, poll interval %v", w.pollInterval)

	w.drain(ctx)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("job worker stopped: context cancelled")
			return
		case <-w.stopChan:
			log.Println("job worker stopped")
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	if err := w.processor.ProcessJobs(ctx); err != nil {
		log.Printf("job processing failed: %v", err)
	}
}

// Stop signals the loop to exit and blocks until it has.
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
}
