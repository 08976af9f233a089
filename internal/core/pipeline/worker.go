package pipeline

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Worker drains a bounded queue of document ids and runs the pipeline on each.
// Parallelism across documents is safe: they share no mutable state.
type Worker struct {
	pipeline *Pipeline
	jobs     chan string
	logger   *slog.Logger
}

// NewWorker constructs a worker with a bounded job queue.
func NewWorker(p *Pipeline, queueSize int, logger *slog.Logger) *Worker {
	if queueSize <= 0 {
		queueSize = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		pipeline: p,
		jobs:     make(chan string, queueSize),
		logger:   logger,
	}
}

// Start launches numWorkers goroutines reading from the jobs channel. They run
// until ctx is canceled.
func (w *Worker) Start(ctx context.Context, numWorkers int) {
	if numWorkers < 1 {
		numWorkers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 1; i <= numWorkers; i++ {
		id := i
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					w.logger.Info("ingest worker shutting down", "worker", id)
					return gctx.Err()
				case docID := <-w.jobs:
					w.logger.Info("processing document", "worker", id, "document_id", docID)
					res := w.pipeline.Process(gctx, docID)
					if !res.Success {
						w.logger.Error("document processing failed",
							"document_id", docID, "stage", res.FailedStage, "err", res.Message)
					}
				}
			}
		})
	}

	go func() { _ = g.Wait() }()
}

// Enqueue schedules a document id for processing. Blocks when the queue is full.
func (w *Worker) Enqueue(docID string) {
	w.jobs <- docID
}
