package audit

import (
	"log/slog"
	"sync"
)

// Recorder decouples the request path from sink latency. Record
// enqueues without blocking; a single worker goroutine drains the
// queue into the sink. When the queue is full the record is dropped
// with a warning rather than stalling a request.
type Recorder struct {
	sink  Sink
	queue chan *UsageRecord

	mu     sync.RWMutex
	closed bool

	closeOnce sync.Once
	done      chan struct{}
}

// NewRecorder starts the recorder. A non-positive queueSize defaults
// to 1024.
func NewRecorder(sink Sink, queueSize int) *Recorder {
	if queueSize <= 0 {
		queueSize = 1024
	}
	r := &Recorder{
		sink:  sink,
		queue: make(chan *UsageRecord, queueSize),
		done:  make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Recorder) run() {
	defer close(r.done)
	for record := range r.queue {
		if err := r.sink.Write(record); err != nil {
			slog.Error("failed to persist usage record",
				"record_id", record.ID,
				"tenant_id", record.TenantID,
				"error", err,
			)
		}
	}
}

// Record enqueues a usage record. It never blocks; records arriving
// after Close are dropped with a warning.
func (r *Recorder) Record(record *UsageRecord) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		slog.Warn("audit recorder closed, dropping usage record",
			"record_id", record.ID,
			"tenant_id", record.TenantID,
			"outcome", record.Outcome,
		)
		return
	}
	select {
	case r.queue <- record:
	default:
		slog.Warn("audit queue full, dropping usage record",
			"record_id", record.ID,
			"tenant_id", record.TenantID,
			"outcome", record.Outcome,
		)
	}
}

// Close drains the queue, waits for the worker, and closes the sink.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		close(r.queue)
	})
	<-r.done
	return r.sink.Close()
}
