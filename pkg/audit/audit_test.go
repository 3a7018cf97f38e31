package audit

import (
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestNewRecord(t *testing.T) {
	a := NewRecord()
	b := NewRecord()

	if a.ID == "" || b.ID == "" {
		t.Fatal("record ID is empty")
	}
	if a.ID == b.ID {
		t.Error("record IDs collide")
	}
	if a.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero")
	}
}

func newTestSink(t *testing.T) *SQLiteSink {
	t.Helper()
	sink, err := NewSQLiteSink(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("NewSQLiteSink() error = %v", err)
	}
	t.Cleanup(func() { sink.Close() })
	return sink
}

func testRecord(tenantID, outcome string, cost float64, age time.Duration) *UsageRecord {
	r := NewRecord()
	r.RequestID = "req-1"
	r.TenantID = tenantID
	r.Provider = "scaleway"
	r.Model = "llama-3.3-70b-instruct"
	r.Modality = "chat"
	r.Outcome = outcome
	r.Cost = cost
	r.CreatedAt = time.Now().UTC().Add(-age)
	return r
}

func TestSQLiteSinkWriteAndTotals(t *testing.T) {
	sink := newTestSink(t)

	records := []*UsageRecord{
		testRecord("acme", OutcomeSuccess, 0.5, 0),
		testRecord("acme", OutcomeSuccess, 0.3, 0),
		testRecord("acme", OutcomeUnbillable, 0.2, 0),
		testRecord("other", OutcomeSuccess, 9.9, 0),
	}
	for _, r := range records {
		if err := sink.Write(r); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	totals, err := sink.TenantTotals("acme", time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatalf("TenantTotals() error = %v", err)
	}
	if got := totals[OutcomeSuccess]; got != 0.8 {
		t.Errorf("success total = %v, want 0.8", got)
	}
	if got := totals[OutcomeUnbillable]; got != 0.2 {
		t.Errorf("unbillable total = %v, want 0.2", got)
	}
}

func TestSQLiteSinkPrune(t *testing.T) {
	sink := newTestSink(t)

	if err := sink.Write(testRecord("acme", OutcomeSuccess, 0.1, 48*time.Hour)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := sink.Write(testRecord("acme", OutcomeSuccess, 0.1, 0)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	removed, err := sink.Prune(24 * time.Hour)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
}

// collectSink gathers records in memory.
type collectSink struct {
	mu      sync.Mutex
	records []*UsageRecord
}

func (c *collectSink) Write(r *UsageRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, r)
	return nil
}

func (c *collectSink) Close() error { return nil }

func (c *collectSink) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

func TestRecorderDrainsOnClose(t *testing.T) {
	sink := &collectSink{}
	recorder := NewRecorder(sink, 64)

	const n = 20
	for i := 0; i < n; i++ {
		recorder.Record(testRecord("acme", OutcomeSuccess, 0.1, 0))
	}
	if err := recorder.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if got := sink.len(); got != n {
		t.Errorf("persisted records = %d, want %d", got, n)
	}
}

func TestRecorderDropsWhenFull(t *testing.T) {
	blocked := make(chan struct{})
	sink := &blockingSink{release: blocked}
	recorder := NewRecorder(sink, 1)

	// The first record occupies the worker, the second fills the
	// queue, further records are dropped without blocking.
	for i := 0; i < 10; i++ {
		recorder.Record(testRecord("acme", OutcomeSuccess, 0.1, 0))
	}

	close(blocked)
	recorder.Close()

	if got := sink.count; got > 2 {
		t.Errorf("persisted records = %d, want at most 2", got)
	}
}

type blockingSink struct {
	release chan struct{}
	count   int
}

func (b *blockingSink) Write(r *UsageRecord) error {
	<-b.release
	b.count++
	return nil
}

func (b *blockingSink) Close() error { return nil }

func TestRecorderRecordAfterClose(t *testing.T) {
	sink := &collectSink{}
	r := NewRecorder(sink, 4)
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// A late record is dropped, not a panic.
	r.Record(testRecord("acme", OutcomeSuccess, 1, 0))

	if n := sink.len(); n != 0 {
		t.Errorf("records written after close = %d, want 0", n)
	}
}
