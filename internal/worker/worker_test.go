package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/custodia-labs/dropbox-connector/internal/core/domain"
	"github.com/custodia-labs/dropbox-connector/internal/core/ports/driven"
)

// mockDeliveryQueue implements driven.DeliveryQueue for testing
type mockDeliveryQueue struct {
	mu         sync.Mutex
	deliveries []*domain.Delivery
	acked      []string
	nacked     map[string]string
	dequeueFn  func() (*domain.Delivery, error)
	ackFn      func(string) error
	nackFn     func(string, string) error
	pingFn     func() error
}

func newMockDeliveryQueue(deliveries ...*domain.Delivery) *mockDeliveryQueue {
	return &mockDeliveryQueue{
		deliveries: deliveries,
		nacked:     make(map[string]string),
	}
}

func (m *mockDeliveryQueue) Enqueue(ctx context.Context, delivery *domain.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries = append(m.deliveries, delivery)
	return nil
}

func (m *mockDeliveryQueue) DequeueWithTimeout(ctx context.Context, timeout time.Duration) (*domain.Delivery, error) {
	if m.dequeueFn != nil {
		return m.dequeueFn()
	}
	m.mu.Lock()
	if len(m.deliveries) > 0 {
		d := m.deliveries[0]
		m.deliveries = m.deliveries[1:]
		m.mu.Unlock()
		d.MarkProcessing()
		return d, nil
	}
	m.mu.Unlock()

	select {
	case <-ctx.Done():
	case <-time.After(timeout):
	}
	return nil, nil
}

func (m *mockDeliveryQueue) Ack(ctx context.Context, deliveryID string) error {
	m.mu.Lock()
	m.acked = append(m.acked, deliveryID)
	m.mu.Unlock()
	if m.ackFn != nil {
		return m.ackFn(deliveryID)
	}
	return nil
}

func (m *mockDeliveryQueue) Nack(ctx context.Context, deliveryID string, reason string) error {
	m.mu.Lock()
	m.nacked[deliveryID] = reason
	m.mu.Unlock()
	if m.nackFn != nil {
		return m.nackFn(deliveryID, reason)
	}
	return nil
}

func (m *mockDeliveryQueue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &driven.QueueStats{PendingCount: int64(len(m.deliveries))}, nil
}

func (m *mockDeliveryQueue) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn()
	}
	return nil
}

func (m *mockDeliveryQueue) Close() error {
	return nil
}

func (m *mockDeliveryQueue) outcome() (acked []string, nacked map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	nacked = make(map[string]string, len(m.nacked))
	for k, v := range m.nacked {
		nacked[k] = v
	}
	return append([]string(nil), m.acked...), nacked
}

// mockSyncEngine implements driving.SyncEngine for testing
type mockSyncEngine struct {
	mu    sync.Mutex
	calls [][]string
	fn    func(accountIDs []string) (*domain.DeliveryResult, error)
}

func (m *mockSyncEngine) HandleDelivery(ctx context.Context, accountIDs []string) (*domain.DeliveryResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, accountIDs)
	m.mu.Unlock()
	if m.fn != nil {
		return m.fn(accountIDs)
	}
	return &domain.DeliveryResult{}, nil
}

func (m *mockSyncEngine) SyncAccount(ctx context.Context, accountID string) (*domain.AccountSyncResult, error) {
	return &domain.AccountSyncResult{AccountID: accountID, Status: domain.AccountSynced}, nil
}

func (m *mockSyncEngine) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestNewWorker_Defaults(t *testing.T) {
	w := NewWorker(WorkerConfig{
		Queue:  newMockDeliveryQueue(),
		Engine: &mockSyncEngine{},
	})

	if w.Concurrency() != 1 {
		t.Errorf("expected default concurrency 1, got %d", w.Concurrency())
	}
	if w.dequeueTimeout != defaultDequeueTimeout {
		t.Errorf("expected default dequeue timeout %v, got %v", defaultDequeueTimeout, w.dequeueTimeout)
	}
	if w.logger == nil {
		t.Error("expected default logger")
	}
}

func TestNewWorker(t *testing.T) {
	w := NewWorker(WorkerConfig{
		Queue:          newMockDeliveryQueue(),
		Engine:         &mockSyncEngine{},
		Logger:         discardLogger(),
		Concurrency:    4,
		DequeueTimeout: time.Second,
	})

	if w.Concurrency() != 4 {
		t.Errorf("expected concurrency 4, got %d", w.Concurrency())
	}
	if w.dequeueTimeout != time.Second {
		t.Errorf("expected dequeue timeout 1s, got %v", w.dequeueTimeout)
	}
}

func TestWorker_StartStop(t *testing.T) {
	w := NewWorker(WorkerConfig{
		Queue:          newMockDeliveryQueue(),
		Engine:         &mockSyncEngine{},
		Logger:         discardLogger(),
		Concurrency:    2,
		DequeueTimeout: 10 * time.Millisecond,
	})

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	// Starting twice is a no-op
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("second start failed: %v", err)
	}
	if !w.Health(context.Background()).Running {
		t.Error("expected worker to report running")
	}

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not return")
	}

	if w.Health(context.Background()).Running {
		t.Error("expected worker to report stopped")
	}

	// Stopping twice is a no-op
	w.Stop()
}

func TestWorker_ContextCancellation(t *testing.T) {
	w := NewWorker(WorkerConfig{
		Queue:          newMockDeliveryQueue(),
		Engine:         &mockSyncEngine{},
		Logger:         discardLogger(),
		DequeueTimeout: time.Minute,
	})

	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	cancel()

	done := make(chan struct{})
	go func() {
		w.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not exit after context cancellation")
	}
}

func TestWorker_AcksSuccessfulDelivery(t *testing.T) {
	d := domain.NewDelivery([]string{"dbid:a", "dbid:b"})
	queue := newMockDeliveryQueue(d)
	engine := &mockSyncEngine{}

	w := NewWorker(WorkerConfig{
		Queue:          queue,
		Engine:         engine,
		Logger:         discardLogger(),
		DequeueTimeout: 10 * time.Millisecond,
	})
	_ = w.Start(context.Background())
	defer w.Stop()

	waitFor(t, func() bool {
		acked, _ := queue.outcome()
		return len(acked) == 1
	})

	acked, nacked := queue.outcome()
	if acked[0] != d.ID {
		t.Errorf("expected %s acked, got %s", d.ID, acked[0])
	}
	if len(nacked) != 0 {
		t.Errorf("expected no nacks, got %v", nacked)
	}

	engine.mu.Lock()
	defer engine.mu.Unlock()
	if len(engine.calls[0]) != 2 || engine.calls[0][0] != "dbid:a" {
		t.Errorf("expected engine to receive the delivery accounts, got %v", engine.calls[0])
	}
}

func TestWorker_NacksFailedDelivery(t *testing.T) {
	d := domain.NewDelivery([]string{"dbid:a"})
	queue := newMockDeliveryQueue(d)
	engine := &mockSyncEngine{
		fn: func(ids []string) (*domain.DeliveryResult, error) {
			return &domain.DeliveryResult{Accounts: []domain.AccountSyncResult{
				{AccountID: ids[0], Status: domain.AccountFailed, Error: "provider down"},
			}}, errors.New("account dbid:a: provider down")
		},
	}

	w := NewWorker(WorkerConfig{
		Queue:          queue,
		Engine:         engine,
		Logger:         discardLogger(),
		DequeueTimeout: 10 * time.Millisecond,
	})
	_ = w.Start(context.Background())
	defer w.Stop()

	waitFor(t, func() bool {
		_, nacked := queue.outcome()
		return len(nacked) == 1
	})

	acked, nacked := queue.outcome()
	if len(acked) != 0 {
		t.Errorf("expected no acks, got %v", acked)
	}
	if nacked[d.ID] != "account dbid:a: provider down" {
		t.Errorf("expected nack reason to carry the error, got %q", nacked[d.ID])
	}
}

func TestWorker_DequeueErrorBacksOff(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	queue := newMockDeliveryQueue()
	queue.dequeueFn = func() (*domain.Delivery, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return nil, errors.New("redis unavailable")
	}
	engine := &mockSyncEngine{}

	w := NewWorker(WorkerConfig{
		Queue:  queue,
		Engine: engine,
		Logger: discardLogger(),
	})
	_ = w.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	w.Stop()

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("expected a single dequeue attempt during backoff, got %d", calls)
	}
	if engine.callCount() != 0 {
		t.Error("engine must not run without a delivery")
	}
}

func TestWorker_AckErrorIsLogged(t *testing.T) {
	d := domain.NewDelivery([]string{"dbid:a"})
	queue := newMockDeliveryQueue(d)
	queue.ackFn = func(string) error { return errors.New("ack failed") }

	w := NewWorker(WorkerConfig{
		Queue:          queue,
		Engine:         &mockSyncEngine{},
		Logger:         discardLogger(),
		DequeueTimeout: 10 * time.Millisecond,
	})
	_ = w.Start(context.Background())
	defer w.Stop()

	waitFor(t, func() bool {
		acked, _ := queue.outcome()
		return len(acked) == 1
	})
}

func TestWorker_Health(t *testing.T) {
	queue := newMockDeliveryQueue(domain.NewDelivery(nil))
	w := NewWorker(WorkerConfig{Queue: queue, Engine: &mockSyncEngine{}, Logger: discardLogger()})

	health := w.Health(context.Background())
	if health.Running {
		t.Error("expected worker not running before Start")
	}
	if !health.QueueHealth {
		t.Error("expected queue to be healthy")
	}
	if health.Stats == nil || health.Stats.PendingCount != 1 {
		t.Errorf("expected stats with 1 pending, got %+v", health.Stats)
	}
}

func TestWorker_Health_QueueError(t *testing.T) {
	queue := newMockDeliveryQueue()
	queue.pingFn = func() error { return errors.New("connection refused") }
	w := NewWorker(WorkerConfig{Queue: queue, Engine: &mockSyncEngine{}, Logger: discardLogger()})

	health := w.Health(context.Background())
	if health.QueueHealth {
		t.Error("expected queue to be unhealthy")
	}
	if health.Error != "connection refused" {
		t.Errorf("expected error message, got %q", health.Error)
	}
	if health.Stats != nil {
		t.Error("expected no stats when the queue is down")
	}
}
