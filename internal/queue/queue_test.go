package queue

import (
	"context"
	"fmt"
	"testing"

	"github.com/fairyhunter13/chat-order-service/internal/model"
)

func testMessage(i int) model.IncomingMessage {
	return model.IncomingMessage{
		From:            fmt.Sprintf("+9112345%05d", i),
		Message:         "2 saree 1200 each",
		Channel:         model.ChannelWhatsApp,
		BusinessAccount: "acct",
		SenderRole:      model.RoleCustomer,
	}
}

func TestQueueNonBlockingEnqueue(t *testing.T) {
	q := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx, 0)
	for i := 0; i < 1000; i++ {
		if ok := q.Enqueue(testMessage(i)); !ok {
			t.Fatalf("enqueue failed at %d", i)
		}
	}
	if q.BacklogSize() == 0 {
		t.Fatalf("expected backlog > 0")
	}
}

func TestQueueShutdownIntake(t *testing.T) {
	q := New(1)
	q.CloseIntake()
	if !q.IsShuttingDown() {
		t.Fatalf("expected shutting down true")
	}
	if ok := q.Enqueue(testMessage(0)); ok {
		t.Fatalf("expected enqueue false when shutting down")
	}
}

func TestQueueMetricsCounters(t *testing.T) {
	q := New(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx, 0)

	for i := 0; i < 3; i++ {
		_ = q.Enqueue(testMessage(i))
	}
	enq, proc, _, _ := q.Metrics()
	if enq != 3 {
		t.Fatalf("expected 3 enqueued, got %d", enq)
	}
	if proc != 0 {
		t.Fatalf("expected 0 processed, got %d", proc)
	}
	q.MarkProcessed()
	_, proc, _, _ = q.Metrics()
	if proc != 1 {
		t.Fatalf("expected 1 processed, got %d", proc)
	}
}
