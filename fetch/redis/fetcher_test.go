//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xraph/throttle"
	"github.com/xraph/throttle/fetch"
	redisfetch "github.com/xraph/throttle/fetch/redis"
)

// setupTestClient starts a Redis container and returns a connected client.
func setupTestClient(t *testing.T) *goredis.Client {
	t.Helper()

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}
	t.Cleanup(func() {
		if termErr := container.Terminate(ctx); termErr != nil {
			t.Logf("terminate container: %v", termErr)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("get endpoint: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{Addr: endpoint})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func TestFetcher_EnqueueRetrieveRoundTrip(t *testing.T) {
	client := setupTestClient(t)
	f := redisfetch.New(client, []string{"default"}, redisfetch.WithTimeout(time.Second))
	ctx := context.Background()

	jid, err := f.Enqueue(ctx, "default", "ReportsJob", 42, "acme")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if jid == "" {
		t.Fatal("Enqueue returned empty jid")
	}

	unit, err := f.RetrieveWork(ctx)
	if err != nil {
		t.Fatalf("RetrieveWork: %v", err)
	}
	if unit == nil {
		t.Fatal("no work retrieved")
	}
	if unit.Queue() != "default" {
		t.Errorf("Queue = %q, want %q", unit.Queue(), "default")
	}

	msg, err := throttle.DecodeMessage(nil, unit.Payload())
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if msg.ClassName() != "ReportsJob" || msg.JID != jid {
		t.Errorf("decoded class=%q jid=%q, want ReportsJob/%q", msg.ClassName(), msg.JID, jid)
	}
}

func TestFetcher_QueueOrder(t *testing.T) {
	client := setupTestClient(t)
	f := redisfetch.New(client, []string{"critical", "default"}, redisfetch.WithTimeout(time.Second))
	ctx := context.Background()

	if _, err := f.Enqueue(ctx, "default", "LowJob"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := f.Enqueue(ctx, "critical", "HighJob"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	unit, err := f.RetrieveWork(ctx)
	if err != nil {
		t.Fatalf("RetrieveWork: %v", err)
	}
	if unit == nil || unit.Queue() != "critical" {
		t.Fatalf("retrieved from %v, want the critical queue first", unit)
	}
}

func TestFetcher_PausedQueueSkipped(t *testing.T) {
	client := setupTestClient(t)
	f := redisfetch.New(client, []string{"default"}, redisfetch.WithTimeout(time.Second))
	ctx := context.Background()

	if _, err := f.Enqueue(ctx, "default", "ReportsJob"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	f.Pause("default")
	if unit, err := f.RetrieveWork(ctx); err != nil || unit != nil {
		t.Fatalf("RetrieveWork while paused = (%v, %v), want no work", unit, err)
	}

	f.Unpause("default")
	if unit, err := f.RetrieveWork(ctx); err != nil || unit == nil {
		t.Fatalf("RetrieveWork after unpause = (%v, %v), want the job", unit, err)
	}
}

func TestFetcher_RequeuePutsJobAtFront(t *testing.T) {
	client := setupTestClient(t)
	f := redisfetch.New(client, []string{"default"}, redisfetch.WithTimeout(time.Second))
	ctx := context.Background()

	first, err := f.Enqueue(ctx, "default", "ReportsJob")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := f.Enqueue(ctx, "default", "ReportsJob"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	unit, err := f.RetrieveWork(ctx)
	if err != nil || unit == nil {
		t.Fatalf("RetrieveWork = (%v, %v), want work", unit, err)
	}
	if rqErr := unit.Requeue(ctx); rqErr != nil {
		t.Fatalf("Requeue: %v", rqErr)
	}

	// The requeued job comes back before the one behind it.
	unit, err = f.RetrieveWork(ctx)
	if err != nil || unit == nil {
		t.Fatalf("RetrieveWork = (%v, %v), want work", unit, err)
	}
	msg, err := throttle.DecodeMessage(nil, unit.Payload())
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if msg.JID != first {
		t.Errorf("retrieved jid %q, want requeued job %q first", msg.JID, first)
	}
}

func TestFetcher_BulkRequeue(t *testing.T) {
	client := setupTestClient(t)
	f := redisfetch.New(client, []string{"default"}, redisfetch.WithTimeout(time.Second))
	ctx := context.Background()

	if _, err := f.Enqueue(ctx, "default", "ReportsJob"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := f.Enqueue(ctx, "default", "ReportsJob"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	var units []fetch.UnitOfWork
	for range 2 {
		unit, err := f.RetrieveWork(ctx)
		if err != nil || unit == nil {
			t.Fatalf("RetrieveWork = (%v, %v), want work", unit, err)
		}
		units = append(units, unit)
	}

	if err := f.BulkRequeue(ctx, units); err != nil {
		t.Fatalf("BulkRequeue: %v", err)
	}
	if n, err := client.LLen(ctx, "throttle:queue:default").Result(); err != nil || n != 2 {
		t.Fatalf("queue length = (%d, %v), want 2", n, err)
	}
}
