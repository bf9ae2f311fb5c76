package strategy_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/throttle/store/memory"
	"github.com/xraph/throttle/strategy"
)

func newConcurrencyStrategy(t *testing.T, store strategy.Store, class string, opts *strategy.ConcurrencyOptions) *strategy.Strategy {
	t.Helper()
	s, err := strategy.New(store, class, strategy.Options{Concurrency: opts})
	if err != nil {
		t.Fatalf("strategy.New: %v", err)
	}
	return s
}

func TestConcurrency_AdmitsUpToLimit(t *testing.T) {
	store := memory.New()
	s := newConcurrencyStrategy(t, store, "ExportJob", &strategy.ConcurrencyOptions{Limit: 3})

	ctx := context.Background()
	for i := range 3 {
		throttled, err := s.Throttled(ctx, fmt.Sprintf("jid-%d", i))
		if err != nil {
			t.Fatalf("Throttled: %v", err)
		}
		if throttled {
			t.Errorf("job %d throttled, want admitted", i)
		}
	}

	throttled, err := s.Throttled(ctx, "jid-over")
	if err != nil {
		t.Fatalf("Throttled: %v", err)
	}
	if !throttled {
		t.Error("4th job admitted, want throttled")
	}
}

func TestConcurrency_ExactlyLimitUnderContention(t *testing.T) {
	store := memory.New()
	s := newConcurrencyStrategy(t, store, "ExportJob", &strategy.ConcurrencyOptions{Limit: 5})

	const workers = 50
	var admitted atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := range workers {
		go func() {
			defer wg.Done()
			throttled, err := s.Throttled(context.Background(), fmt.Sprintf("jid-%d", i))
			if err != nil {
				t.Errorf("Throttled: %v", err)
				return
			}
			if !throttled {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	if admitted.Load() != 5 {
		t.Errorf("admitted %d jobs, want exactly 5", admitted.Load())
	}
}

func TestConcurrency_FinalizeFreesSlot(t *testing.T) {
	store := memory.New()
	s := newConcurrencyStrategy(t, store, "ExportJob", &strategy.ConcurrencyOptions{Limit: 1})

	ctx := context.Background()
	if throttled, _ := s.Throttled(ctx, "jid-1"); throttled {
		t.Fatal("first job throttled, want admitted")
	}
	if throttled, _ := s.Throttled(ctx, "jid-2"); !throttled {
		t.Fatal("second job admitted, want throttled")
	}

	if err := s.Finalize(ctx, "jid-1"); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	throttled, err := s.Throttled(ctx, "jid-3")
	if err != nil {
		t.Fatalf("Throttled: %v", err)
	}
	if throttled {
		t.Error("job after release throttled, want admitted")
	}
}

func TestConcurrency_FinalizeIdempotent(t *testing.T) {
	store := memory.New()
	s := newConcurrencyStrategy(t, store, "ExportJob", &strategy.ConcurrencyOptions{Limit: 2})

	ctx := context.Background()
	if throttled, _ := s.Throttled(ctx, "jid-1"); throttled {
		t.Fatal("job throttled, want admitted")
	}

	if err := s.Finalize(ctx, "jid-1"); err != nil {
		t.Fatalf("first Finalize: %v", err)
	}
	if err := s.Finalize(ctx, "jid-1"); err != nil {
		t.Fatalf("second Finalize: %v", err)
	}
	// Releasing a jid that never held a slot is fine too.
	if err := s.Finalize(ctx, "jid-never"); err != nil {
		t.Fatalf("Finalize unknown jid: %v", err)
	}

	if got := store.ActiveCount("ExportJob"); got != 0 {
		t.Errorf("active count = %d, want 0 (no negative/ghost slots)", got)
	}
}

func TestConcurrency_SafetyTTLReclaimsLeakedSlot(t *testing.T) {
	now := time.Unix(1000, 0)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	store := memory.New(memory.WithClock(clock))
	s := newConcurrencyStrategy(t, store, "ExportJob", &strategy.ConcurrencyOptions{
		Limit: 1,
		TTL:   time.Minute,
	})

	ctx := context.Background()
	if throttled, _ := s.Throttled(ctx, "jid-leaked"); throttled {
		t.Fatal("job throttled, want admitted")
	}
	if throttled, _ := s.Throttled(ctx, "jid-blocked"); !throttled {
		t.Fatal("second job admitted, want throttled")
	}

	// Worker crashed; no Finalize. The TTL reclaims the slot.
	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()

	throttled, err := s.Throttled(ctx, "jid-after-ttl")
	if err != nil {
		t.Fatalf("Throttled: %v", err)
	}
	if throttled {
		t.Error("job after TTL expiry throttled, want admitted")
	}
}

func TestConcurrency_KeyFuncSeparatesBuckets(t *testing.T) {
	store := memory.New()
	s := newConcurrencyStrategy(t, store, "ExportJob", &strategy.ConcurrencyOptions{
		Limit: 1,
		KeyFunc: func(args []any) string {
			tenant, _ := args[0].(string)
			return tenant
		},
	})

	ctx := context.Background()
	if throttled, _ := s.Throttled(ctx, "jid-1", "acme"); throttled {
		t.Fatal("acme job throttled, want admitted")
	}
	if throttled, _ := s.Throttled(ctx, "jid-2", "globex"); throttled {
		t.Error("globex job throttled, want admitted (independent bucket)")
	}
	if throttled, _ := s.Throttled(ctx, "jid-3", "acme"); !throttled {
		t.Error("second acme job admitted, want throttled")
	}
}

func TestConcurrency_DynamicLimit(t *testing.T) {
	store := memory.New()
	s := newConcurrencyStrategy(t, store, "ExportJob", &strategy.ConcurrencyOptions{
		LimitFunc: func(args []any) (int, error) {
			n, ok := args[0].(int)
			if !ok {
				return 0, errors.New("bad args")
			}
			return n, nil
		},
	})

	ctx := context.Background()
	if throttled, _ := s.Throttled(ctx, "jid-1", 2); throttled {
		t.Error("job throttled under dynamic limit 2, want admitted")
	}
	if throttled, _ := s.Throttled(ctx, "jid-2", 2); throttled {
		t.Error("job throttled under dynamic limit 2, want admitted")
	}
	if throttled, _ := s.Throttled(ctx, "jid-3", 2); !throttled {
		t.Error("3rd job admitted under dynamic limit 2, want throttled")
	}

	// A broken limit function is a configuration bug: it propagates.
	if _, err := s.Throttled(ctx, "jid-4", "not-an-int"); err == nil {
		t.Error("Throttled with failing LimitFunc returned nil error, want error")
	}
}

func TestConcurrency_NonPositiveLimitSuspends(t *testing.T) {
	store := memory.New()
	s := newConcurrencyStrategy(t, store, "ExportJob", &strategy.ConcurrencyOptions{
		LimitFunc: func([]any) (int, error) { return 0, nil },
	})

	throttled, err := s.Throttled(context.Background(), "jid-1")
	if err != nil {
		t.Fatalf("Throttled: %v", err)
	}
	if !throttled {
		t.Error("job admitted under limit 0, want throttled")
	}
}
