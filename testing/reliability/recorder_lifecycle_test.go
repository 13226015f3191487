package reliability

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/profilez"
)

// TestRecorderLifecycle exercises repeated sessions under concurrent load.
func TestRecorderLifecycle(t *testing.T) {
	if shouldSkipReliabilityTests() {
		t.Skip("Set PROFILEZ_RELIABILITY_LEVEL=basic or stress to run reliability tests")
	}
	config := getReliabilityConfig()

	t.Run("RepeatedSessions", func(t *testing.T) { testRepeatedSessions(t, config) })
	t.Run("EndUnderLoad", func(t *testing.T) { testEndUnderLoad(t, config) })
	t.Run("OperationsAfterClose", testOperationsAfterClose)
}

// testRepeatedSessions cycles Start/Stop while writers run and checks
// goroutines do not leak.
func testRepeatedSessions(t *testing.T, config ReliabilityConfig) {
	baseline := runtime.NumGoroutine()
	rec := profilez.New()

	deadline := time.Now().Add(time.Second)
	if isStressTestEnabled() {
		deadline = time.Now().Add(config.Duration)
	}

	var (
		wg      sync.WaitGroup
		stopped atomic.Bool
		events  atomic.Int64
	)
	for i := 0; i < config.MaxGoroutines; i++ {
		wg.Add(1)
		go func(tid profilez.ThreadID) {
			defer wg.Done()
			for !stopped.Load() {
				rec.BeginEvent(tid, time.Now(), profilez.TagUI, "work", nil)
				rec.EndEvent(tid, "writer", time.Now(), profilez.TagUI, "ui", nil)
				events.Add(1)
			}
		}(profilez.ThreadID(i + 1))
	}

	sessions := 0
	for time.Now().Before(deadline) {
		rec.Start(profilez.TagAll)
		time.Sleep(5 * time.Millisecond)
		trace := rec.Stop()
		if trace == nil {
			t.Fatal("Stop returned nil trace")
		}
		sessions++
	}

	stopped.Store(true)
	wg.Wait()
	rec.Close()

	t.Logf("Sessions: %d, events attempted: %d", sessions, events.Load())

	time.Sleep(50 * time.Millisecond)
	if leaked := runtime.NumGoroutine() - baseline; leaked > 2 {
		t.Errorf("Possible goroutine leak: %d goroutines above baseline", leaked)
	}
}

// testEndUnderLoad issues many End calls back to back; every callback must
// fire exactly once.
func testEndUnderLoad(t *testing.T, config ReliabilityConfig) {
	rec := profilez.New().WithQueueSize(4)
	defer rec.Close()

	rounds := 200
	if isStressTestEnabled() {
		rounds = config.MaxGoroutines * 50
	}

	var wg sync.WaitGroup
	var delivered atomic.Int64
	for i := 0; i < rounds; i++ {
		rec.Start(profilez.TagAll)
		rec.ImmediateEvent(1, profilez.TagUI, "mark", time.Now(), profilez.ScopeProcess)
		wg.Add(1)
		rec.End(func(data []byte, err error) {
			defer wg.Done()
			if err != nil {
				t.Errorf("End failed: %v", err)
				return
			}
			if len(data) == 0 {
				t.Error("End delivered no data")
			}
			delivered.Add(1)
		})
	}

	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(30 * time.Second):
		t.Fatalf("Only %d of %d End callbacks fired", delivered.Load(), rounds)
	}
}

// testOperationsAfterClose verifies a closed recorder stays safe to use.
func testOperationsAfterClose(t *testing.T) {
	rec := profilez.New()
	rec.Start(profilez.TagAll)
	rec.Close()

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Panic after recorder close: %v", r)
		}
	}()

	rec.BeginEvent(1, time.Now(), profilez.TagUI, "late", nil)
	rec.EndEvent(1, "main", time.Now(), profilez.TagUI, "ui", nil)
	_ = rec.BeginFlowEvent(1)

	done := make(chan struct{})
	rec.End(func([]byte, error) { close(done) })
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("End after Close never called back")
	}
}
