// Package tests contains test cases for models, repositories and business flows to avoid circular imports
package tests

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/propertyshodh/lead-pipeline/app/services"
	testingutil "github.com/propertyshodh/lead-pipeline/testing"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// withTestDB provisions a disposable database for one test. Tests are skipped
// when no PostgreSQL server is reachable.
func withTestDB(t *testing.T, fn func(*testingutil.TestDB)) {
	t.Helper()

	testDB, err := testingutil.SetupTestDB()
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := testDB.TeardownTestDB(); err != nil {
			t.Logf("warning: failed to cleanup test database: %v", err)
		}
	})

	fn(testDB)
}

// newChangeBus builds a change bus on an in-process Redis
func newChangeBus(t *testing.T) services.ChangeBus {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return services.NewRedisChangeBus(client)
}

// waitForLeadEvent blocks until an event arrives or the test times out
func waitForLeadEvent(t *testing.T, events <-chan services.LeadEvent) services.LeadEvent {
	t.Helper()

	select {
	case ev, ok := <-events:
		require.True(t, ok, "event channel closed before an event arrived")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for lead event")
		return services.LeadEvent{}
	}
}

// requireNoLeadEvent asserts that nothing arrives within the window
func requireNoLeadEvent(t *testing.T, events <-chan services.LeadEvent) {
	t.Helper()

	select {
	case ev := <-events:
		t.Fatalf("unexpected lead event: %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}
