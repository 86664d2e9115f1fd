package lifecycle

import "testing"

// TestShuttingDownFlag verifies the flag round-trips and defaults to false.
func TestShuttingDownFlag(t *testing.T) {
	defer SetShuttingDown(false)

	if IsShuttingDown() {
		t.Error("IsShuttingDown() = true before any SetShuttingDown")
	}
	SetShuttingDown(true)
	if !IsShuttingDown() {
		t.Error("IsShuttingDown() = false after SetShuttingDown(true)")
	}
	SetShuttingDown(false)
	if IsShuttingDown() {
		t.Error("IsShuttingDown() = true after SetShuttingDown(false)")
	}
}
