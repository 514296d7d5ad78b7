package database

import (
	"testing"
)

func TestNewConnectionRejectsBadParameters(t *testing.T) {
	_, err := NewConnection("invalid", "invalid", "invalid", "invalid", "invalid")
	if err == nil {
		t.Error("Expected error for unreachable database")
	}

	// A valid connection needs a running PostgreSQL instance and is left to
	// integration tests.
}
