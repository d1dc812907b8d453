// Package optest provides a conformance test suite for storage services.
//
// The suite validates an Operator against the behavior every service
// must share: error kinds, idempotence rules, listing semantics, and the
// equivalence of the context and blocking calling conventions. Tests are
// gated on the service's declared capability, so the one suite runs
// against full backends and read-only backends alike.
//
// Example usage:
//
//	func TestConformance(t *testing.T) {
//	    optest.TestSuite(t, func(t *testing.T) *polystore.Operator {
//	        op, err := polystore.NewOperator("memory", nil)
//	        if err != nil {
//	            t.Fatalf("NewOperator(memory): %v", err)
//	        }
//	        t.Cleanup(func() { op.Close() })
//	        return op
//	    })
//	}
//
// The constructor is called once per test group and must return an
// operator whose backend tolerates concurrent suite runs; tests use
// generated unique paths, so a shared bucket is fine.
package optest

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/polystore/polystore"
)

// NewOperatorFunc returns a ready Operator for one test group. Register
// cleanup with t.Cleanup; failures should t.Fatal.
type NewOperatorFunc func(t *testing.T) *polystore.Operator

// TestSuite runs all conformance tests applicable to the service's
// capability.
func TestSuite(t *testing.T, newOperator NewOperatorFunc) {
	t.Run("Stat", func(t *testing.T) {
		testStat(t, newOperator(t))
	})
	t.Run("ReadWrite", func(t *testing.T) {
		testReadWrite(t, newOperator(t))
	})
	t.Run("Delete", func(t *testing.T) {
		testDelete(t, newOperator(t))
	})
	t.Run("CreateDir", func(t *testing.T) {
		testCreateDir(t, newOperator(t))
	})
	t.Run("Copy", func(t *testing.T) {
		testCopy(t, newOperator(t))
	})
	t.Run("Rename", func(t *testing.T) {
		testRename(t, newOperator(t))
	})
	t.Run("List", func(t *testing.T) {
		testList(t, newOperator(t))
	})
	t.Run("ListScenario", func(t *testing.T) {
		testListScenario(t, newOperator(t))
	})
	t.Run("Blocking", func(t *testing.T) {
		testBlocking(t, newOperator(t))
	})
	t.Run("Unsupported", func(t *testing.T) {
		testUnsupported(t, newOperator(t))
	})
	t.Run("Check", func(t *testing.T) {
		testCheck(t, newOperator(t))
	})
}

// uniqueName returns a path segment no other suite run has used.
func uniqueName(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}

// wantKind asserts err carries the given kind.
func wantKind(t *testing.T, err error, kind polystore.ErrorKind, op string) {
	t.Helper()
	if err == nil {
		t.Fatalf("%s: got nil error, want kind %s", op, kind)
	}
	if got := polystore.KindOf(err); got != kind {
		t.Fatalf("%s: got error kind %s (%v), want %s", op, got, err, kind)
	}
}

// mustWrite is a setup helper; it fails the test when the service cannot
// complete the write.
func mustWrite(t *testing.T, op *polystore.Operator, path string, data []byte) {
	t.Helper()
	if err := op.Write(context.Background(), path, data); err != nil {
		t.Fatalf("Write(%q): setup failed: %v", path, err)
	}
}

// skipWithout skips the test group when the capability flag is false.
func skipWithout(t *testing.T, have bool, what string) {
	t.Helper()
	if !have {
		t.Skipf("service does not support %s", what)
	}
}
