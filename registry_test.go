package polystore_test

import (
	"slices"
	"testing"

	"github.com/polystore/polystore"
)

func testFactory(options map[string]string) (polystore.Accessor, error) {
	return newFakeAccessor(allCaps()), nil
}

func TestRegister(t *testing.T) {
	polystore.Register("registry-test-alpha", testFactory)
	polystore.Register("registry-test-beta", testFactory)

	schemes := polystore.Schemes()
	if !slices.IsSorted(schemes) {
		t.Errorf("Schemes() = %v, want sorted", schemes)
	}
	for _, want := range []string{"registry-test-alpha", "registry-test-beta"} {
		if !slices.Contains(schemes, want) {
			t.Errorf("Schemes() = %v, missing %q", schemes, want)
		}
	}

	op, err := polystore.NewOperator("registry-test-alpha", nil)
	if err != nil {
		t.Fatalf("NewOperator: got error %v, want nil", err)
	}
	defer op.Close()
	if got := op.Info().Scheme; got != "fake" {
		t.Errorf("Info().Scheme = %q, want the factory's accessor", got)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("duplicate Register did not panic")
		}
	}()
	polystore.Register("registry-test-dup", testFactory)
	polystore.Register("registry-test-dup", testFactory)
}

func TestRegisterNilFactoryPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("nil factory Register did not panic")
		}
	}()
	polystore.Register("registry-test-nil", nil)
}

func TestNewOperatorUnknownScheme(t *testing.T) {
	_, err := polystore.NewOperator("no-such-scheme", nil)
	if got := polystore.KindOf(err); got != polystore.KindConfigInvalid {
		t.Fatalf("kind = %s, want ConfigInvalid", got)
	}
}
