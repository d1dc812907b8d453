package optest

import (
	"bytes"
	"context"
	"testing"

	"github.com/polystore/polystore"
)

// testBlocking verifies the blocking view reaches the same backend and
// produces the same outcomes as the context view.
func testBlocking(t *testing.T, op *polystore.Operator) {
	caps := op.Info().Capability
	skipWithout(t, caps.Write && caps.Read && caps.Stat, "write, read and stat")
	ctx := context.Background()
	blocking := op.Blocking()

	t.Run("SharedBackend", func(t *testing.T) {
		path := uniqueName("blocking_shared") + ".txt"
		content := []byte("written blocking, read suspending")

		if err := blocking.Write(path, content); err != nil {
			t.Fatalf("Blocking Write(%q): got error %v, want nil", path, err)
		}
		got, err := op.Read(ctx, path)
		if err != nil {
			t.Fatalf("Read(%q): got error %v, want nil", path, err)
		}
		if !bytes.Equal(got, content) {
			t.Errorf("Read(%q): blocking write not visible to context read", path)
		}

		got, err = blocking.Read(path)
		if err != nil {
			t.Fatalf("Blocking Read(%q): got error %v, want nil", path, err)
		}
		if !bytes.Equal(got, content) {
			t.Errorf("Blocking Read(%q): got different contents", path)
		}
	})

	t.Run("SameErrors", func(t *testing.T) {
		path := uniqueName("blocking_missing") + ".txt"

		_, ctxErr := op.Stat(ctx, path)
		_, blockErr := blocking.Stat(path)
		if polystore.KindOf(ctxErr) != polystore.KindOf(blockErr) {
			t.Errorf("Stat(missing): context kind %s, blocking kind %s, want equal",
				polystore.KindOf(ctxErr), polystore.KindOf(blockErr))
		}
		wantKind(t, blockErr, polystore.KindNotFound, "Blocking Stat(missing)")
	})

	if caps.List {
		t.Run("Lister", func(t *testing.T) {
			dir := uniqueName("blocking_list") + "/"
			mustWrite(t, op, dir+"a.txt", []byte("x"))
			mustWrite(t, op, dir+"b.txt", []byte("y"))

			lister, err := blocking.List(dir)
			if err != nil {
				t.Fatalf("Blocking List(%q): got error %v, want nil", dir, err)
			}
			defer lister.Close()

			count := 0
			for {
				entry, err := lister.Next()
				if err != nil {
					t.Fatalf("Next(): got error %v, want nil", err)
				}
				if entry == nil {
					break
				}
				count++
			}
			if count != 2 {
				t.Errorf("Blocking List(%q): got %d entries, want 2", dir, count)
			}
		})
	}
}

// testUnsupported verifies operations outside the declared capability
// fail fast with Unsupported instead of reaching the backend.
func testUnsupported(t *testing.T, op *polystore.Operator) {
	ctx := context.Background()
	caps := op.Info().Capability
	if caps.Stat && caps.Write && caps.Read && caps.Delete &&
		caps.CreateDir && caps.Copy && caps.Rename && caps.List && caps.ListWithRecursive {
		t.Skip("service supports every operation")
	}
	path := uniqueName("unsupported") + ".txt"

	if !caps.Write {
		err := op.Write(ctx, path, []byte("x"))
		wantKind(t, err, polystore.KindUnsupported, "Write(unsupported)")
	}
	if !caps.Delete {
		err := op.Delete(ctx, path)
		wantKind(t, err, polystore.KindUnsupported, "Delete(unsupported)")
	}
	if !caps.CreateDir {
		err := op.CreateDir(ctx, path+"/")
		wantKind(t, err, polystore.KindUnsupported, "CreateDir(unsupported)")
	}
	if !caps.Copy {
		err := op.Copy(ctx, path, path+".bak")
		wantKind(t, err, polystore.KindUnsupported, "Copy(unsupported)")
	}
	if !caps.Rename {
		err := op.Rename(ctx, path, path+".bak")
		wantKind(t, err, polystore.KindUnsupported, "Rename(unsupported)")
	}
	if !caps.List {
		_, err := op.List(ctx, "/")
		wantKind(t, err, polystore.KindUnsupported, "List(unsupported)")
	}
	if caps.List && !caps.ListWithRecursive {
		_, err := op.List(ctx, "/", polystore.WithRecursive())
		wantKind(t, err, polystore.KindUnsupported, "List(recursive unsupported)")
	}
}
