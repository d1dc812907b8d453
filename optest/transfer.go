package optest

import (
	"bytes"
	"context"
	"testing"

	"github.com/polystore/polystore"
)

func testCopy(t *testing.T, op *polystore.Operator) {
	caps := op.Info().Capability
	skipWithout(t, caps.Copy && caps.Write && caps.Read, "copy")
	ctx := context.Background()

	t.Run("Duplicates", func(t *testing.T) {
		src := uniqueName("copy_src") + ".txt"
		dst := uniqueName("copy_dst") + ".txt"
		content := []byte("contents travel with the copy")
		mustWrite(t, op, src, content)

		if err := op.Copy(ctx, src, dst); err != nil {
			t.Fatalf("Copy(%q, %q): got error %v, want nil", src, dst, err)
		}

		got, err := op.Read(ctx, dst)
		if err != nil {
			t.Fatalf("Read(%q): got error %v, want nil", dst, err)
		}
		if !bytes.Equal(got, content) {
			t.Errorf("Read(%q): copied contents differ from source", dst)
		}

		// Source is untouched.
		got, err = op.Read(ctx, src)
		if err != nil {
			t.Fatalf("Read(%q): got error %v, want nil", src, err)
		}
		if !bytes.Equal(got, content) {
			t.Errorf("Read(%q): source changed by copy", src)
		}
	})

	t.Run("OverwritesDestination", func(t *testing.T) {
		src := uniqueName("copy_src") + ".txt"
		dst := uniqueName("copy_dst") + ".txt"
		mustWrite(t, op, src, []byte("new contents"))
		mustWrite(t, op, dst, []byte("old contents that must vanish"))

		if err := op.Copy(ctx, src, dst); err != nil {
			t.Fatalf("Copy(%q, %q): got error %v, want nil", src, dst, err)
		}
		got, err := op.Read(ctx, dst)
		if err != nil {
			t.Fatalf("Read(%q): got error %v, want nil", dst, err)
		}
		if string(got) != "new contents" {
			t.Errorf("Read(%q): got %q, want %q", dst, got, "new contents")
		}
	})

	t.Run("MissingSource", func(t *testing.T) {
		err := op.Copy(ctx, uniqueName("never_written")+".txt", uniqueName("copy_dst")+".txt")
		wantKind(t, err, polystore.KindNotFound, "Copy(missing src)")
	})

	t.Run("SameFile", func(t *testing.T) {
		path := uniqueName("copy_self") + ".txt"
		mustWrite(t, op, path, []byte("x"))
		err := op.Copy(ctx, path, path)
		wantKind(t, err, polystore.KindIsSameFile, "Copy(p, p)")
	})

	t.Run("DirSource", func(t *testing.T) {
		err := op.Copy(ctx, uniqueName("somedir")+"/", uniqueName("copy_dst")+".txt")
		wantKind(t, err, polystore.KindIsADirectory, "Copy(dir src)")
	})
}

func testRename(t *testing.T, op *polystore.Operator) {
	caps := op.Info().Capability
	skipWithout(t, caps.Rename && caps.Write && caps.Read, "rename")
	ctx := context.Background()

	t.Run("Moves", func(t *testing.T) {
		src := uniqueName("rename_src") + ".txt"
		dst := uniqueName("rename_dst") + ".txt"
		content := []byte("contents travel with the rename")
		mustWrite(t, op, src, content)

		if err := op.Rename(ctx, src, dst); err != nil {
			t.Fatalf("Rename(%q, %q): got error %v, want nil", src, dst, err)
		}

		got, err := op.Read(ctx, dst)
		if err != nil {
			t.Fatalf("Read(%q): got error %v, want nil", dst, err)
		}
		if !bytes.Equal(got, content) {
			t.Errorf("Read(%q): moved contents differ from source", dst)
		}

		// Source is gone.
		exists, err := op.IsExist(ctx, src)
		if err != nil {
			t.Fatalf("IsExist(%q): got error %v, want nil", src, err)
		}
		if exists {
			t.Errorf("IsExist(%q) after rename = true, want false", src)
		}
	})

	t.Run("MissingSource", func(t *testing.T) {
		err := op.Rename(ctx, uniqueName("never_written")+".txt", uniqueName("rename_dst")+".txt")
		wantKind(t, err, polystore.KindNotFound, "Rename(missing src)")
	})

	t.Run("SameFile", func(t *testing.T) {
		path := uniqueName("rename_self") + ".txt"
		mustWrite(t, op, path, []byte("x"))
		err := op.Rename(ctx, path, path)
		wantKind(t, err, polystore.KindIsSameFile, "Rename(p, p)")

		// The file survives the rejected rename.
		exists, err := op.IsExist(ctx, path)
		if err != nil {
			t.Fatalf("IsExist(%q): got error %v, want nil", path, err)
		}
		if !exists {
			t.Errorf("IsExist(%q) after same-file rename = false, want true", path)
		}
	})
}
