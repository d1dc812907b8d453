package optest

import (
	"bytes"
	"context"
	"testing"

	"github.com/polystore/polystore"
)

func testStat(t *testing.T, op *polystore.Operator) {
	caps := op.Info().Capability
	skipWithout(t, caps.Stat, "stat")
	ctx := context.Background()

	t.Run("Root", func(t *testing.T) {
		meta, err := op.Stat(ctx, "/")
		if err != nil {
			t.Fatalf("Stat(/): got error %v, want nil", err)
		}
		if !meta.IsDir() {
			t.Errorf("Stat(/): Mode() = %s, want dir", meta.Mode())
		}
	})

	t.Run("Missing", func(t *testing.T) {
		path := uniqueName("never_written")
		_, err := op.Stat(ctx, path)
		wantKind(t, err, polystore.KindNotFound, "Stat(missing)")

		exists, err := op.IsExist(ctx, path)
		if err != nil {
			t.Fatalf("IsExist(%q): got error %v, want nil", path, err)
		}
		if exists {
			t.Errorf("IsExist(%q) = true, want false", path)
		}
	})

	if !caps.Write {
		return
	}

	t.Run("File", func(t *testing.T) {
		path := uniqueName("stat_file") + ".txt"
		content := []byte("stat target contents")
		mustWrite(t, op, path, content)

		meta, err := op.Stat(ctx, path)
		if err != nil {
			t.Fatalf("Stat(%q): got error %v, want nil", path, err)
		}
		if !meta.IsFile() {
			t.Errorf("Stat(%q): Mode() = %s, want file", path, meta.Mode())
		}
		if meta.ContentLength() != int64(len(content)) {
			t.Errorf("Stat(%q): ContentLength() = %d, want %d", path, meta.ContentLength(), len(content))
		}

		exists, err := op.IsExist(ctx, path)
		if err != nil {
			t.Fatalf("IsExist(%q): got error %v, want nil", path, err)
		}
		if !exists {
			t.Errorf("IsExist(%q) = false, want true", path)
		}
	})

	if caps.CreateDir {
		t.Run("Dir", func(t *testing.T) {
			dir := uniqueName("stat_dir") + "/"
			if err := op.CreateDir(ctx, dir); err != nil {
				t.Fatalf("CreateDir(%q): got error %v, want nil", dir, err)
			}
			meta, err := op.Stat(ctx, dir)
			if err != nil {
				t.Fatalf("Stat(%q): got error %v, want nil", dir, err)
			}
			if !meta.IsDir() {
				t.Errorf("Stat(%q): Mode() = %s, want dir", dir, meta.Mode())
			}
		})
	}
}

func testReadWrite(t *testing.T, op *polystore.Operator) {
	caps := op.Info().Capability
	skipWithout(t, caps.Write && caps.Read, "write and read")
	ctx := context.Background()

	t.Run("RoundTrip", func(t *testing.T) {
		path := uniqueName("round_trip") + ".bin"
		content := []byte("the quick brown fox jumps over the lazy dog")
		mustWrite(t, op, path, content)

		got, err := op.Read(ctx, path)
		if err != nil {
			t.Fatalf("Read(%q): got error %v, want nil", path, err)
		}
		if !bytes.Equal(got, content) {
			t.Errorf("Read(%q): got %d bytes, want %d matching bytes", path, len(got), len(content))
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		path := uniqueName("overwrite") + ".txt"
		mustWrite(t, op, path, []byte("first version, longer than the second"))
		mustWrite(t, op, path, []byte("second"))

		got, err := op.Read(ctx, path)
		if err != nil {
			t.Fatalf("Read(%q): got error %v, want nil", path, err)
		}
		if string(got) != "second" {
			t.Errorf("Read(%q) after overwrite: got %q, want %q", path, got, "second")
		}
	})

	t.Run("Empty", func(t *testing.T) {
		path := uniqueName("empty") + ".txt"
		mustWrite(t, op, path, nil)

		got, err := op.Read(ctx, path)
		if err != nil {
			t.Fatalf("Read(%q): got error %v, want nil", path, err)
		}
		if len(got) != 0 {
			t.Errorf("Read(%q): got %d bytes, want 0", path, len(got))
		}
	})

	t.Run("ImplicitParents", func(t *testing.T) {
		path := uniqueName("implicit") + "/nested/deep/file.txt"
		mustWrite(t, op, path, []byte("no create_dir preceded this"))

		got, err := op.Read(ctx, path)
		if err != nil {
			t.Fatalf("Read(%q): got error %v, want nil", path, err)
		}
		if len(got) == 0 {
			t.Errorf("Read(%q): got empty contents", path)
		}
	})

	t.Run("ReadMissing", func(t *testing.T) {
		_, err := op.Read(ctx, uniqueName("never_written")+".txt")
		wantKind(t, err, polystore.KindNotFound, "Read(missing)")
	})

	t.Run("ReadDirPath", func(t *testing.T) {
		_, err := op.Read(ctx, uniqueName("somedir")+"/")
		wantKind(t, err, polystore.KindIsADirectory, "Read(dir path)")
	})

	t.Run("WriteDirPath", func(t *testing.T) {
		err := op.Write(ctx, uniqueName("somedir")+"/", []byte("x"))
		wantKind(t, err, polystore.KindIsADirectory, "Write(dir path)")
	})

	t.Run("ReadRange", func(t *testing.T) {
		path := uniqueName("ranged") + ".txt"
		mustWrite(t, op, path, []byte("0123456789"))

		got, err := op.ReadRange(ctx, path, 2, 3)
		if err != nil {
			t.Fatalf("ReadRange(%q, 2, 3): got error %v, want nil", path, err)
		}
		if string(got) != "234" {
			t.Errorf("ReadRange(%q, 2, 3): got %q, want %q", path, got, "234")
		}

		got, err = op.ReadRange(ctx, path, 4, -1)
		if err != nil {
			t.Fatalf("ReadRange(%q, 4, -1): got error %v, want nil", path, err)
		}
		if string(got) != "456789" {
			t.Errorf("ReadRange(%q, 4, -1): got %q, want %q", path, got, "456789")
		}

		got, err = op.ReadRange(ctx, path, 100, 5)
		if err != nil {
			t.Fatalf("ReadRange(%q, 100, 5): got error %v, want nil", path, err)
		}
		if len(got) != 0 {
			t.Errorf("ReadRange(%q, 100, 5): got %d bytes, want 0", path, len(got))
		}
	})
}

func testDelete(t *testing.T, op *polystore.Operator) {
	caps := op.Info().Capability
	skipWithout(t, caps.Delete && caps.Write, "delete and write")
	ctx := context.Background()

	t.Run("Absent", func(t *testing.T) {
		if err := op.Delete(ctx, uniqueName("never_written")+".txt"); err != nil {
			t.Errorf("Delete(absent): got error %v, want nil", err)
		}
	})

	t.Run("Twice", func(t *testing.T) {
		path := uniqueName("delete_twice") + ".txt"
		mustWrite(t, op, path, []byte("short lived"))

		if err := op.Delete(ctx, path); err != nil {
			t.Fatalf("Delete(%q): got error %v, want nil", path, err)
		}
		if err := op.Delete(ctx, path); err != nil {
			t.Errorf("Delete(%q) again: got error %v, want nil", path, err)
		}

		exists, err := op.IsExist(ctx, path)
		if err != nil {
			t.Fatalf("IsExist(%q): got error %v, want nil", path, err)
		}
		if exists {
			t.Errorf("IsExist(%q) after delete = true, want false", path)
		}
	})
}

func testCreateDir(t *testing.T, op *polystore.Operator) {
	caps := op.Info().Capability
	skipWithout(t, caps.CreateDir && caps.Stat, "create_dir and stat")
	ctx := context.Background()

	t.Run("Idempotent", func(t *testing.T) {
		dir := uniqueName("made_dir") + "/"
		if err := op.CreateDir(ctx, dir); err != nil {
			t.Fatalf("CreateDir(%q): got error %v, want nil", dir, err)
		}
		if err := op.CreateDir(ctx, dir); err != nil {
			t.Errorf("CreateDir(%q) again: got error %v, want nil", dir, err)
		}

		meta, err := op.Stat(ctx, dir)
		if err != nil {
			t.Fatalf("Stat(%q): got error %v, want nil", dir, err)
		}
		if !meta.IsDir() {
			t.Errorf("Stat(%q): Mode() = %s, want dir", dir, meta.Mode())
		}
	})

	t.Run("FileFormForced", func(t *testing.T) {
		// CreateDir without the trailing slash still creates a dir.
		name := uniqueName("dir_no_slash")
		if err := op.CreateDir(ctx, name); err != nil {
			t.Fatalf("CreateDir(%q): got error %v, want nil", name, err)
		}
		meta, err := op.Stat(ctx, name+"/")
		if err != nil {
			t.Fatalf("Stat(%q): got error %v, want nil", name+"/", err)
		}
		if !meta.IsDir() {
			t.Errorf("Stat(%q): Mode() = %s, want dir", name+"/", meta.Mode())
		}
	})
}

func testCheck(t *testing.T, op *polystore.Operator) {
	ctx := context.Background()
	if err := op.Check(ctx); err != nil {
		t.Fatalf("Check(): got error %v, want nil", err)
	}
	if !op.Available(ctx) {
		t.Errorf("Available() = false, want true")
	}
}
