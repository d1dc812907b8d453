package optest

import (
	"context"
	"crypto/rand"
	"testing"

	"github.com/polystore/polystore"
)

func testList(t *testing.T, op *polystore.Operator) {
	caps := op.Info().Capability
	skipWithout(t, caps.List && caps.Write, "list and write")
	ctx := context.Background()

	t.Run("ExactlyOnce", func(t *testing.T) {
		dir := uniqueName("list_dir") + "/"
		want := map[string]bool{
			dir + "one.txt":   false,
			dir + "two.txt":   false,
			dir + "three.txt": false,
		}
		for path := range want {
			mustWrite(t, op, path, []byte("listed"))
		}

		lister, err := op.List(ctx, dir)
		if err != nil {
			t.Fatalf("List(%q): got error %v, want nil", dir, err)
		}
		defer lister.Close()

		for {
			entry, err := lister.Next(ctx)
			if err != nil {
				t.Fatalf("Next(): got error %v, want nil", err)
			}
			if entry == nil {
				break
			}
			seen, ok := want[entry.Path()]
			if !ok {
				t.Errorf("Next(): unexpected entry %q", entry.Path())
				continue
			}
			if seen {
				t.Errorf("Next(): entry %q listed twice", entry.Path())
			}
			want[entry.Path()] = true
		}
		for path, seen := range want {
			if !seen {
				t.Errorf("List(%q): entry %q never listed", dir, path)
			}
		}

		// The end marker repeats forever.
		for i := 0; i < 3; i++ {
			entry, err := lister.Next(ctx)
			if err != nil {
				t.Fatalf("Next() after end: got error %v, want nil", err)
			}
			if entry != nil {
				t.Fatalf("Next() after end: got entry %q, want nil", entry.Path())
			}
		}
	})

	t.Run("CollapsesChildren", func(t *testing.T) {
		dir := uniqueName("list_deep") + "/"
		mustWrite(t, op, dir+"top.txt", []byte("direct child"))
		mustWrite(t, op, dir+"sub/a.txt", []byte("grandchild"))
		mustWrite(t, op, dir+"sub/b/c.txt", []byte("great-grandchild"))

		lister, err := op.List(ctx, dir)
		if err != nil {
			t.Fatalf("List(%q): got error %v, want nil", dir, err)
		}
		defer lister.Close()
		entries, err := lister.All(ctx)
		if err != nil {
			t.Fatalf("All(): got error %v, want nil", err)
		}

		got := map[string]polystore.EntryMode{}
		for _, entry := range entries {
			got[entry.Path()] = entry.Metadata().Mode()
		}
		if len(got) != 2 {
			t.Errorf("List(%q): got %d distinct entries %v, want 2", dir, len(got), got)
		}
		if mode, ok := got[dir+"top.txt"]; !ok || !mode.IsFile() {
			t.Errorf("List(%q): top.txt missing or not a file: %v", dir, got)
		}
		if mode, ok := got[dir+"sub/"]; !ok || !mode.IsDir() {
			t.Errorf("List(%q): sub/ missing or not a dir: %v", dir, got)
		}
	})

	if caps.ListWithRecursive {
		t.Run("Recursive", func(t *testing.T) {
			dir := uniqueName("list_recursive") + "/"
			files := []string{dir + "top.txt", dir + "sub/a.txt", dir + "sub/b/c.txt"}
			for _, path := range files {
				mustWrite(t, op, path, []byte("recursed"))
			}

			lister, err := op.List(ctx, dir, polystore.WithRecursive())
			if err != nil {
				t.Fatalf("List(%q, recursive): got error %v, want nil", dir, err)
			}
			defer lister.Close()
			entries, err := lister.All(ctx)
			if err != nil {
				t.Fatalf("All(): got error %v, want nil", err)
			}

			got := map[string]bool{}
			for _, entry := range entries {
				got[entry.Path()] = true
			}
			for _, path := range files {
				if !got[path] {
					t.Errorf("List(%q, recursive): %q never listed, got %v", dir, path, got)
				}
			}
		})
	}

	t.Run("EmptyDir", func(t *testing.T) {
		dir := uniqueName("list_empty") + "/"
		if caps.CreateDir {
			if err := op.CreateDir(ctx, dir); err != nil {
				t.Fatalf("CreateDir(%q): got error %v, want nil", dir, err)
			}
		}
		lister, err := op.List(ctx, dir)
		if err != nil {
			t.Fatalf("List(%q): got error %v, want nil", dir, err)
		}
		defer lister.Close()
		entries, err := lister.All(ctx)
		if err != nil {
			t.Fatalf("All(): got error %v, want nil", err)
		}
		if len(entries) != 0 {
			t.Errorf("List(%q): got %d entries, want 0", dir, len(entries))
		}
	})

	t.Run("FilePath", func(t *testing.T) {
		_, err := op.List(ctx, uniqueName("plain_file")+".txt")
		wantKind(t, err, polystore.KindNotADirectory, "List(file path)")
	})

	t.Run("CloseEarly", func(t *testing.T) {
		dir := uniqueName("list_close") + "/"
		mustWrite(t, op, dir+"a.txt", []byte("x"))
		mustWrite(t, op, dir+"b.txt", []byte("y"))

		lister, err := op.List(ctx, dir)
		if err != nil {
			t.Fatalf("List(%q): got error %v, want nil", dir, err)
		}
		if _, err := lister.Next(ctx); err != nil {
			t.Fatalf("Next(): got error %v, want nil", err)
		}
		if err := lister.Close(); err != nil {
			t.Errorf("Close() mid-listing: got error %v, want nil", err)
		}
		if err := lister.Close(); err != nil {
			t.Errorf("Close() again: got error %v, want nil", err)
		}
	})
}

// testListScenario drives the full write/list/stat/delete cycle with a
// 4 MiB object one level down, the way storage smoke tests exercise new
// backends.
func testListScenario(t *testing.T, op *polystore.Operator) {
	caps := op.Info().Capability
	skipWithout(t, caps.List && caps.Write && caps.Stat && caps.Delete, "list, write, stat and delete")
	ctx := context.Background()

	dir := uniqueName("scenario_dir")
	file := uniqueName("scenario_file")
	path := dir + "/" + file

	content := make([]byte, 4*1024*1024)
	if _, err := rand.Read(content); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}

	mustWrite(t, op, path, content)

	lister, err := op.List(ctx, dir+"/")
	if err != nil {
		t.Fatalf("List(%q): got error %v, want nil", dir+"/", err)
	}
	defer lister.Close()

	found := false
	for {
		entry, err := lister.Next(ctx)
		if err != nil {
			t.Fatalf("Next(): got error %v, want nil", err)
		}
		if entry == nil {
			break
		}

		// Every listed path must stat cleanly.
		meta, err := op.Stat(ctx, entry.Path())
		if err != nil {
			t.Fatalf("Stat(%q): got error %v, want nil", entry.Path(), err)
		}
		if entry.Path() == path {
			found = true
			if !meta.IsFile() {
				t.Errorf("Stat(%q): Mode() = %s, want file", path, meta.Mode())
			}
			if meta.ContentLength() != int64(len(content)) {
				t.Errorf("Stat(%q): ContentLength() = %d, want %d", path, meta.ContentLength(), len(content))
			}
		}
	}
	if !found {
		t.Fatalf("List(%q): written file %q never listed", dir+"/", path)
	}

	if err := op.Delete(ctx, path); err != nil {
		t.Fatalf("Delete(%q): got error %v, want nil", path, err)
	}
	exists, err := op.IsExist(ctx, path)
	if err != nil {
		t.Fatalf("IsExist(%q): got error %v, want nil", path, err)
	}
	if exists {
		t.Errorf("IsExist(%q) after delete = true, want false", path)
	}
}
