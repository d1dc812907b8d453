package polystore_test

import (
	"testing"

	"github.com/polystore/polystore"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty is root", "", "/"},
		{"slash is root", "/", "/"},
		{"dot is root", ".", "/"},
		{"plain file", "a.txt", "a.txt"},
		{"leading slash stripped", "/a.txt", "a.txt"},
		{"nested file", "a/b/c.txt", "a/b/c.txt"},
		{"trailing slash kept", "a/b/", "a/b/"},
		{"double slashes collapsed", "a//b///c", "a/b/c"},
		{"dot segments collapsed", "a/./b", "a/b"},
		{"dotdot collapses inside", "a/b/../c", "a/c"},
		{"dotdot cannot escape", "../../etc/passwd", "etc/passwd"},
		{"dotdot to root", "a/..", "/"},
		{"backslashes converted", "a\\b\\c.txt", "a/b/c.txt"},
		{"dir form survives cleaning", "a//b//", "a/b/"},
		{"only dotdot", "..", "/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := polystore.NormalizePath(tt.in); got != tt.want {
				t.Errorf("NormalizePath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeDir(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"a", "a/"},
		{"a/", "a/"},
		{"a/b", "a/b/"},
		{"/a/b/", "a/b/"},
	}
	for _, tt := range tests {
		if got := polystore.NormalizeDir(tt.in); got != tt.want {
			t.Errorf("NormalizeDir(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeRoot(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"data", "/data/"},
		{"/data", "/data/"},
		{"/data/", "/data/"},
		{"data/sub", "/data/sub/"},
		{"//data//sub/", "/data/sub/"},
		{"/data/../other", "/other/"},
	}
	for _, tt := range tests {
		if got := polystore.NormalizeRoot(tt.in); got != tt.want {
			t.Errorf("NormalizeRoot(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestJoinStripRoot(t *testing.T) {
	tests := []struct {
		root string
		path string
		key  string
	}{
		{"/", "a.txt", "/a.txt"},
		{"/", "/", "/"},
		{"/data/", "a.txt", "/data/a.txt"},
		{"/data/", "sub/b/", "/data/sub/b/"},
		{"/data/", "/", "/data/"},
	}
	for _, tt := range tests {
		key := polystore.JoinRoot(tt.root, tt.path)
		if key != tt.key {
			t.Errorf("JoinRoot(%q, %q) = %q, want %q", tt.root, tt.path, key, tt.key)
		}
		back := polystore.StripRoot(tt.root, key)
		if back != tt.path {
			t.Errorf("StripRoot(%q, %q) = %q, want %q", tt.root, key, back, tt.path)
		}
	}

	// Keys outside the root pass through untouched.
	if got := polystore.StripRoot("/data/", "/other/x.txt"); got != "/other/x.txt" {
		t.Errorf("StripRoot outside root = %q, want unchanged", got)
	}
}

func TestIsDirPath(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"/", true},
		{"a/", true},
		{"a/b/", true},
		{"a", false},
		{"a/b.txt", false},
	}
	for _, tt := range tests {
		if got := polystore.IsDirPath(tt.in); got != tt.want {
			t.Errorf("IsDirPath(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestBaseName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/", "/"},
		{"a.txt", "a.txt"},
		{"a/b.txt", "b.txt"},
		{"a/b/", "b/"},
		{"a/b/c/", "c/"},
	}
	for _, tt := range tests {
		if got := polystore.BaseName(tt.in); got != tt.want {
			t.Errorf("BaseName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParentDir(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/", "/"},
		{"a.txt", "/"},
		{"a/b.txt", "a/"},
		{"a/b/", "a/"},
		{"a/b/c/", "a/b/"},
	}
	for _, tt := range tests {
		if got := polystore.ParentDir(tt.in); got != tt.want {
			t.Errorf("ParentDir(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
