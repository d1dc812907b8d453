package polystore

import (
	"path"
	"strings"
)

// NormalizePath canonicalizes a caller-supplied path into the form used
// everywhere inside the module: forward slashes only, "." and ".."
// segments collapsed (".." never escapes the root), no leading slash, and
// a trailing slash kept as the directory marker. The root is "/".
//
// Normalization is backend-independent; two paths that normalize equally
// refer to the same object on every service.
func NormalizePath(p string) string {
	isDir := strings.HasSuffix(p, "/")
	p = strings.ReplaceAll(p, "\\", "/")
	// Cleaning the rooted form keeps ".." from escaping upwards.
	p = path.Clean("/" + p)
	p = strings.TrimPrefix(p, "/")
	if p == "" || p == "." {
		return "/"
	}
	if isDir {
		p += "/"
	}
	return p
}

// NormalizeDir canonicalizes a path and forces the directory form.
// Operations that only make sense on directories, such as CreateDir,
// route their argument through this.
func NormalizeDir(p string) string {
	p = NormalizePath(p)
	if p != "/" && !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

// NormalizeRoot canonicalizes a service root prefix to the absolute form
// "/segment/.../": leading and trailing slash, no "." or ".." segments.
// The empty root is "/".
func NormalizeRoot(root string) string {
	root = strings.ReplaceAll(root, "\\", "/")
	root = path.Clean("/" + root)
	if root == "/" {
		return "/"
	}
	return root + "/"
}

// IsDirPath reports whether a normalized path is in directory form.
func IsDirPath(p string) bool {
	return p == "/" || strings.HasSuffix(p, "/")
}

// JoinRoot prepends a normalized root prefix to a normalized path,
// producing the absolute backend key for the object. The root path "/"
// maps to the root prefix itself.
func JoinRoot(root, p string) string {
	if p == "/" {
		return root
	}
	return root + p
}

// StripRoot removes a normalized root prefix from an absolute backend
// key, recovering the caller-visible path. Keys equal to the root map to
// "/"; keys outside the root are returned unchanged.
func StripRoot(root, key string) string {
	if key == root {
		return "/"
	}
	if rel, ok := strings.CutPrefix(key, root); ok {
		return rel
	}
	return key
}

// BaseName returns the last segment of a normalized path, keeping the
// trailing slash on directories. The root returns "/".
func BaseName(p string) string {
	if p == "/" || p == "" {
		return "/"
	}
	trimmed := strings.TrimSuffix(p, "/")
	if i := strings.LastIndexByte(trimmed, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

// ParentDir returns the directory containing a normalized path, in
// directory form. The root's parent is the root itself.
func ParentDir(p string) string {
	trimmed := strings.TrimSuffix(p, "/")
	i := strings.LastIndexByte(trimmed, '/')
	if i < 0 {
		return "/"
	}
	return p[:i+1]
}
