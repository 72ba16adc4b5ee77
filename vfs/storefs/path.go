package storefs

import (
	"strings"

	stdpath "path"
)

// cleanPath canonicalizes an internal (already mount-relative) path to the
// form the engine works with: absolute, no trailing slash except for "/"
// itself. hadTrailingSlash is reported separately because "regular file
// opened with a trailing slash" is an ENOTDIR case the caller must detect
// after resolving the target (spec.md §4.C edge cases).
func cleanPath(p string) (clean string, hadTrailingSlash bool) {
	if p == "" {
		p = "/"
	}
	hadTrailingSlash = len(p) > 1 && strings.HasSuffix(p, "/")
	clean = stdpath.Clean(p)
	if !strings.HasPrefix(clean, "/") {
		clean = "/" + clean
	}
	return clean, hadTrailingSlash
}

// splitParent splits a cleaned absolute path into its parent directory and
// basename. For "/" (root), name is returned empty — callers must special-
// case operations that target the root itself (e.g. createFile("/") is
// EEXIST, not a lookup).
func splitParent(p string) (parent, name string) {
	clean, _ := cleanPath(p)
	if clean == "/" {
		return "", ""
	}
	dir, base := stdpath.Split(clean)
	dir = stdpath.Clean(dir)
	return dir, base
}

// segments splits a cleaned absolute path into its non-empty components.
func segments(p string) []string {
	clean, _ := cleanPath(p)
	if clean == "/" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(clean, "/"), "/")
}
