// Package vfspath converts host filesystem paths (Windows form, backslashes,
// possibly drive-rooted) into the VFS's canonical form: a leading slash,
// forward slashes, and resolved "." / ".." components.
package vfspath

import (
	"fmt"
	"os"
	posixpath "path"
	"regexp"
	"strings"
)

// Normalize converts a host path as received from the driver into the VFS
// canonical form. Grounded on the teacher's
// driver.BaseDriver.NormalizePath: backslashes become forward slashes, then
// path.Clean resolves "." and "..".
func Normalize(hostPath string) string {
	p := posixpath.Clean(strings.ReplaceAll(hostPath, `\`, "/"))
	if p == "." || p == "" {
		return "/"
	}
	if !posixpath.IsAbs(p) {
		p = "/" + p
	}
	return p
}

// mountPointPattern matches a drive-letter mount point: one ASCII letter
// followed by ":\".
var mountPointPattern = regexp.MustCompile(`^[A-Za-z]:\\$`)

// CheckMountPoint validates a user-supplied mount point string against
// spec.md §6's "Mount-point syntax": either a drive letter (X:\) or an
// absolute path to an existing empty directory. It returns an error
// (grounded on the original's `_check_path_string`) rather than letting an
// invalid string reach the driver.
func CheckMountPoint(path string) error {
	if mountPointPattern.MatchString(path) {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("invalid mount point %q: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("invalid mount point %q: not a directory", path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("invalid mount point %q: %w", path, err)
	}
	if len(entries) != 0 {
		return fmt.Errorf("invalid mount point %q: directory is not empty", path)
	}
	return nil
}

// IsSameNormalized reports whether two host paths normalize to the same VFS
// path, ignoring a trailing slash mismatch.
func IsSameNormalized(a, b string) bool {
	return strings.TrimRight(Normalize(a), "/") == strings.TrimRight(Normalize(b), "/")
}
