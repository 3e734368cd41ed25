package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DSNPath returns the filesystem path of a SQLite DSN, or "" when the DSN
// is in-memory. Query parameters and a "file:" prefix are stripped.
func DSNPath(dsn string) string {
	p := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		if strings.Contains(p[i:], "mode=memory") {
			return ""
		}
		p = p[:i]
	}
	if p == "" || p == ":memory:" {
		return ""
	}
	return p
}

// EnsureParentDir creates the directory that will hold the database file
// named by dsn. In-memory DSNs are left alone.
func EnsureParentDir(dsn string) error {
	p := DSNPath(dsn)
	if p == "" {
		return nil
	}

	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}
