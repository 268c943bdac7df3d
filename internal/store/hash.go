package store

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
)

// ComputeConfigHash computes a deterministic hash of everything that
// affects lint results besides file content: the rule options and the
// source of every script rule. Cached diagnostics are only valid while this
// hash is unchanged.
func ComputeConfigHash(target string, modules []string, requireImport bool, scripts map[string]string) string {
	h := sha256.New()

	fmt.Fprintf(h, "target:%s\n", target)

	// Modules — sorted for determinism.
	sorted := make([]string, len(modules))
	copy(sorted, modules)
	sort.Strings(sorted)
	fmt.Fprintf(h, "modules:%s\n", strings.Join(sorted, ","))
	fmt.Fprintf(h, "require_import:%v\n", requireImport)

	// Scripts — sorted by path.
	paths := make([]string, 0, len(scripts))
	for p := range scripts {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		fmt.Fprintf(h, "script:%s:%x\n", p, sha256.Sum256([]byte(scripts[p])))
	}

	return fmt.Sprintf("%x", h.Sum(nil))
}
