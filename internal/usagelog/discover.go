package usagelog

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

// maxWalkDepth bounds the recursive walk so symlink cycles cannot spin.
const maxWalkDepth = 32

// DataDirs resolves the log roots to scan. Explicitly configured dirs win;
// otherwise $CLAUDE_CONFIG_DIR (comma separated) is honored; otherwise the
// two conventional locations are used, legacy path last.
func DataDirs(explicit []string) []string {
	if len(explicit) > 0 {
		return expandDirs(explicit)
	}

	if env := os.Getenv("CLAUDE_CONFIG_DIR"); strings.TrimSpace(env) != "" {
		parts := lo.Map(strings.Split(env, ","), func(p string, _ int) string {
			return strings.TrimSpace(p)
		})
		return expandDirs(lo.Compact(parts))
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{
		filepath.Join(home, ".config", "claude"),
		filepath.Join(home, ".claude"),
	}
}

// expandDirs resolves ~ prefixes and drops repeated roots so one
// directory is never scanned twice.
func expandDirs(dirs []string) []string {
	expanded := lo.Map(dirs, func(dir string, _ int) string {
		if strings.HasPrefix(dir, "~"+string(filepath.Separator)) || dir == "~" {
			if home, err := os.UserHomeDir(); err == nil {
				return filepath.Join(home, strings.TrimPrefix(dir, "~"))
			}
		}
		return dir
	})
	return lo.Uniq(expanded)
}

// CollectFiles walks <root>/projects under every data dir and returns all
// .jsonl files found. Unreadable roots are logged and skipped; the caller
// decides whether an empty result is fatal.
func CollectFiles(dirs []string) []string {
	var files []string
	for _, dir := range dirs {
		root := filepath.Join(dir, projectsDirName)
		info, err := os.Stat(root)
		if err != nil {
			if !os.IsNotExist(err) {
				warnf("discover_root", "root=%s err=%v", root, err)
			}
			continue
		}
		if !info.IsDir() {
			continue
		}
		files = appendJSONLFiles(files, root, 0)
	}
	return files
}

// appendJSONLFiles is a hand-rolled walk because filepath.Walk does not
// follow directory symlinks and real installs symlink project dirs.
func appendJSONLFiles(files []string, dir string, depth int) []string {
	if depth > maxWalkDepth {
		return files
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		warnf("discover_dir", "dir=%s err=%v", dir, err)
		return files
	}
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		info, err := os.Stat(path) // follows symlinks
		if err != nil {
			continue
		}
		switch {
		case info.IsDir():
			files = appendJSONLFiles(files, path, depth+1)
		case strings.HasSuffix(entry.Name(), ".jsonl"):
			files = append(files, path)
		}
	}
	return files
}
