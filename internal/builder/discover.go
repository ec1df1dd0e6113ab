package builder

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// DiscoverFiles walks the repository and returns the candidate files for
// scanning. Excluded directories prune the walk in place so huge vendored
// trees are never descended into. Dot-directories are always skipped.
func DiscoverFiles(root string, cfg *Config) ([]string, error) {
	excludeDirs := make(map[string]bool, len(cfg.ExcludeDirs))
	for _, d := range cfg.ExcludeDirs {
		excludeDirs[d] = true
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable directories are skipped, not fatal.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if excludeDirs[name] || strings.HasPrefix(name, ".") {
				return fs.SkipDir
			}
			return nil
		}
		if !hasIncludedExtension(name, cfg.IncludeExtensions) {
			return nil
		}
		for _, pattern := range cfg.ExcludePatterns {
			if ok, _ := filepath.Match(pattern, name); ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func hasIncludedExtension(name string, extensions []string) bool {
	for _, ext := range extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
