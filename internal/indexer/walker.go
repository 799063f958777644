package indexer

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// FileInfo holds metadata about a discovered source file.
type FileInfo struct {
	Path    string // absolute
	RelPath string // slash-separated, relative to the repo root
	Size    int64
}

// ignoredDirs are directory names skipped during the walk. Cloned trees are
// throwaway, so there is no per-repo ignore file.
var ignoredDirs = []string{
	".git",
	".svn",
	".hg",
	"node_modules",
	"vendor",
	"__pycache__",
	".idea",
	".vscode",
	"dist",
	"build",
	"target",
}

// walkRepo enumerates the source files under root that have a registered
// extension. Symlinks, empty files, and files above maxSize are skipped.
func walkRepo(root string, allowedExts map[string]bool, maxSize int64) ([]FileInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var files []FileInfo
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, the walk continues
		}

		if d.IsDir() {
			if path == absRoot {
				return nil
			}
			if isIgnoredDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
		if !allowedExts[ext] {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Size() == 0 || info.Size() > maxSize {
			return nil
		}

		rel, _ := filepath.Rel(absRoot, path)
		files = append(files, FileInfo{
			Path:    path,
			RelPath: filepath.ToSlash(rel),
			Size:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func isIgnoredDir(name string) bool {
	for _, p := range ignoredDirs {
		if name == p {
			return true
		}
	}
	return false
}
