package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Discover recursively finds all analyzable files in the given directory,
// sorted by relative path
func Discover(rootPath string, opts Options) ([]DiscoveredFile, error) {
	absRoot, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	// Check if directory exists
	info, err := os.Stat(absRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("directory not found: %s", absRoot)
		}
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", absRoot)
	}

	var files []DiscoveredFile

	err = filepath.Walk(absRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Skip directories we can't access
			if os.IsPermission(err) {
				return nil
			}
			return err
		}
		if path == absRoot {
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}
		relPath = filepath.ToSlash(relPath)

		if Ignored(relPath, opts.Ignore) {
			opts.skip(relPath, SkipIgnored)
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		// Skip directories and special files
		if !info.Mode().IsRegular() {
			return nil
		}

		file, ok := opts.classify(path, relPath, info)
		if ok {
			files = append(files, file)
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].RelativePath < files[j].RelativePath
	})
	return files, nil
}

// Stat classifies a single file below root, e.g. one reported by a file
// watcher. It returns false for files Discover would skip.
func Stat(root, path string, opts Options) (DiscoveredFile, bool, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return DiscoveredFile{}, false, fmt.Errorf("failed to get absolute path: %w", err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return DiscoveredFile{}, false, fmt.Errorf("failed to get absolute path: %w", err)
	}
	relPath, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return DiscoveredFile{}, false, fmt.Errorf("failed to get relative path: %w", err)
	}
	relPath = filepath.ToSlash(relPath)
	if relPath == ".." || strings.HasPrefix(relPath, "../") || Ignored(relPath, opts.Ignore) {
		return DiscoveredFile{}, false, nil
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return DiscoveredFile{}, false, err
	}
	if !info.Mode().IsRegular() {
		return DiscoveredFile{}, false, nil
	}
	file, ok := opts.classify(absPath, relPath, info)
	return file, ok, nil
}

func (o Options) classify(path, relPath string, info os.FileInfo) (DiscoveredFile, bool) {
	if o.MaxFileSize > 0 && info.Size() > o.MaxFileSize {
		o.skip(relPath, SkipTooLarge)
		return DiscoveredFile{}, false
	}

	language := ""
	if o.Classify != nil {
		var ok bool
		if language, ok = o.Classify(path); !ok {
			o.skip(relPath, SkipUnknown)
			return DiscoveredFile{}, false
		}
	}

	return DiscoveredFile{
		Path:         path,
		RelativePath: relPath,
		Language:     language,
		Size:         info.Size(),
		ModTime:      info.ModTime(),
	}, true
}

func (o Options) skip(relPath string, reason SkipReason) {
	if o.OnSkip != nil {
		o.OnSkip(relPath, reason)
	}
}
