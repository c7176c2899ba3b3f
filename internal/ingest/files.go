package ingest

import (
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/roster-scan/constants"
	"github.com/joseph-ayodele/roster-scan/internal/common"
)

// DirStats summarizes a directory walk.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Skipped uint32
	Failed  uint32
}

// WalkError records a path the walk could not visit.
type WalkError struct {
	Path string
	Err  string
}

// FindImages walks root and returns roster image paths in lexical order.
// includeExts defaults to every extension in constants.ImageExtensions.
func FindImages(root string, includeExts []string, skipHidden bool) ([]string, []WalkError, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, nil, DirStats{}, common.InvalidInputError("root path is required")
	}

	exts := map[string]struct{}{}
	if len(includeExts) == 0 {
		for e := range constants.ImageExtensions {
			exts[e] = struct{}{}
		}
	} else {
		for _, e := range includeExts {
			if e = constants.NormalizeExt(e); e != "" {
				exts[e] = struct{}{}
			}
		}
	}

	var (
		paths  []string
		failed []WalkError
		stats  DirStats
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			failed = append(failed, WalkError{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			stats.Skipped++
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := exts[constants.NormalizeExt(filepath.Ext(path))]; !ok {
			stats.Skipped++
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return paths, failed, stats, fmt.Errorf("walk: %w", err)
	}
	sort.Strings(paths)
	return paths, failed, stats, nil
}

// LoadImage reads an image file capped at maxBytes and reports its MIME type.
// The extension decides the type; unknown extensions fall back to content sniffing.
func LoadImage(path string, maxBytes int64) ([]byte, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if maxBytes <= 0 {
		maxBytes = constants.MaxImageBytes
	}
	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	if int64(len(data)) > maxBytes {
		return nil, "", common.InvalidInputErrorf("%s exceeds %d bytes", filepath.Base(path), maxBytes)
	}
	if len(data) == 0 {
		return nil, "", common.InvalidInputErrorf("%s is empty", filepath.Base(path))
	}

	mt := MIMEForPath(path)
	if mt == "" {
		mt = constants.NormalizeMIME(http.DetectContentType(data))
	}
	if !constants.IsAllowedImage(mt) {
		return nil, "", common.InvalidInputErrorf("%s: unsupported image type %q", filepath.Base(path), mt)
	}
	return data, mt, nil
}

// MIMEForPath maps a file extension to an image MIME type, or "" when unknown.
func MIMEForPath(path string) string {
	return constants.ImageExtensions[constants.NormalizeExt(filepath.Ext(path))]
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
