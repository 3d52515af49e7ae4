package ingest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

var digitRun = regexp.MustCompile(`\d+`)

// pageKey extracts the sort key for a raw page filename: the first run of
// decimal digits, or 0 when the name has none. Upstream naming is not under
// our control, so this tolerates anything while keeping numeric names in
// reading order.
func pageKey(name string) int {
	m := digitRun.FindString(name)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

// Normalize copies the image files of srcDir into dstDir under canonical
// names: 1-based position zero-padded to 5 digits, original extension kept.
// Non-image files are ignored. A dstDir left over from a previous run is
// removed wholesale first, so no stale pages survive a re-ingest.
//
// Returns the new filenames relative to dstDir, in reading order. Zero
// matching files yields an empty list and no dstDir; the caller treats that
// as an ingest failure. A failed copy aborts and may leave dstDir partially
// populated, which is harmless because it is never indexed.
func Normalize(srcDir, dstDir string) ([]string, error) {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return nil, fmt.Errorf("read source dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return nil, nil
	}

	// stable sort keeps lexical order between files with equal keys
	sort.SliceStable(files, func(i, j int) bool {
		return pageKey(files[i]) < pageKey(files[j])
	})

	if err := os.RemoveAll(dstDir); err != nil {
		return nil, fmt.Errorf("clear target dir: %w", err)
	}
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return nil, fmt.Errorf("create target dir: %w", err)
	}

	out := make([]string, 0, len(files))
	for i, name := range files {
		newName := fmt.Sprintf("%05d%s", i+1, filepath.Ext(name))
		if err := copyFile(filepath.Join(srcDir, name), filepath.Join(dstDir, newName)); err != nil {
			return nil, fmt.Errorf("copy %s: %w", name, err)
		}
		out = append(out, newName)
	}
	return out, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
