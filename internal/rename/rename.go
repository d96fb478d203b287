package rename

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	noiseTokens  = regexp.MustCompile(`(?i)\b(copy|final|draft|edited|new|v\d+|version\d+|copy\s*\(\d+\))\b`)
	bracketed    = regexp.MustCompile(`[\(\[\{].*?[\)\]\}]`)
	whitespace   = regexp.MustCompile(`\s+`)
	punctuation  = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	slugInvalid  = regexp.MustCompile(`[^a-z0-9\-.]+`)
	dashRuns     = regexp.MustCompile(`-+`)
	separatorMap = strings.NewReplacer("_", " ", "-", " ", ".", " ")
)

// Change is one applied (or planned) rename.
type Change struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// CleanName returns a tidy, lowercase, dash-separated version of a filename.
// The extension is kept and lowercased.
func CleanName(name string) string {
	base, ext := splitExt(name)
	cleaned := cleanBase(base)
	if cleaned == "" {
		cleaned = slugBase(base)
	}
	return cleaned + strings.ToLower(ext)
}

// cleanBase drops noise tokens like "final" or "v2" and bracketed asides.
func cleanBase(base string) string {
	s := separatorMap.Replace(base)
	s = noiseTokens.ReplaceAllString(s, "")
	s = bracketed.ReplaceAllString(s, "")
	s = strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
	s = strings.ToLower(s)
	s = punctuation.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func slugBase(base string) string {
	s := strings.ToLower(strings.TrimSpace(base))
	s = whitespace.ReplaceAllString(s, "-")
	s = slugInvalid.ReplaceAllString(s, "")
	s = dashRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "file"
	}
	return s
}

// splitExt splits off the final extension. Leading dots do not start an
// extension, so ".bashrc" has none.
func splitExt(name string) (base, ext string) {
	dot := strings.LastIndexByte(name, '.')
	if dot <= 0 {
		return name, ""
	}
	if strings.Trim(name[:dot], ".") == "" {
		return name, ""
	}
	return name[:dot], name[dot:]
}

// BulkRename renames every regular file in dir whose cleaned name differs.
// Collisions get a -1, -2, ... suffix. With dryRun the changes are computed
// but nothing on disk moves.
func BulkRename(dir string, dryRun bool) ([]Change, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	taken := make(map[string]bool, len(entries))
	for _, e := range entries {
		taken[e.Name()] = true
	}

	changes := []Change{}
	for _, e := range entries {
		oldPath := filepath.Join(abs, e.Name())
		fi, err := os.Stat(oldPath)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}

		newName := CleanName(e.Name())
		if newName == e.Name() {
			continue
		}
		if taken[newName] {
			base, ext := splitExt(newName)
			for counter := 1; ; counter++ {
				candidate := base + "-" + strconv.Itoa(counter) + ext
				if !taken[candidate] {
					newName = candidate
					break
				}
			}
		}

		newPath := filepath.Join(abs, newName)
		if !dryRun {
			if err := os.Rename(oldPath, newPath); err != nil {
				return changes, fmt.Errorf("rename %s: %w", e.Name(), err)
			}
		}
		delete(taken, e.Name())
		taken[newName] = true
		changes = append(changes, Change{Old: oldPath, New: newPath})
	}
	return changes, nil
}
