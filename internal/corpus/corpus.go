// Package corpus loads the regulatory reference snippets used for
// citation matching. The corpus is read once at startup and treated as
// immutable for the process lifetime; callers receive it by value and
// inject it wherever reference extraction happens.
package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Entry is one regulatory snippet: an article id and its text.
type Entry struct {
	ID   string
	Text string
}

// Builtin returns the embedded fallback snippets used when no corpus
// directory is available.
func Builtin() []Entry {
	return []Entry{
		{ID: "ESPR_Article_1", Text: "Products must contain clear material composition and recycled content."},
		{ID: "ESPR_Article_2", Text: "CO2 footprint reporting should be provided in kg CO2e with methodology."},
		{ID: "ESPR_Article_3", Text: "Provide repairability and end-of-life recycling instructions."},
	}
}

// Load reads all *.txt files from dir, using the file stem as the entry id.
// Entries are returned in lexicographic id order for determinism. When the
// directory does not exist the builtin snippets are returned instead; that
// is a supported deployment mode, not an error.
func Load(dir string) ([]Entry, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return Builtin(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat corpus dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus path is not a directory: %s", dir)
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, fmt.Errorf("glob corpus dir: %w", err)
	}
	sort.Strings(paths)

	entries := make([]Entry, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read corpus file %s: %w", p, err)
		}
		id := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		entries = append(entries, Entry{ID: id, Text: string(data)})
	}

	return entries, nil
}
