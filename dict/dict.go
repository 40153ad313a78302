// Package dict loads the word pools that boards are dealt from.
package dict

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	codewords "github.com/bcspragu/Codewords"
)

// Read scans a word pool, one word per line. Words are lowercased and
// deduped, blank lines are skipped.
func Read(r io.Reader) ([]string, error) {
	seen := make(map[string]struct{})
	var words []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		w := strings.ToLower(strings.TrimSpace(sc.Text()))
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan words: %v", err)
	}
	return words, nil
}

// Load reads the word pool in the given file.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open word file %q: %v", path, err)
	}
	defer f.Close()

	words, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read word file %q: %v", path, err)
	}
	return words, nil
}

// Pool returns the word pool at path, falling back to the builtin list when
// no path is given or the file doesn't exist.
func Pool(path string) ([]string, error) {
	if path == "" {
		return codewords.Words, nil
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		// Same spirit as no path at all.
		return codewords.Words, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open word file %q: %v", path, err)
	}
	defer f.Close()

	words, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read word file %q: %v", path, err)
	}
	return words, nil
}
