package dict

import (
	"os"
	"path/filepath"
	"testing"

	codewords "github.com/bcspragu/Codewords"
	"github.com/google/go-cmp/cmp"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	in := `Apple

banana
APPLE
  cherry
banana
`
	if err := os.WriteFile(path, []byte(in), 0644); err != nil {
		t.Fatalf("failed to write word file: %v", err)
	}

	words, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := []string{"apple", "banana", "cherry"}
	if diff := cmp.Diff(want, words); diff != "" {
		t.Errorf("unexpected words (-want +got)\n%s", diff)
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("Load of a missing file didn't fail")
	}
}

func TestPool(t *testing.T) {
	// No path means the builtin list.
	words, err := Pool("")
	if err != nil {
		t.Fatalf("Pool: %v", err)
	}
	if len(words) != len(codewords.Words) {
		t.Errorf("empty-path pool has %d words, want the builtin %d", len(words), len(codewords.Words))
	}

	// So does a path that doesn't exist.
	words, err = Pool(filepath.Join(t.TempDir(), "nope.txt"))
	if err != nil {
		t.Fatalf("Pool: %v", err)
	}
	if len(words) != len(codewords.Words) {
		t.Errorf("missing-file pool has %d words, want the builtin %d", len(words), len(codewords.Words))
	}

	// A real file wins.
	path := filepath.Join(t.TempDir(), "words.txt")
	if err := os.WriteFile(path, []byte("one\ntwo\n"), 0644); err != nil {
		t.Fatalf("failed to write word file: %v", err)
	}
	words, err = Pool(path)
	if err != nil {
		t.Fatalf("Pool: %v", err)
	}
	if diff := cmp.Diff([]string{"one", "two"}, words); diff != "" {
		t.Errorf("unexpected words (-want +got)\n%s", diff)
	}
}
