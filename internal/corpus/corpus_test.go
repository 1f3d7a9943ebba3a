package corpus

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/synthesis-engine/pkg/types"
)

const sampleCorpus = `question: What stabilizes perovskite solar cells?
domain: materials science
items:
  - id: item-01
    title: Encapsulation strategies for perovskite photovoltaics
    content: Atomic-layer-deposited alumina barriers slow moisture ingress.
    source_name: Nature Energy
    publication_year: 2024
    impact_factor: 60.9
    citation_count: 312
    segment_type: method
  - id: item-02
    title: Ion migration in halide perovskites
    content: Iodide vacancy migration dominates hysteresis at grain boundaries.
    source_name: Joule
    publication_year: 2023
    impact_factor: 38.6
    citation_count: 847
    segment_type: result
`

// --- test helpers ---

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeCorpus(t *testing.T, dir, name string, cf CorpusFile) string {
	t.Helper()
	data, err := yaml.Marshal(&cf)
	if err != nil {
		t.Fatal(err)
	}
	return writeFile(t, dir, name, string(data))
}

func itemsWithIDs(ids ...string) []types.LiteratureItem {
	items := make([]types.LiteratureItem, len(ids))
	for i, id := range ids {
		items[i] = types.LiteratureItem{ID: id, Title: "title " + id, Content: "content " + id}
	}
	return items
}

// --- ReadCorpusFile ---

func TestReadCorpusFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "corpus.yaml", sampleCorpus)

	cf, err := ReadCorpusFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if cf.Question != "What stabilizes perovskite solar cells?" {
		t.Errorf("Question = %q", cf.Question)
	}
	if cf.Domain != "materials science" {
		t.Errorf("Domain = %q", cf.Domain)
	}
	if len(cf.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(cf.Items))
	}
	if cf.Items[0].ID != "item-01" || cf.Items[0].SourceName != "Nature Energy" {
		t.Errorf("item 0 = %+v", cf.Items[0])
	}
	if cf.Items[1].PublicationYear != 2023 || cf.Items[1].SegmentType != "result" {
		t.Errorf("item 1 = %+v", cf.Items[1])
	}
}

func TestReadCorpusFileMissing(t *testing.T) {
	_, err := ReadCorpusFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestReadCorpusFileInvalidYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.yaml", "items: [unclosed")
	_, err := ReadCorpusFile(path)
	if err == nil || !strings.Contains(err.Error(), "parsing corpus file") {
		t.Fatalf("err = %v, want parse error", err)
	}
}

func TestReadCorpusFileNoItems(t *testing.T) {
	path := writeFile(t, t.TempDir(), "empty.yaml", "question: q\nitems: []\n")
	_, err := ReadCorpusFile(path)
	if err == nil || !strings.Contains(err.Error(), "contains no items") {
		t.Fatalf("err = %v, want no-items error", err)
	}
}

func TestReadCorpusFileEmptyID(t *testing.T) {
	path := writeCorpus(t, t.TempDir(), "c.yaml", CorpusFile{
		Items: []types.LiteratureItem{{ID: "  ", Title: "blank"}},
	})
	_, err := ReadCorpusFile(path)
	if err == nil || !strings.Contains(err.Error(), "empty ID") {
		t.Fatalf("err = %v, want empty-ID error", err)
	}
}

func TestReadCorpusFileDuplicateID(t *testing.T) {
	path := writeCorpus(t, t.TempDir(), "c.yaml", CorpusFile{
		Items: itemsWithIDs("item-01", "item-02", "item-01"),
	})
	_, err := ReadCorpusFile(path)
	if err == nil || !strings.Contains(err.Error(), `duplicate item ID "item-01"`) {
		t.Fatalf("err = %v, want duplicate-ID error", err)
	}
}

// --- File source ---

func TestFileLoad(t *testing.T) {
	path := writeFile(t, t.TempDir(), "corpus.yaml", sampleCorpus)

	items, err := File{Path: path}.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
}

func TestFileLoadCancelled(t *testing.T) {
	path := writeFile(t, t.TempDir(), "corpus.yaml", sampleCorpus)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := File{Path: path}.Load(ctx)
	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

// --- Dir source ---

func TestDirLoadMergesInLexicalOrder(t *testing.T) {
	dir := t.TempDir()
	writeCorpus(t, dir, "b-followups.yaml", CorpusFile{Items: itemsWithIDs("item-03", "item-04")})
	writeCorpus(t, dir, "a-seed.yaml", CorpusFile{Items: itemsWithIDs("item-01", "item-02")})

	items, err := Dir{Path: dir}.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"item-01", "item-02", "item-03", "item-04"}
	if len(items) != len(want) {
		t.Fatalf("got %d items, want %d", len(items), len(want))
	}
	for i, id := range want {
		if items[i].ID != id {
			t.Errorf("items[%d].ID = %q, want %q", i, items[i].ID, id)
		}
	}
}

func TestDirLoadDuplicateAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeCorpus(t, dir, "a.yaml", CorpusFile{Items: itemsWithIDs("item-01")})
	writeCorpus(t, dir, "b.yaml", CorpusFile{Items: itemsWithIDs("item-01")})

	_, err := Dir{Path: dir}.Load(context.Background())
	if err == nil || !strings.Contains(err.Error(), `duplicate item ID "item-01"`) {
		t.Fatalf("err = %v, want cross-file duplicate error", err)
	}
	if !strings.Contains(err.Error(), "a.yaml") || !strings.Contains(err.Error(), "b.yaml") {
		t.Errorf("error should name both files: %v", err)
	}
}

func TestDirLoadIgnoresNonCorpusEntries(t *testing.T) {
	dir := t.TempDir()
	writeCorpus(t, dir, "corpus.yml", CorpusFile{Items: itemsWithIDs("item-01")})
	writeFile(t, dir, "README.txt", "not a corpus")
	if err := os.Mkdir(filepath.Join(dir, "archive"), 0o755); err != nil {
		t.Fatal(err)
	}

	items, err := Dir{Path: dir}.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
}

func TestDirLoadNoCorpusFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", "nothing here")

	_, err := Dir{Path: dir}.Load(context.Background())
	if err == nil || !strings.Contains(err.Error(), "no corpus files") {
		t.Fatalf("err = %v, want no-corpus-files error", err)
	}
}

func TestDirLoadMissingDir(t *testing.T) {
	_, err := Dir{Path: filepath.Join(t.TempDir(), "absent")}.Load(context.Background())
	if err == nil || !strings.Contains(err.Error(), "reading corpus directory") {
		t.Fatalf("err = %v, want read-dir error", err)
	}
}

func TestDirLoadCancelled(t *testing.T) {
	dir := t.TempDir()
	writeCorpus(t, dir, "a.yaml", CorpusFile{Items: itemsWithIDs("item-01")})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Dir{Path: dir}.Load(ctx)
	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
