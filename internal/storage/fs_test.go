package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func tempWiki(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func put(t *testing.T, s *FS, rel, body string) {
	t.Helper()
	abs := filepath.Join(s.Root(), rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRead(t *testing.T) {
	s := tempWiki(t)
	content := []byte("# Hello\nWorld\n")
	put(t, s, "note.md", string(content))
	got, err := s.Read("note.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestList_OnlyMarkdownRecursive(t *testing.T) {
	s := tempWiki(t)
	put(t, s, "a.md", "a")
	put(t, s, "sub/deeper/b.md", "b")
	put(t, s, "readme.txt", "not md")

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	for _, it := range items {
		if it.CreatedAt.IsZero() {
			t.Errorf("%s: zero creation time", it.Path)
		}
	}
}

func TestStat(t *testing.T) {
	s := tempWiki(t)
	before := time.Now().Add(-time.Minute)
	put(t, s, "x.md", "x")

	m, err := s.Stat("x.md")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if m.Path != "x.md" {
		t.Errorf("path = %q", m.Path)
	}
	if m.CreatedAt.Before(before) {
		t.Errorf("created = %v, want after %v", m.CreatedAt, before)
	}
	if _, err := s.Stat("missing.md"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestRel(t *testing.T) {
	s := tempWiki(t)
	put(t, s, "dir/n.md", "n")

	cases := map[string]string{
		filepath.Join(s.Root(), "dir", "n.md"): filepath.Join("dir", "n.md"),
		"dir/n.md":                             filepath.Join("dir", "n.md"),
	}
	for in, want := range cases {
		got, err := s.Rel(in)
		if err != nil {
			t.Errorf("Rel(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("Rel(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := s.Rel("/etc/passwd"); err == nil {
		t.Error("expected error for path outside root")
	}
}

func TestStat_Directory(t *testing.T) {
	s := tempWiki(t)
	if err := os.Mkdir(filepath.Join(s.Root(), "sub.md"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Stat("sub.md"); err == nil {
		t.Error("expected error for a directory")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempWiki(t)
	for _, p := range []string{"../../etc/passwd", "../outside.md", "/etc/shadow"} {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if _, err := s.Stat(p); err == nil {
			t.Errorf("expected error for stat of %q", p)
		}
	}
}

func TestList_Subdir(t *testing.T) {
	s := tempWiki(t)
	put(t, s, "a.md", "a")
	put(t, s, "sub/b.md", "b")

	items, err := s.List("sub")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 || items[0].Path != filepath.Join("sub", "b.md") {
		t.Errorf("items = %+v", items)
	}
}

func TestNewFS_Errors(t *testing.T) {
	if _, err := NewFS("/tmp/zettel-does-not-exist-" + t.Name()); err == nil {
		t.Error("expected error for non-existent dir")
	}
	f, _ := os.CreateTemp("", "zettel-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestIsNote(t *testing.T) {
	if !IsNote("a/b.md") || IsNote("b.txt") || IsNote("md") {
		t.Error("IsNote misclassified")
	}
}
