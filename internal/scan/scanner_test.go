package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func mkTree(t *testing.T, paths ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, p := range paths {
		full := filepath.Join(root, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func names(res *Result) map[string]bool {
	out := make(map[string]bool, len(res.Drafts))
	for _, d := range res.Drafts {
		out[d.Name] = true
	}
	return out
}

func TestWalk_Basics(t *testing.T) {
	root := mkTree(t, "a.pdf", "sub/b.txt")

	res, err := Walk(context.Background(), root, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.SessionID == "" {
		t.Error("walk should mint a session id")
	}
	if res.Cancelled {
		t.Error("uncancelled walk reported cancelled")
	}
	got := names(res)
	if len(got) != 2 || !got["a.pdf"] || !got["b.txt"] {
		t.Errorf("drafts = %v", got)
	}

	for _, d := range res.Drafts {
		if d.SessionID != res.SessionID {
			t.Errorf("draft %s has session %q", d.Name, d.SessionID)
		}
		if d.Name == "a.pdf" && (d.Extension != "pdf" || d.FileType != "document") {
			t.Errorf("a.pdf draft = %+v", d)
		}
	}
}

func TestWalk_SkipsDotfilesAndNoiseDirs(t *testing.T) {
	root := mkTree(t,
		"keep.pdf",
		".hidden.pdf",
		".git/config",
		"node_modules/pkg/index.js",
		".cache/blob",
	)

	res, err := Walk(context.Background(), root, Options{})
	if err != nil {
		t.Fatal(err)
	}
	got := names(res)
	if len(got) != 1 || !got["keep.pdf"] {
		t.Errorf("drafts = %v, want only keep.pdf", got)
	}
}

func TestWalk_MaxDepth(t *testing.T) {
	root := mkTree(t, "top.pdf", "one/mid.pdf", "one/two/deep.pdf")

	res, err := Walk(context.Background(), root, Options{MaxDepth: 1})
	if err != nil {
		t.Fatal(err)
	}
	got := names(res)
	if !got["top.pdf"] || !got["mid.pdf"] {
		t.Errorf("drafts = %v, want top and mid", got)
	}
	if got["deep.pdf"] {
		t.Error("deep.pdf visited beyond the depth limit")
	}
}

func TestWalk_Cancellation(t *testing.T) {
	root := mkTree(t, "a.pdf", "b.pdf", "c.pdf")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Walk(ctx, root, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Cancelled {
		t.Error("walk with cancelled context should report cancelled")
	}
	// A cancelled walk keeps whatever it had already collected.
	if len(res.Drafts) > 0 {
		t.Logf("partial drafts kept: %d", len(res.Drafts))
	}
}

func TestWalk_RootErrors(t *testing.T) {
	if _, err := Walk(context.Background(), filepath.Join(t.TempDir(), "missing"), Options{}); err == nil {
		t.Error("missing root should fail")
	}

	root := mkTree(t, "file.txt")
	if _, err := Walk(context.Background(), filepath.Join(root, "file.txt"), Options{}); err == nil {
		t.Error("file root should fail")
	}
}

func TestWalk_Progress(t *testing.T) {
	root := mkTree(t, "a.pdf", "b.pdf")

	var last int
	_, err := Walk(context.Background(), root, Options{Progress: func(n int) { last = n }})
	if err != nil {
		t.Fatal(err)
	}
	if last != 2 {
		t.Errorf("progress final count = %d, want 2", last)
	}
}

func TestDescribe(t *testing.T) {
	root := mkTree(t, "Invoice-March.PDF")

	f, err := Describe(filepath.Join(root, "Invoice-March.PDF"))
	if err != nil {
		t.Fatal(err)
	}
	if f.Name != "Invoice-March.PDF" || f.Extension != "pdf" {
		t.Errorf("descriptor = %+v", f)
	}

	if _, err := Describe(root); err == nil {
		t.Error("describing a directory should fail")
	}
	if _, err := Describe(filepath.Join(root, "missing.pdf")); err == nil {
		t.Error("describing a missing file should fail")
	}
}

func TestDepthBelow(t *testing.T) {
	root := filepath.FromSlash("/a/b")
	cases := map[string]int{
		"/a/b":       0,
		"/a/b/c":     1,
		"/a/b/c/d":   2,
		"/a/b/c/d/e": 3,
	}
	for p, want := range cases {
		if got := depthBelow(root, filepath.FromSlash(p)); got != want {
			t.Errorf("depthBelow(%s) = %d, want %d", p, got, want)
		}
	}
}
