package services

import (
	"context"
	"strings"
	"testing"

	"filerepo/models"
)

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"Docs":        "Docs",
		"my docs":     "my_docs",
		"a/b\\c":      "a_b_c",
		"..":          "_",
		"":            "_",
		"!!!":         "_",
		"___":         "___",
		"Résumé-2024": "R_sum_-2024",
		"日本":          "_",
		"x日本":         "x__",
	}
	for in, want := range cases {
		if got := Sanitize(in); got != want {
			t.Fatalf("Sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeOutputIsAlwaysASafeSegment(t *testing.T) {
	inputs := []string{"", " ", "\x00", "a\x00b", "../../etc/passwd", "C:\\Windows", "tab\there", "\xff\xfe"}
	for _, in := range inputs {
		got := Sanitize(in)
		if got == "" {
			t.Fatalf("Sanitize(%q) returned empty segment", in)
		}
		for _, r := range got {
			if !isSegmentRune(r) {
				t.Fatalf("Sanitize(%q) = %q contains %q", in, got, r)
			}
		}
	}
}

func TestResolveFolderPath(t *testing.T) {
	if got := resolveFolderPath(nil, "Alice Smith", "Docs"); got != "user_Alice_Smith/Docs" {
		t.Fatalf("unexpected top-level path %q", got)
	}
	parent := &models.Folder{Path: "user_Alice_Smith/Docs"}
	if got := resolveFolderPath(parent, "ignored", "Q1 Reports"); got != "user_Alice_Smith/Docs/Q1_Reports" {
		t.Fatalf("unexpected nested path %q", got)
	}
}

func TestResolveFilePath(t *testing.T) {
	if got := resolveFilePath(nil, "Bob", "tok_a.txt"); got != "user_Bob/tok_a.txt" {
		t.Fatalf("unexpected root file path %q", got)
	}
	folder := &models.Folder{Path: "user_Bob/Docs"}
	if got := resolveFilePath(folder, "Bob", "tok_a.txt"); got != "user_Bob/Docs/tok_a.txt" {
		t.Fatalf("unexpected nested file path %q", got)
	}
}

func TestRebase(t *testing.T) {
	if got, ok := rebase("user_a/A/B/f.txt", "user_a/A", "user_a/A2"); !ok || got != "user_a/A2/B/f.txt" {
		t.Fatalf("unexpected rebase result %q ok=%v", got, ok)
	}
	if _, ok := rebase("user_a/AB/f.txt", "user_a/A", "user_a/X"); ok {
		t.Fatalf("sibling sharing a name prefix must not be rebased")
	}
}

func TestDescendantIDs(t *testing.T) {
	all := []models.Folder{
		{ID: 1},
		{ID: 2, ParentID: uintPtr(1)},
		{ID: 3, ParentID: uintPtr(2)},
		{ID: 4},
		{ID: 5, ParentID: uintPtr(4)},
	}
	got := descendantIDs(all, 1)
	if len(got) != 3 || !got[1] || !got[2] || !got[3] {
		t.Fatalf("unexpected descendants %v", got)
	}
}

func TestAncestryDetectsCycle(t *testing.T) {
	repo := newFakeFolderRepo()
	repo.byID[1] = models.Folder{ID: 1, UserID: 7, ParentID: uintPtr(2)}
	repo.byID[2] = models.Folder{ID: 2, UserID: 7, ParentID: uintPtr(1)}

	r := folderResolver{folders: repo}
	if _, err := r.ancestry(context.Background(), nil, repo.byID[1]); err != errFolderCycle {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestTopLevelID(t *testing.T) {
	repo := newFakeFolderRepo()
	repo.byID[1] = models.Folder{ID: 1, UserID: 7}
	repo.byID[2] = models.Folder{ID: 2, UserID: 7, ParentID: uintPtr(1)}
	repo.byID[3] = models.Folder{ID: 3, UserID: 7, ParentID: uintPtr(2)}

	r := folderResolver{folders: repo}
	top, err := r.topLevelID(context.Background(), nil, repo.byID[3])
	if err != nil || top != 1 {
		t.Fatalf("expected top-level 1, got %d err=%v", top, err)
	}
}

func TestUploadBasenamesAreUniqueAndSafe(t *testing.T) {
	a := newUploadBasename("../My Report (final).PDF")
	b := newUploadBasename("../My Report (final).PDF")
	if a == b {
		t.Fatalf("expected distinct basenames, got %q twice", a)
	}
	if !strings.HasSuffix(a, "_My_Report__final_.PDF") {
		t.Fatalf("unexpected basename %q", a)
	}
	if strings.Contains(a, "/") {
		t.Fatalf("basename must not contain separators: %q", a)
	}
}

func TestRenameTargetKeepsExtension(t *testing.T) {
	name, base := renameTarget("summary", "user_a/3f2c_report.pdf")
	if name != "summary.pdf" || !strings.HasSuffix(base, "_summary.pdf") {
		t.Fatalf("unexpected rename target %q %q", name, base)
	}

	name, base = renameTarget("Summary.PDF", "user_a/3f2c_report.pdf")
	if name != "Summary.PDF" || !strings.HasSuffix(base, "_Summary.pdf") {
		t.Fatalf("unexpected rename target %q %q", name, base)
	}

	name, base = renameTarget("notes v2", "user_a/3f2c_README")
	if name != "notes v2" || !strings.HasSuffix(base, "_notes_v2") {
		t.Fatalf("unexpected rename target for extensionless file %q %q", name, base)
	}
}

func TestDetectMimeType(t *testing.T) {
	if got := detectMimeType("", "photo.png"); got != "image/png" {
		t.Fatalf("expected image/png, got %q", got)
	}
	if got := detectMimeType("application/pdf", "x.bin"); got != "application/pdf" {
		t.Fatalf("declared type should win, got %q", got)
	}
	if got := detectMimeType("", "noext"); got != "application/octet-stream" {
		t.Fatalf("expected octet-stream fallback, got %q", got)
	}
}
