package wedding

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTargetURL(t *testing.T) {
	w := Wedding{ID: 42, ShareableID: "abc123"}
	if got := w.TargetURL("https://cards.example/"); got != "https://cards.example/share/abc123" {
		t.Errorf("shareable: %s", got)
	}
	w.ShareableID = ""
	if got := w.TargetURL("https://cards.example"); got != "https://cards.example/wedding/42" {
		t.Errorf("numeric: %s", got)
	}
}

func TestDownloadFilename(t *testing.T) {
	tests := []struct {
		w    Wedding
		want string
	}{
		{Wedding{CoupleName1: "Asha", CoupleName2: "Ravi"}, "wedding-qr-code-Asha-Ravi.png"},
		{Wedding{CoupleName1: "Asha"}, "wedding-qr-code-Asha-card.png"},
		{Wedding{CoupleName2: "Ravi"}, "wedding-qr-code-wedding-Ravi.png"},
		{Wedding{}, "wedding-qr-code-wedding-card.png"},
	}
	for _, tt := range tests {
		if got := tt.w.DownloadFilename(); got != tt.want {
			t.Errorf("DownloadFilename(%+v) = %s, want %s", tt.w, got, tt.want)
		}
	}
}

const sample = `
weddings:
  - id: 7
    shareable_id: x7y8
    couple_name_1: Asha
    couple_name_2: Ravi
    wedding_date: "2026-12-12"
    venue_name: Lotus Hall
  - id: 9
    couple_name_1: Mei
    couple_name_2: Jon
`

func TestLoadAndLookup(t *testing.T) {
	r, err := Load(strings.NewReader(sample))
	if err != nil {
		t.Fatal(err)
	}
	if r.Len() != 2 {
		t.Fatalf("len = %d", r.Len())
	}
	for _, key := range []string{"x7y8", "7"} {
		w, err := r.Lookup(key)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", key, err)
		}
		if w.VenueName != "Lotus Hall" {
			t.Errorf("Lookup(%q) = %+v", key, w)
		}
	}
	w, err := r.Lookup("9")
	if err != nil || w.CoupleName1 != "Mei" || w.Key() != "9" {
		t.Fatalf("Lookup(9) = %+v, %v", w, err)
	}
	if _, err := r.Lookup("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if list := r.List(); len(list) != 2 || list[0].ID != 7 || list[1].ID != 9 {
		t.Fatalf("List() = %+v", list)
	}
}

func TestLoadRejectsAnonymousEntries(t *testing.T) {
	if _, err := Load(strings.NewReader("weddings:\n  - couple_name_1: A\n")); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	if _, err := Load(strings.NewReader("weddings:\n  - id: 1\n    colour: red\n")); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadFile(t *testing.T) {
	r, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil || r.Len() != 0 {
		t.Fatalf("missing file: %v, len %d", err, r.Len())
	}

	path := filepath.Join(t.TempDir(), "weddings.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatal(err)
	}
	r, err = LoadFile(path)
	if err != nil || r.Len() != 2 {
		t.Fatalf("LoadFile: %v, len %d", err, r.Len())
	}
}
