package truststore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/fencegate/fencegate/internal/digest"
)

// fakeVault is an in-memory DocumentStore.
type fakeVault map[string]string

func (v fakeVault) ReadText(ref string) (string, error) {
	body, ok := v[ref]
	if !ok {
		return "", fmt.Errorf("note not found: %s", ref)
	}
	return body, nil
}

func TestParseEntriesSkipsCommentsBlanksAndDuplicates(t *testing.T) {
	entries := ParseEntries("# comment\n\nABCD\nABCD\n")

	// Duplicates collapse at the snapshot level; the parser itself
	// just yields normalized candidates.
	if len(entries) != 2 {
		t.Fatalf("expected 2 candidate lines, got %d", len(entries))
	}
	for _, e := range entries {
		if e != "abcd" {
			t.Errorf("expected normalized entry abcd, got %q", e)
		}
	}
}

func TestRefreshCollapsesDuplicates(t *testing.T) {
	vault := fakeVault{"trust.md": "# comment\n\nABCD\nABCD\n"}
	s := New(vault, nil, []Source{{Kind: KindNote, Ref: "trust.md"}})

	snap := s.Refresh(context.Background())

	if len(snap) != 1 {
		t.Fatalf("expected single-element set, got %d entries", len(snap))
	}
	if !snap.Contains("abcd") {
		t.Error("expected abcd in snapshot")
	}
}

func TestRefreshUnionsAllSourceKinds(t *testing.T) {
	dir := t.TempDir()
	external := filepath.Join(dir, "team-trust.txt")
	if err := os.WriteFile(external, []byte("1111\n2222\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	vault := fakeVault{"trust.md": "3333\n"}
	s := New(vault, []digest.Entry{"4444"}, []Source{
		{Kind: KindNote, Ref: "trust.md"},
		{Kind: KindExternal, Ref: external},
	})

	snap := s.Refresh(context.Background())

	for _, want := range []digest.Entry{"1111", "2222", "3333", "4444"} {
		if !snap.Contains(want) {
			t.Errorf("expected %s in snapshot", want)
		}
	}
	if len(snap) != 4 {
		t.Errorf("expected 4 entries, got %d", len(snap))
	}
}

func TestRefreshIsolatesSourceFailure(t *testing.T) {
	// One note missing, one present: the present source must still
	// contribute all of its entries.
	vault := fakeVault{"present.md": "aaaa\nbbbb\n"}
	s := New(vault, nil, []Source{
		{Kind: KindNote, Ref: "missing.md"},
		{Kind: KindNote, Ref: "present.md"},
		{Kind: KindExternal, Ref: "/nonexistent/path/trust.txt"},
	})

	snap := s.Refresh(context.Background())

	if len(snap) != 2 {
		t.Fatalf("expected 2 entries despite failing sources, got %d", len(snap))
	}
	if !snap.Contains("aaaa") || !snap.Contains("bbbb") {
		t.Error("present source was contaminated by a failing sibling")
	}
}

func TestRefreshIdempotent(t *testing.T) {
	vault := fakeVault{"trust.md": "aaaa\nbbbb\n"}
	s := New(vault, []digest.Entry{"cccc"}, []Source{{Kind: KindNote, Ref: "trust.md"}})

	first := s.Refresh(context.Background())
	second := s.Refresh(context.Background())

	if len(first) != len(second) {
		t.Fatalf("snapshot size changed across refreshes: %d vs %d", len(first), len(second))
	}
	for e := range first {
		if !second.Contains(e) {
			t.Errorf("entry %s missing from second refresh", e)
		}
	}
}

func TestSnapshotSwapDoesNotMutatePrevious(t *testing.T) {
	vault := fakeVault{"trust.md": "aaaa\n"}
	s := New(vault, nil, []Source{{Kind: KindNote, Ref: "trust.md"}})

	old := s.Refresh(context.Background())
	vault["trust.md"] = "bbbb\n"
	s.Refresh(context.Background())

	// A caller holding the old snapshot still sees the old set.
	if !old.Contains("aaaa") || old.Contains("bbbb") {
		t.Error("previous snapshot was mutated by a later refresh")
	}
	if !s.Contains("bbbb") || s.Contains("aaaa") {
		t.Error("current snapshot does not reflect the latest refresh")
	}
}

func TestManualTrustTakesEffectOnRefresh(t *testing.T) {
	s := New(fakeVault{}, nil, nil)
	h := digest.Sum("print(1)")

	if s.Contains(h) {
		t.Fatal("empty store must not contain anything")
	}

	s.AddManual(h)
	if s.Contains(h) {
		t.Fatal("AddManual must not take effect before Refresh")
	}

	s.Refresh(context.Background())
	if !s.Contains(h) {
		t.Fatal("manual entry missing after refresh")
	}

	s.RemoveManual(h)
	s.Refresh(context.Background())
	if s.Contains(h) {
		t.Fatal("removed manual entry still present after refresh")
	}
}

func TestAddRemoveSource(t *testing.T) {
	vault := fakeVault{"a.md": "aaaa\n", "b.md": "bbbb\n"}
	s := New(vault, nil, []Source{{Kind: KindNote, Ref: "a.md"}})

	s.AddSource(Source{Kind: KindNote, Ref: "b.md"})
	snap := s.Refresh(context.Background())
	if !snap.Contains("aaaa") || !snap.Contains("bbbb") {
		t.Fatal("added source did not contribute after refresh")
	}

	s.RemoveSource(Source{Kind: KindNote, Ref: "a.md"})
	snap = s.Refresh(context.Background())
	if snap.Contains("aaaa") {
		t.Error("removed source still contributing")
	}
	if !snap.Contains("bbbb") {
		t.Error("unrelated source lost by removal")
	}
}

func TestManualEntriesCaseNormalized(t *testing.T) {
	s := New(fakeVault{}, []digest.Entry{"ABCD"}, nil)
	snap := s.Refresh(context.Background())
	if !snap.Contains("abcd") {
		t.Error("manual entry not case-normalized")
	}
}
