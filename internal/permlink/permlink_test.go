package permlink

import (
	"strings"
	"testing"
)

func TestSlugifyRules(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello-world"},
		{"  Hello   World  ", "hello-world"},
		{"Hello, World! (draft #2)", "hello-world-draft-2"},
		{"ALL CAPS TITLE", "all-caps-title"},
		{"émoji 🚀 title", "moji-title"},
		{"", ""},
		{"---", ""},
		{strings.Repeat("a", 80), strings.Repeat("a", 50)},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Fatalf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNewProducesValidPermlink(t *testing.T) {
	link, err := New("Hello World", "alice")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if !strings.HasPrefix(link, "hello-world-") {
		t.Fatalf("expected slug prefix, got %q", link)
	}
	if !Valid(link) {
		t.Fatalf("permlink %q is not valid", link)
	}
}

func TestNewUntitledFallsBackToActor(t *testing.T) {
	link, err := New("", "alice")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if !strings.HasPrefix(link, "alice-") {
		t.Fatalf("expected actor prefix for untitled content, got %q", link)
	}
}

func TestNewNoCollisionsForRepeatedTitleSameActor(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		link, err := New("Hello World", "alice")
		if err != nil {
			t.Fatalf("New failed at %d: %v", i, err)
		}
		if _, dup := seen[link]; dup {
			t.Fatalf("collision after %d identifiers: %q", i, link)
		}
		seen[link] = struct{}{}
	}
}

func TestNewReplyDerivesFromParent(t *testing.T) {
	link, err := NewReply("hello-world-abc123")
	if err != nil {
		t.Fatalf("NewReply failed: %v", err)
	}
	if !strings.HasPrefix(link, "re-hello-world-abc123-") {
		t.Fatalf("expected parent-derived prefix, got %q", link)
	}
	if !Valid(link) {
		t.Fatalf("reply permlink %q is not valid", link)
	}
}

func TestNewReplyRequiresParent(t *testing.T) {
	if _, err := NewReply("   "); err != ErrEmptyParent {
		t.Fatalf("expected ErrEmptyParent, got %v", err)
	}
}

func TestNewReplyCapsLengthKeepingSuffix(t *testing.T) {
	parent := strings.Repeat("x", 300)
	link, err := NewReply(parent)
	if err != nil {
		t.Fatalf("NewReply failed: %v", err)
	}
	if len(link) > 255 {
		t.Fatalf("reply permlink exceeds cap: %d chars", len(link))
	}
	other, err := NewReply(parent)
	if err != nil {
		t.Fatalf("NewReply failed: %v", err)
	}
	if link == other {
		t.Fatal("truncated reply permlinks must still be unique")
	}
}
