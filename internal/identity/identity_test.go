package identity

import (
	"strings"
	"testing"
)

var browserAttrs = Attributes{
	UserAgent:      "Mozilla/5.0 (X11; Linux x86_64)",
	Language:       "en-US",
	ColorDepth:     24,
	ScreenWidth:    1920,
	ScreenHeight:   1080,
	TimezoneOffset: -120,
}

func TestFingerprintIsStable(t *testing.T) {
	first := Fingerprint(browserAttrs)
	for i := 0; i < 100; i++ {
		if got := Fingerprint(browserAttrs); got != first {
			t.Fatalf("fingerprint changed: %q != %q", got, first)
		}
	}
	if first == "" {
		t.Fatal("fingerprint must not be empty")
	}
}

func TestFingerprintVariesWithAttributes(t *testing.T) {
	other := browserAttrs
	other.ScreenWidth = 1280

	if Fingerprint(browserAttrs) == Fingerprint(other) {
		t.Fatal("different attributes should not collide here")
	}
}

func TestIdentifierWithoutEmailIsFingerprint(t *testing.T) {
	if got, want := Identifier(browserAttrs, ""), Fingerprint(browserAttrs); got != want {
		t.Fatalf("Identifier = %q, want bare fingerprint %q", got, want)
	}
}

func TestIdentifierEmailCaseInsensitive(t *testing.T) {
	upper := Identifier(browserAttrs, "User@Example.com")
	lower := Identifier(browserAttrs, "user@example.com")
	if upper != lower {
		t.Fatalf("identifiers differ by case: %q vs %q", upper, lower)
	}
}

func TestIdentifierShape(t *testing.T) {
	id := Identifier(browserAttrs, "alice@example.com")
	prefix, rest, ok := strings.Cut(id, "_")
	if !ok {
		t.Fatalf("identifier %q missing separator", id)
	}
	if prefix == "" {
		t.Fatal("empty email hash component")
	}
	if rest != Fingerprint(browserAttrs) {
		t.Fatalf("fingerprint component = %q, want %q", rest, Fingerprint(browserAttrs))
	}
}

func TestIdentifierSeparatesAccountsOnSameDevice(t *testing.T) {
	a := Identifier(browserAttrs, "alice@example.com")
	b := Identifier(browserAttrs, "bob@example.com")
	if a == b {
		t.Fatal("distinct emails must map to distinct identifiers")
	}
}

func TestSystemAttributesPopulated(t *testing.T) {
	a := SystemAttributes()
	if a.UserAgent == "" {
		t.Fatal("expected non-empty user agent")
	}
	if a.Language == "" {
		t.Fatal("expected non-empty language")
	}
}

func TestHashKnownValues(t *testing.T) {
	tests := []struct {
		in   string
		want uint32
	}{
		{"", 0},
		{"a", 97},
		{"ab", 97*31 + 98},
	}
	for _, tt := range tests {
		if got := hash(tt.in); got != tt.want {
			t.Errorf("hash(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
