package docurl

import "testing"

func TestParseAndWithHeadsRoundTrip(t *testing.T) {
	versioned := WithHeads("pushwork://abc", "h1")
	parsed := Parse(versioned)
	if parsed.Plain != "pushwork://abc" || parsed.Heads != "h1" {
		t.Fatalf("got %+v", parsed)
	}
	if Plain(versioned) != "pushwork://abc" {
		t.Fatalf("Plain() = %q", Plain(versioned))
	}
	if !HasHeads(versioned) {
		t.Fatal("expected HasHeads true")
	}
}

func TestWithHeadsEmptyReturnsPlain(t *testing.T) {
	if got := WithHeads("pushwork://abc", ""); got != "pushwork://abc" {
		t.Fatalf("got %q", got)
	}
}

func TestNormPathCleansAndStripsLeadingSlash(t *testing.T) {
	cases := map[string]string{
		"/a/b":  "a/b",
		"a\\b":  "a/b",
		".":     "",
		"a/./b": "a/b",
		"a/b/":  "a/b",
	}
	for in, want := range cases {
		if got := NormPath(in); got != want {
			t.Errorf("NormPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDepth(t *testing.T) {
	if Depth("") != 0 {
		t.Error("root depth should be 0")
	}
	if Depth("a/b/c") != 3 {
		t.Errorf("Depth(a/b/c) = %d, want 3", Depth("a/b/c"))
	}
}

func TestAncestorsEndsAtRoot(t *testing.T) {
	anc := Ancestors("a/b/c.txt")
	if len(anc) == 0 || anc[len(anc)-1] != "" {
		t.Fatalf("expected last ancestor to be root, got %v", anc)
	}
	if anc[0] != "a/b" {
		t.Fatalf("expected immediate parent first, got %v", anc)
	}
}
