package textproc

import "testing"

func TestNormalizeLineEndings(t *testing.T) {
	got := Normalize("a\r\nb\rc\nd")
	want := "a\nb\nc\nd"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNormalizeCollapsesSpacesAndTabs(t *testing.T) {
	got := Normalize("a  b\t\tc \t d")
	want := "a b c d"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNormalizeCollapsesBlankLines(t *testing.T) {
	got := Normalize("a\n\n\n\nb")
	want := "a\n\nb"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNormalizeTrims(t *testing.T) {
	if got := Normalize("  \n hello \n  "); got != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"plain",
		"a\r\n\r\n\r\nb\t\tc   d",
		"  mixed \r whitespace \n\n\n\n everywhere  ",
		"already\nnormal\n\ntext",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}
