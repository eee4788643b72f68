package render

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pantry-intake/internal/render/rendertest"
)

func TestClearLeftoversPreservesLength(t *testing.T) {
	t.Parallel()
	in := "Name: {{1Name}} / {{dogFood}}!"
	got := ClearLeftovers(in)
	if len(got) != len(in) {
		t.Fatalf("length changed: %d -> %d", len(in), len(got))
	}
	want := "Name: " + strings.Repeat(" ", len("{{1Name}}")) + " / " + strings.Repeat(" ", len("{{dogFood}}")) + "!"
	if got != want {
		t.Fatalf("unexpected %q", got)
	}
	if ClearLeftovers("{{}} plain") != "{{}} plain" {
		t.Fatalf("empty braces must be left alone")
	}
}

func TestLeftovers(t *testing.T) {
	t.Parallel()
	got := Leftovers("{{a}} x {{b}} {{a}}")
	if diff := cmp.Diff([]string{"{{a}}", "{{b}}"}, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestVerifyPDF(t *testing.T) {
	t.Parallel()
	n, err := VerifyPDF(rendertest.MinimalPDF(2))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 pages, got %d", n)
	}
	if _, err := VerifyPDF([]byte("<html>oops</html>")); !errors.Is(err, ErrInvalidPDF) {
		t.Fatalf("expected ErrInvalidPDF, got %v", err)
	}
	if _, err := VerifyPDF(nil); !errors.Is(err, ErrInvalidPDF) {
		t.Fatalf("expected ErrInvalidPDF for empty input, got %v", err)
	}
}

func TestMergeKeysDropsBlankKeys(t *testing.T) {
	t.Parallel()
	got := MergeKeys(map[string]string{"{{dogFood}}": "10 lbs", "": "2 bags", "  ": "x", "{{catFood}}": "4 cans"})
	if diff := cmp.Diff([]string{"{{catFood}}", "{{dogFood}}"}, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenSpans(t *testing.T) {
	t.Parallel()
	if diff := cmp.Diff([][]int{{2, 7}}, TokenSpans("x {{a}} }}")); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}
