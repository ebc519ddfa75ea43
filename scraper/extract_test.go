package scraper

import (
	"reflect"
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestCleanPrice(t *testing.T) {
	tests := []struct {
		name string
		in   *string
		want *string
	}{
		{"dollar sign", strPtr("$1,500"), strPtr("1,500")},
		{"only first char dropped", strPtr("$$20"), strPtr("$20")},
		{"currency word", strPtr("USD 2,100"), strPtr("2,100")},
		{"already numeric", strPtr("900"), strPtr("900")},
		{"no digits", strPtr("call"), nil},
		{"bare dollar", strPtr("$"), strPtr("")},
		{"dollar then space", strPtr("$ "), strPtr(" ")},
		{"empty", strPtr(""), nil},
		{"absent", nil, nil},
	}

	for _, tt := range tests {
		got := CleanPrice(tt.in)
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("%s: expected nil, got %q", tt.name, *got)
		case tt.want != nil && got == nil:
			t.Errorf("%s: expected %q, got nil", tt.name, *tt.want)
		case tt.want != nil && *got != *tt.want:
			t.Errorf("%s: expected %q, got %q", tt.name, *tt.want, *got)
		}
	}
}

func TestSplitHousing(t *testing.T) {
	tests := []struct {
		name string
		in   *string
		want []string
	}{
		{"dashed lines", strPtr("\n- 2br -\n- 900ft2 -\n"), []string{"2br", "900ft2"}},
		{"indented", strPtr("\n        1br -\n        650ft\n"), []string{"1br", "650ft"}},
		{"inner dash kept", strPtr("in-law unit -"), []string{"in-law unit"}},
		{"only separators", strPtr("\n - \n--\n   \n"), []string{}},
		{"absent", nil, []string{}},
	}

	for _, tt := range tests {
		got := SplitHousing(tt.in)
		if got == nil {
			t.Fatalf("%s: expected non-nil slice", tt.name)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: expected %q, got %q", tt.name, tt.want, got)
		}
		for _, tok := range got {
			if tok == "" || strings.TrimSpace(tok) != tok || strings.Trim(tok, "-") != tok {
				t.Errorf("%s: token %q not clean", tt.name, tok)
			}
		}
	}
}

func TestPostIDFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://sfbay.craigslist.org/sfc/apa/d/sunny-2br/7001000001.html", "7001000001"},
		{"https://sfbay.craigslist.org/sfc/apa/7001000001", "7001000001"},
		{"https://sfbay.craigslist.org/sfc/apa/", ""},
		{"7001000001.html", "7001000001"},
		{"https://sfbay.craigslist.org/a/b.htm", "b.htm"},
	}

	for _, tt := range tests {
		if got := PostIDFromURL(tt.url); got != tt.want {
			t.Errorf("PostIDFromURL(%q) = %q; want %q", tt.url, got, tt.want)
		}
	}
}

func TestNodeSelectText(t *testing.T) {
	doc, err := ParseDocument(strings.NewReader(`<p class="x">one<b>bold</b>two</p><p class="x">three</p>`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	got := AllText(doc, "p.x")
	want := []string{"one", "two", "three"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %q, got %q", want, got)
	}

	first := FirstText(doc, "p.x")
	if first == nil || *first != "one" {
		t.Fatalf("expected first text one, got %v", first)
	}
	if FirstText(doc, "p.missing") != nil {
		t.Fatalf("expected nil for missing selector")
	}

	html, err := doc.Find("b")[0].HTML()
	if err != nil || html != "<b>bold</b>" {
		t.Fatalf("expected <b>bold</b>, got %q (%v)", html, err)
	}
}

func TestSelectTextNestedMatchesInDocumentOrder(t *testing.T) {
	doc, err := ParseDocument(strings.NewReader(
		`<p class="attrgroup"><span>a<span>b</span>c</span><span>d</span></p>`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	got := AllText(doc, "span")
	want := []string{"a", "b", "c", "d"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %q, got %q", want, got)
	}

	doc, err = ParseDocument(strings.NewReader(`<div><span><span>inner</span>outer</span></div>`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if first := FirstText(doc, "span"); first == nil || *first != "inner" {
		t.Fatalf("expected first text inner, got %v", first)
	}
}

func TestFirstAttrSkipsElementsWithoutAttr(t *testing.T) {
	doc, err := ParseDocument(strings.NewReader(`<span class="b"></span><span class="b" data-date="2019-03-15"></span>`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	got := FirstAttr(doc, ".b", "data-date")
	if got == nil || *got != "2019-03-15" {
		t.Fatalf("expected 2019-03-15, got %v", got)
	}
	if FirstAttr(doc, ".b", "data-missing") != nil {
		t.Fatalf("expected nil for missing attribute")
	}
}
