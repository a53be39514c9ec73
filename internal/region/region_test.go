package region

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultCatalogLoads(t *testing.T) {
	c := Default()
	if c.Len() < 30 {
		t.Fatalf("Default() has %d entries, want at least 30", c.Len())
	}
	seen := make(map[string]bool)
	for _, e := range c.Entries() {
		if seen[e.key] {
			t.Errorf("duplicate catalog key %q", e.key)
		}
		seen[e.key] = true
	}
}

func TestExactMatchIsCaseAmpersandAndWhitespaceInsensitive(t *testing.T) {
	c := Default()
	for _, e := range c.Entries() {
		if e.Image == "" {
			continue
		}
		variants := []string{
			e.Name,
			strings.ToUpper(e.Name),
			"  " + strings.ToLower(e.Name) + "\t",
			strings.ReplaceAll(e.Name, "&", "and"),
		}
		for _, v := range variants {
			got := c.Match(v)
			if got.Pass != PassExact || got.Entry.Image != e.Image {
				t.Errorf("Match(%q) = %+v, want exact match on %q", v, got, e.Name)
			}
		}
	}
}

func TestEmptyInputNeverMatches(t *testing.T) {
	c := Default()
	for _, in := range []string{"", "   ", "\n\t"} {
		if got := c.Match(in); got.Pass != PassNone {
			t.Errorf("Match(%q) = %+v, want no match", in, got)
		}
		if got := c.Lookup(in); got != "" {
			t.Errorf("Lookup(%q) = %q, want empty", in, got)
		}
	}
}

func TestSubstringPass(t *testing.T) {
	c := Default()
	got := c.Match("Delhi, India")
	if got.Pass != PassSubstring {
		t.Fatalf("Match(Delhi, India).Pass = %s, want substring", got.Pass)
	}
	if got.Entry.Name != "Delhi" || got.Entry.Image != "delhi.png" {
		t.Errorf("Match(Delhi, India) = %+v, want Delhi entry", got.Entry)
	}
}

func TestJaccardIsSymmetric(t *testing.T) {
	a := Score("Jammu & Kashmir", "kashmir jammu")
	b := Score("kashmir jammu", "Jammu & Kashmir")
	if a != b {
		t.Fatalf("Score not symmetric: %v vs %v", a, b)
	}
	if math.Abs(a-2.0/3.0) > 1e-9 {
		t.Errorf("Score = %v, want 2/3", a)
	}
}

func TestTokenPassMatchesReorderedWords(t *testing.T) {
	got := Default().Match("kashmir jammu")
	if got.Pass != PassToken || got.Entry.Name != "Jammu & Kashmir" {
		t.Fatalf("Match(kashmir jammu) = %+v, want token match on Jammu & Kashmir", got)
	}
	if got.Score < MinScore {
		t.Errorf("Score = %v, below MinScore", got.Score)
	}
}

func TestLowScoreNeverMatches(t *testing.T) {
	c := Default()
	if got := c.Match("Zxyland"); got.Pass != PassNone {
		t.Errorf("Match(Zxyland) = %+v, want no match", got)
	}

	// One shared word out of five scores 0.2.
	c = NewCatalog([]Entry{{Name: "North Green Valley", Image: "ngv.png"}})
	if got := c.Match("south green hills"); got.Pass != PassNone {
		t.Errorf("Match(south green hills) = %+v, want no match below %v", got, MinScore)
	}
}

func TestEmptyImageFallsThroughTiers(t *testing.T) {
	c := NewCatalog([]Entry{
		{Name: "Sikkim", Image: ""},
		{Name: "Sikkim North", Image: "north.png"},
	})

	// Exact hit on an imageless entry is not usable; the substring pass
	// stops at the first containing key, also imageless; the token pass
	// prefers the exact word set, still imageless.
	if got := c.Match("Sikkim"); got.Pass != PassNone {
		t.Errorf("Match(Sikkim) = %+v, want no usable match", got)
	}

	// A different spelling reaches the token tier and picks the entry
	// with artwork.
	got := c.Match("north sikkim, district")
	want := Result{Entry: c.entries[1], Pass: PassToken, Score: 2.0 / 3.0}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(Entry{}), cmp.Comparer(func(a, b float64) bool {
		return math.Abs(a-b) < 1e-9
	})); diff != "" {
		t.Errorf("Match mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenTiesGoToFirstEntry(t *testing.T) {
	c := NewCatalog([]Entry{
		{Name: "Red River", Image: "first.png"},
		{Name: "River Red", Image: "second.png"},
	})
	// Both keys score 2/3 against "red delta river"; neither is a substring.
	if got := c.Lookup("red delta river"); got != "first.png" {
		t.Errorf("Lookup() = %q, want first.png", got)
	}
}

func TestWithImageBase(t *testing.T) {
	c := NewCatalog([]Entry{
		{Name: "Punjab", Image: "punjab.png"},
		{Name: "Sikkim", Image: ""},
		{Name: "Goa", Image: "https://cdn.example.com/goa.png"},
	})
	resolved, err := c.WithImageBase("https://assets.example.com/regions/")
	if err != nil {
		t.Fatalf("WithImageBase() error: %v", err)
	}
	got := resolved.Entries()
	if got[0].Image != "https://assets.example.com/regions/punjab.png" {
		t.Errorf("relative image = %q", got[0].Image)
	}
	if got[1].Image != "" {
		t.Errorf("empty image became %q", got[1].Image)
	}
	if got[2].Image != "https://cdn.example.com/goa.png" {
		t.Errorf("absolute image = %q", got[2].Image)
	}
	if c.Entries()[0].Image != "punjab.png" {
		t.Error("WithImageBase mutated the source catalog")
	}
}

func TestWithoutImagery(t *testing.T) {
	c := Default()
	if c.Resolvable() {
		t.Fatal("Resolvable() = true for the embedded catalog's relative refs, want false")
	}

	bare := c.WithoutImagery()
	if bare.Len() != c.Len() {
		t.Fatalf("Len() = %d, want %d", bare.Len(), c.Len())
	}
	if !bare.Resolvable() {
		t.Error("Resolvable() = false after WithoutImagery(), want true")
	}
	if res := bare.Match("Punjab"); res.Pass != PassNone {
		t.Errorf("Match(Punjab).Pass = %v, want %v", res.Pass, PassNone)
	}
	if c.Lookup("Punjab") == "" {
		t.Error("WithoutImagery mutated the source catalog")
	}

	resolved, err := c.WithImageBase("https://assets.example.com/regions/")
	if err != nil {
		t.Fatalf("WithImageBase() error: %v", err)
	}
	if !resolved.Resolvable() {
		t.Error("Resolvable() = false after WithImageBase(), want true")
	}
}

func TestLoadCatalogRejectsNamelessEntries(t *testing.T) {
	if _, err := LoadCatalog(strings.NewReader(`[{"name": "", "image": "x.png"}]`)); err == nil {
		t.Error("LoadCatalog() accepted an entry without a name")
	}
}

func TestLoadCatalogFile(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "regions.yaml")
	yamlBody := "- name: Punjab\n  image: punjab.png\n- name: Sikkim\n  image: \"\"\n"
	if err := os.WriteFile(yamlPath, []byte(yamlBody), 0o644); err != nil {
		t.Fatal(err)
	}
	jsonPath := filepath.Join(dir, "regions.json")
	if err := os.WriteFile(jsonPath, []byte(`[{"name": "Goa", "image": "goa.png"}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadCatalogFile(yamlPath)
	if err != nil {
		t.Fatalf("LoadCatalogFile(yaml) error: %v", err)
	}
	if c.Len() != 2 || c.Lookup("punjab") != "punjab.png" {
		t.Errorf("yaml catalog = %+v", c.Entries())
	}

	c, err = LoadCatalogFile(jsonPath)
	if err != nil {
		t.Fatalf("LoadCatalogFile(json) error: %v", err)
	}
	if c.Lookup("Goa") != "goa.png" {
		t.Errorf("json catalog = %+v", c.Entries())
	}

	if _, err := LoadCatalogFile(filepath.Join(dir, "missing.yml")); err == nil {
		t.Error("LoadCatalogFile() accepted a missing file")
	}
}
