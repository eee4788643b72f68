package recommend

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"pantry-intake/internal/guidelines"
	"pantry-intake/internal/household"
	"pantry-intake/internal/shared/config"
)

func amt(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func rule(key, placeholder string, per, max *decimal.Decimal, notes string) guidelines.Rule {
	return guidelines.Rule{ItemKey: key, DisplayName: key, Placeholder: placeholder, PerIndividual: per, HouseholdMax: max, Notes: notes}
}

func pantryTable() guidelines.Table {
	return guidelines.Table{
		"dog food":        rule("dog food", "{{dogFood}}", amt("10"), amt("30"), "lbs of food"),
		"cat food":        rule("cat food", "{{catFood}}", amt("4"), nil, "cans"),
		"dry puppy food":  rule("dry puppy food", "{{dryPuppy}}", amt("3"), amt("5"), "lbs"),
		"wet puppy food":  rule("wet puppy food", "{{wetPuppy}}", amt("6"), nil, "cans"),
		"dry kitten food": rule("dry kitten food", "{{dryKitten}}", amt("2"), nil, "lbs"),
		"wet kitten food": rule("wet kitten food", "{{wetKitten}}", amt("5"), nil, "cans"),
		"litter":          rule("litter", "{{litter}}", nil, amt("5"), "boxes"),
		"shampoo":         rule("shampoo", "{{shampoo}}", amt("2"), nil, "bottles"),
		"blanket":         rule("blanket", "{{blanket}}", nil, nil, ""),
	}
}

func engine() Engine {
	return NewEngine(config.DefaultRules())
}

func TestResolveCapsAtHouseholdMax(t *testing.T) {
	t.Parallel()
	got := engine().Resolve([]string{"dog food"}, household.Counts{AdultDogs: 4}, pantryTable())
	if diff := cmp.Diff(map[string]string{"{{dogFood}}": "30 lbs of food"}, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveBelowCap(t *testing.T) {
	t.Parallel()
	got := engine().Resolve([]string{"dog food"}, household.Counts{AdultDogs: 2}, pantryTable())
	if got["{{dogFood}}"] != "20 lbs of food" {
		t.Fatalf("expected 20 lbs of food, got %q", got["{{dogFood}}"])
	}
}

func TestResolveUnknownItemSkipped(t *testing.T) {
	t.Parallel()
	got := engine().Resolve([]string{"bird seed", "dog food"}, household.Counts{AdultDogs: 1}, pantryTable())
	if len(got) != 1 {
		t.Fatalf("expected only dog food entry, got %v", got)
	}
}

func TestResolveZeroQuantitySuppressed(t *testing.T) {
	t.Parallel()
	got := engine().Resolve([]string{"shampoo", "blanket"}, household.Counts{AdultDogs: 3, AdultCats: 2}, pantryTable())
	if len(got) != 0 {
		t.Fatalf("expected no entries, got %v", got)
	}
}

func TestResolveHouseholdMaxOnly(t *testing.T) {
	t.Parallel()
	for _, counts := range []household.Counts{{}, {AdultDogs: 3}, {AdultCats: 9}} {
		got := engine().Resolve([]string{"litter"}, counts, pantryTable())
		if got["{{litter}}"] != "5 boxes" {
			t.Fatalf("counts %+v: expected 5 boxes, got %v", counts, got)
		}
	}
}

func TestResolveJuvenileExpansionIsRequestGated(t *testing.T) {
	t.Parallel()
	counts := household.Counts{Puppies: 2}

	got := engine().Resolve([]string{"cat food"}, counts, pantryTable())
	if _, ok := got["{{dryPuppy}}"]; ok {
		t.Fatalf("puppy food must not appear without a dog food request: %v", got)
	}
	if _, ok := got["{{wetPuppy}}"]; ok {
		t.Fatalf("puppy food must not appear without a dog food request: %v", got)
	}

	got = engine().Resolve([]string{"dog food"}, counts, pantryTable())
	want := map[string]string{
		"{{dryPuppy}}": "5 lbs",
		"{{wetPuppy}}": "12 cans",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveJuvenileExpansionSubstringMatch(t *testing.T) {
	t.Parallel()
	got := engine().Resolve([]string{"canned cat food"}, household.Counts{Kittens: 1}, pantryTable())
	want := map[string]string{
		"{{dryKitten}}": "2 lbs",
		"{{wetKitten}}": "5 cans",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveAmountPlaceholdersWrittenLast(t *testing.T) {
	t.Parallel()
	table := pantryTable()
	dog := table["dog food"]
	dog.AmountPlaceholder = "{{shared}}"
	dog.AmountGiven = "1 bag"
	table["dog food"] = dog
	cat := table["cat food"]
	cat.Placeholder = "{{shared}}"
	table["cat food"] = cat

	got := engine().Resolve([]string{"dog food", "cat food"}, household.Counts{AdultDogs: 1, AdultCats: 1}, table)
	if got["{{shared}}"] != "1 bag" {
		t.Fatalf("expected amount entry to win, got %q", got["{{shared}}"])
	}
}

func TestResolveAmountPlaceholderBlankAmount(t *testing.T) {
	t.Parallel()
	table := pantryTable()
	litter := table["litter"]
	litter.AmountPlaceholder = "{{litterAmt}}"
	table["litter"] = litter

	got := engine().Resolve([]string{"litter"}, household.Counts{}, table)
	v, ok := got["{{litterAmt}}"]
	if !ok || v != "" {
		t.Fatalf("expected empty amount entry, got %q (present=%v)", v, ok)
	}
}

func TestResolveIsPure(t *testing.T) {
	t.Parallel()
	req := ParseRequested("Dog Food, cat food ,litter,, bird seed")
	counts := household.Counts{AdultDogs: 2, Puppies: 1, AdultCats: 1, Kittens: 2}
	table := pantryTable()
	first := engine().Resolve(req, counts, table)
	second := engine().Resolve(req, counts, table)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("resolve not deterministic (-first +second):\n%s", diff)
	}
	if len(first) != 7 {
		t.Fatalf("expected 7 entries, got %v", first)
	}
}

func TestQuantityDecimalArithmetic(t *testing.T) {
	t.Parallel()
	r := rule("treats", "{{treats}}", amt("0.1"), nil, "lbs")
	if got := Quantity(r, 3).String(); got != "0.3" {
		t.Fatalf("expected 0.3, got %s", got)
	}
	line, ok := Line(r, 3)
	if !ok || line.Text != "0.3 lbs" {
		t.Fatalf("unexpected line %+v", line)
	}
}

func TestQuantityZeroHouseholdMaxCaps(t *testing.T) {
	t.Parallel()
	r := rule("toys", "{{toys}}", amt("2"), amt("0"), "")
	if _, ok := Line(r, 5); ok {
		t.Fatalf("expected zero cap to suppress the line")
	}
}

func TestLineTrimsEmptyNotes(t *testing.T) {
	t.Parallel()
	line, ok := Line(rule("leash", "{{leash}}", nil, amt("1"), ""), 0)
	if !ok || line.Text != "1" {
		t.Fatalf("unexpected line %+v", line)
	}
}

func TestParseRequested(t *testing.T) {
	t.Parallel()
	got := ParseRequested(" Dog Food,,CAT food , ")
	if diff := cmp.Diff([]string{"dog food", "cat food"}, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if ParseRequested("") != nil {
		t.Fatalf("expected nil for empty input")
	}
}
