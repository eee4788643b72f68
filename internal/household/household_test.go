package household

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"pantry-intake/internal/shared/config"
)

func defaultSummarizer() Summarizer {
	return NewSummarizer(config.DefaultRules())
}

func TestDogSizeBoundaries(t *testing.T) {
	t.Parallel()
	rules := config.DefaultRules()
	cases := []struct {
		lbs  float64
		want string
	}{
		{0, "Miniature"},
		{11.99, "Miniature"},
		{12, "Small"},
		{24.5, "Small"},
		{25, "Medium"},
		{49.9, "Medium"},
		{50, "Large"},
		{99.99, "Large"},
		{100, "Giant"},
		{180, "Giant"},
	}
	for _, tc := range cases {
		if got := DogSize(tc.lbs, rules.SizeBuckets, rules.LargestSize); got != tc.want {
			t.Errorf("DogSize(%v) = %s, want %s", tc.lbs, got, tc.want)
		}
	}
}

func TestDogSizeMonotonic(t *testing.T) {
	t.Parallel()
	rules := config.DefaultRules()
	rank := map[string]int{}
	for i, name := range rules.SizeNames() {
		rank[name] = i
	}
	prev := 0
	for w := 0.0; w <= 150; w += 0.25 {
		r := rank[DogSize(w, rules.SizeBuckets, rules.LargestSize)]
		if r < prev {
			t.Fatalf("bucket rank decreased at %v lbs", w)
		}
		prev = r
	}
}

func TestParseWeight(t *testing.T) {
	t.Parallel()
	cases := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"45", 45, true},
		{"about 12.5 lbs", 12.5, true},
		{"~8-10 pounds", 8, true},
		{"heavy", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseWeight(tc.raw)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseWeight(%q) = %v,%v want %v,%v", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestSummarizeHousehold(t *testing.T) {
	t.Parallel()
	slots := []Slot{
		{Species: "Dog", AgeUnit: "Years", Weight: "45 lbs"},
		{Species: "dog", AgeUnit: "Months", Weight: "8"},
		{Species: "DOG", AgeUnit: "", Weight: "12"},
		{Species: "Cat", AgeUnit: "months", Weight: "3"},
		{Species: "cat", AgeUnit: "years", Weight: "200"},
		{},
	}
	got := defaultSummarizer().Summarize(slots)

	want := Counts{
		AdultDogs: 2,
		Puppies:   1,
		AdultCats: 1,
		Kittens:   1,
		DogSizes:  map[string]int{"Medium": 1, "Small": 1},
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreUnexported(Counts{}), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("counts mismatch (-want +got):\n%s", diff)
	}
	if got.SizeSummary() != "1 Small, 1 Medium" {
		t.Fatalf("unexpected size summary %q", got.SizeSummary())
	}
}

func TestSummarizeOtherSpeciesDedup(t *testing.T) {
	t.Parallel()
	slots := []Slot{
		{Species: "dog"},
		{Species: "rabbit"},
		{Species: "Rabbit"},
		{Species: "hamster"},
	}
	got := defaultSummarizer().Summarize(slots)
	if diff := cmp.Diff([]string{"Rabbit", "Hamster"}, got.OtherSpecies); diff != "" {
		t.Fatalf("other species mismatch (-want +got):\n%s", diff)
	}
	if got.OtherSummary() != "Rabbit, Hamster" {
		t.Fatalf("unexpected other summary %q", got.OtherSummary())
	}
	if got.AdultDogs != 1 {
		t.Fatalf("expected 1 adult dog, got %d", got.AdultDogs)
	}
}

func TestSummarizeDogWithoutWeightHasNoSize(t *testing.T) {
	t.Parallel()
	got := defaultSummarizer().Summarize([]Slot{{Species: "dog", Weight: "unknown"}})
	if got.AdultDogs != 1 || len(got.DogSizes) != 0 || got.SizeSummary() != "" {
		t.Fatalf("unexpected counts %+v", got)
	}
}

func TestSummarizeCountsAddUp(t *testing.T) {
	t.Parallel()
	units := []string{"months", "years", "", "Month"}
	s := defaultSummarizer()
	for mask := 0; mask < 1<<6; mask++ {
		var slots []Slot
		dogSlots := 0
		for i := 0; i < 6; i++ {
			if mask&(1<<i) != 0 {
				slots = append(slots, Slot{Species: "dog", AgeUnit: units[i%len(units)], Weight: "30"})
				dogSlots++
			} else {
				slots = append(slots, Slot{Species: "cat", AgeUnit: units[i%len(units)]})
			}
		}
		c := s.Summarize(slots)
		if c.AdultDogs < 0 || c.Puppies < 0 || c.AdultCats < 0 || c.Kittens < 0 {
			t.Fatalf("negative count for mask %b: %+v", mask, c)
		}
		if c.TotalDogs() != dogSlots {
			t.Fatalf("mask %b: adult dogs + puppies = %d, want %d", mask, c.TotalDogs(), dogSlots)
		}
		if c.TotalCats() != 6-dogSlots {
			t.Fatalf("mask %b: cats %d, want %d", mask, c.TotalCats(), 6-dogSlots)
		}
	}
}

func TestSummarizeCustomKeywords(t *testing.T) {
	t.Parallel()
	rules := config.DefaultRules()
	rules.DogKeyword = "canine"
	got := NewSummarizer(rules).Summarize([]Slot{{Species: "Canine", Weight: "60"}, {Species: "dog"}})
	if got.AdultDogs != 1 || got.DogSizes["Large"] != 1 {
		t.Fatalf("unexpected counts %+v", got)
	}
	if diff := cmp.Diff([]string{"Dog"}, got.OtherSpecies); diff != "" {
		t.Fatalf("other species mismatch (-want +got):\n%s", diff)
	}
}
