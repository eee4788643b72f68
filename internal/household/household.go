// Package household classifies the animals listed on an intake submission.
package household

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"pantry-intake/internal/shared/config"
	"pantry-intake/internal/shared/telemetry"
)

// Slot is one per-animal block of a submission. An empty Species means the slot is unused.
type Slot struct {
	Species string
	AgeUnit string
	Weight  string
}

// Counts summarizes a household's animals.
type Counts struct {
	AdultDogs    int
	Puppies      int
	AdultCats    int
	Kittens      int
	DogSizes     map[string]int
	OtherSpecies []string

	sizeOrder []string
}

// TotalDogs returns adult dogs plus puppies.
func (c Counts) TotalDogs() int { return c.AdultDogs + c.Puppies }

// TotalCats returns adult cats plus kittens.
func (c Counts) TotalCats() int { return c.AdultCats + c.Kittens }

// SizeSummary renders the size histogram as "2 Small, 1 Large", smallest bucket first.
func (c Counts) SizeSummary() string {
	var parts []string
	for _, name := range c.sizeOrder {
		if n := c.DogSizes[name]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, name))
		}
	}
	return strings.Join(parts, ", ")
}

// OtherSummary joins the non-dog, non-cat species in first-seen order.
func (c Counts) OtherSummary() string {
	return strings.Join(c.OtherSpecies, ", ")
}

// Summarizer turns slots into Counts using the configured keywords and size buckets.
type Summarizer struct {
	Rules config.Rules
}

// NewSummarizer returns a Summarizer for rules.
func NewSummarizer(rules config.Rules) Summarizer {
	return Summarizer{Rules: rules}
}

// Summarize counts dogs, cats and juveniles, buckets adult dog weights and
// collects other species.
func (s Summarizer) Summarize(slots []Slot) Counts {
	counts := Counts{
		DogSizes:  map[string]int{},
		sizeOrder: s.Rules.SizeNames(),
	}
	dogKey := strings.ToLower(s.Rules.DogKeyword)
	catKey := strings.ToLower(s.Rules.CatKeyword)
	juvenile := strings.ToLower(s.Rules.JuvenileUnitPrefix)

	var dogs, cats int
	seen := map[string]bool{}
	for i, slot := range slots {
		species := strings.ToLower(strings.TrimSpace(slot.Species))
		if species == "" {
			continue
		}
		young := juvenile != "" && strings.HasPrefix(strings.ToLower(strings.TrimSpace(slot.AgeUnit)), juvenile)

		switch species {
		case dogKey:
			dogs++
			if young {
				counts.Puppies++
				continue
			}
			lbs, ok := ParseWeight(slot.Weight)
			if !ok {
				if strings.TrimSpace(slot.Weight) != "" {
					telemetry.Warn("household.weight_unparsed", map[string]any{
						"slot":   i + 1,
						"weight": slot.Weight,
					})
				}
				continue
			}
			counts.DogSizes[DogSize(lbs, s.Rules.SizeBuckets, s.Rules.LargestSize)]++
		case catKey:
			cats++
			if young {
				counts.Kittens++
			}
		default:
			pretty := capitalizeFirst(species)
			if !seen[species] {
				seen[species] = true
				counts.OtherSpecies = append(counts.OtherSpecies, pretty)
			}
		}
	}
	counts.AdultDogs = dogs - counts.Puppies
	counts.AdultCats = cats - counts.Kittens
	return counts
}

// DogSize buckets a weight in pounds. Intervals are left-closed, right-open:
// a weight equal to a bucket's bound falls in the next bucket.
func DogSize(lbs float64, buckets []config.SizeBucket, largest string) string {
	for _, b := range buckets {
		if lbs < b.Below {
			return b.Name
		}
	}
	return largest
}

var weightToken = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ParseWeight returns the first numeric token in raw, e.g. "about 45 lbs" -> 45.
func ParseWeight(raw string) (float64, bool) {
	m := weightToken.FindString(raw)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func capitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
