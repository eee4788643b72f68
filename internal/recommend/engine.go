// Package recommend resolves a household's requested pantry items into
// quantity strings keyed by template placeholder.
package recommend

import (
	"strings"

	"github.com/shopspring/decimal"

	"pantry-intake/internal/guidelines"
	"pantry-intake/internal/household"
	"pantry-intake/internal/shared/config"
)

// LineItem is a resolved, non-zero recommendation.
type LineItem struct {
	Quantity decimal.Decimal
	Text     string
}

// Engine applies guideline rules to household counts.
type Engine struct {
	DogKeyword string
	CatKeyword string
	Expansions []config.Expansion
}

// NewEngine builds an Engine from rules.
func NewEngine(rules config.Rules) Engine {
	return Engine{
		DogKeyword: strings.ToLower(rules.DogKeyword),
		CatKeyword: strings.ToLower(rules.CatKeyword),
		Expansions: rules.Expansions,
	}
}

// ParseRequested splits a comma-separated request string into lowercase trimmed tokens.
func ParseRequested(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if tok := strings.ToLower(strings.TrimSpace(part)); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// Resolve maps each requested item with a matching rule to its quantity text,
// then adds juvenile food lines when an adult food category was requested.
// Amount placeholders are applied after item placeholders.
func (e Engine) Resolve(requested []string, counts household.Counts, table guidelines.Table) map[string]string {
	items := map[string]string{}
	amounts := map[string]string{}

	emit := func(rule guidelines.Rule, eligible int) {
		line, ok := Line(rule, eligible)
		if !ok {
			return
		}
		items[rule.Placeholder] = line.Text
		if rule.AmountPlaceholder != "" {
			amounts[rule.AmountPlaceholder] = rule.AmountGiven
		}
	}

	for _, token := range requested {
		rule, ok := table.Lookup(token)
		if !ok {
			continue
		}
		emit(rule, e.eligible(token, counts))
	}

	for _, exp := range e.Expansions {
		juveniles := e.juveniles(exp.Species, counts)
		if juveniles <= 0 || !anyContains(requested, strings.ToLower(exp.Trigger)) {
			continue
		}
		for _, item := range exp.Items {
			rule, ok := table.Lookup(strings.ToLower(item))
			if !ok {
				continue
			}
			emit(rule, juveniles)
		}
	}

	out := make(map[string]string, len(items)+len(amounts))
	for k, v := range items {
		out[k] = v
	}
	for k, v := range amounts {
		out[k] = v
	}
	return out
}

// eligible infers the species from the request token itself, not the rule.
// Tokens naming neither species resolve with zero individuals.
func (e Engine) eligible(token string, counts household.Counts) int {
	switch {
	case e.DogKeyword != "" && strings.Contains(token, e.DogKeyword):
		return counts.AdultDogs
	case e.CatKeyword != "" && strings.Contains(token, e.CatKeyword):
		return counts.AdultCats
	default:
		return 0
	}
}

func (e Engine) juveniles(species string, counts household.Counts) int {
	switch species {
	case "dog":
		return counts.Puppies
	case "cat":
		return counts.Kittens
	default:
		return 0
	}
}

// Quantity computes the allotment for eligible individuals under rule.
// A rule without a per-individual amount gives its household max (or zero).
func Quantity(rule guidelines.Rule, eligible int) decimal.Decimal {
	if rule.PerIndividual == nil {
		if rule.HouseholdMax != nil {
			return *rule.HouseholdMax
		}
		return decimal.Zero
	}
	raw := rule.PerIndividual.Mul(decimal.NewFromInt(int64(eligible)))
	if rule.HouseholdMax != nil {
		return decimal.Min(raw, *rule.HouseholdMax)
	}
	return raw
}

// Line resolves rule for eligible individuals. Non-positive quantities yield ok=false.
func Line(rule guidelines.Rule, eligible int) (LineItem, bool) {
	q := Quantity(rule, eligible)
	if !q.IsPositive() {
		return LineItem{}, false
	}
	text := strings.TrimSpace(q.String() + " " + rule.Notes)
	return LineItem{Quantity: q, Text: text}, true
}

func anyContains(tokens []string, sub string) bool {
	if sub == "" {
		return false
	}
	for _, t := range tokens {
		if strings.Contains(t, sub) {
			return true
		}
	}
	return false
}
