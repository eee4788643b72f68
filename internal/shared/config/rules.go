package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Rules carries the intake computation settings that used to be hard-coded:
// slot count, species keywords, size buckets, juvenile expansions, barcode and form id.
type Rules struct {
	PetSlots           int             `yaml:"pet_slots" validate:"min=1,max=20"`
	DogKeyword         string          `yaml:"dog_keyword" validate:"required"`
	CatKeyword         string          `yaml:"cat_keyword" validate:"required"`
	JuvenileUnitPrefix string          `yaml:"juvenile_unit_prefix" validate:"required"`
	SizeBuckets        []SizeBucket    `yaml:"size_buckets" validate:"required,min=1,dive"`
	LargestSize        string          `yaml:"largest_size" validate:"required"`
	Expansions         []Expansion     `yaml:"juvenile_expansions" validate:"dive"`
	Barcode            BarcodeSettings `yaml:"barcode"`
	FormID             FormIDSettings  `yaml:"form_id"`
}

// SizeBucket names the dog size for weights strictly below Below pounds.
type SizeBucket struct {
	Name  string  `yaml:"name" validate:"required"`
	Below float64 `yaml:"below" validate:"gt=0"`
}

// Expansion adds juvenile line items when a request token contains Trigger
// and the household has juveniles of Species.
type Expansion struct {
	Species string   `yaml:"species" validate:"required,oneof=dog cat"`
	Trigger string   `yaml:"trigger" validate:"required"`
	Items   []string `yaml:"items" validate:"required,min=1,dive,required"`
}

// BarcodeSettings controls the barcode image requested from the image service.
type BarcodeSettings struct {
	Placeholder    string  `yaml:"placeholder" validate:"required"`
	Type           string  `yaml:"type" validate:"required"`
	WidthPx        int     `yaml:"width_px" validate:"gt=0"`
	HeightPx       int     `yaml:"height_px" validate:"gt=0"`
	TargetHeightIn float64 `yaml:"target_height_in" validate:"gt=0"`
	ServiceURL     string  `yaml:"service_url" validate:"required,url"`
}

// FormIDSettings controls sequential form identifiers.
type FormIDSettings struct {
	Seed  int64 `yaml:"seed" validate:"gte=0"`
	Width int   `yaml:"width" validate:"min=1,max=19"`
}

var rulesValidate = validator.New()

// DefaultRules returns the production pantry settings.
func DefaultRules() Rules {
	return Rules{
		PetSlots:           6,
		DogKeyword:         "dog",
		CatKeyword:         "cat",
		JuvenileUnitPrefix: "month",
		SizeBuckets: []SizeBucket{
			{Name: "Miniature", Below: 12},
			{Name: "Small", Below: 25},
			{Name: "Medium", Below: 50},
			{Name: "Large", Below: 100},
		},
		LargestSize: "Giant",
		Expansions: []Expansion{
			{Species: "dog", Trigger: "dog food", Items: []string{"Dry Puppy Food", "Wet Puppy Food"}},
			{Species: "cat", Trigger: "cat food", Items: []string{"Dry Kitten Food", "Wet Kitten Food"}},
		},
		Barcode: BarcodeSettings{
			Placeholder:    "{{barcode}}",
			Type:           "code128",
			WidthPx:        1100,
			HeightPx:       500,
			TargetHeightIn: 2.5,
			ServiceURL:     "https://quickchart.io/barcode",
		},
		FormID: FormIDSettings{
			Seed:  100000000542,
			Width: 12,
		},
	}
}

// SizeNames lists bucket names from smallest to largest, including LargestSize.
func (r Rules) SizeNames() []string {
	out := make([]string, 0, len(r.SizeBuckets)+1)
	for _, b := range r.SizeBuckets {
		out = append(out, b.Name)
	}
	return append(out, r.LargestSize)
}

// Validate checks struct tags and that size buckets ascend.
func (r Rules) Validate() error {
	if err := rulesValidate.Struct(r); err != nil {
		return fmt.Errorf("invalid rules: %w", err)
	}
	for i := 1; i < len(r.SizeBuckets); i++ {
		if r.SizeBuckets[i].Below <= r.SizeBuckets[i-1].Below {
			return fmt.Errorf("invalid rules: size bucket %q must be above %q", r.SizeBuckets[i].Name, r.SizeBuckets[i-1].Name)
		}
	}
	return nil
}

// LoadRules reads YAML overrides from path on top of DefaultRules.
// An empty path returns the defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if strings.TrimSpace(path) == "" {
		return rules, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes YAML overrides on top of DefaultRules and validates the result.
func ParseRules(data []byte) (Rules, error) {
	rules := DefaultRules()
	if len(strings.TrimSpace(string(data))) == 0 {
		return rules, nil
	}
	var override Rules
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Rules{}, fmt.Errorf("parse rules: %w", err)
	}
	rules = mergeRules(rules, override)
	if err := rules.Validate(); err != nil {
		return Rules{}, err
	}
	return rules, nil
}

// ErrRulesInvalid is returned by watchers when a changed file fails validation.
var ErrRulesInvalid = errors.New("rules file invalid")

func mergeRules(base, o Rules) Rules {
	if o.PetSlots != 0 {
		base.PetSlots = o.PetSlots
	}
	if o.DogKeyword != "" {
		base.DogKeyword = strings.ToLower(o.DogKeyword)
	}
	if o.CatKeyword != "" {
		base.CatKeyword = strings.ToLower(o.CatKeyword)
	}
	if o.JuvenileUnitPrefix != "" {
		base.JuvenileUnitPrefix = strings.ToLower(o.JuvenileUnitPrefix)
	}
	if len(o.SizeBuckets) > 0 {
		base.SizeBuckets = o.SizeBuckets
	}
	if o.LargestSize != "" {
		base.LargestSize = o.LargestSize
	}
	if o.Expansions != nil {
		base.Expansions = o.Expansions
	}
	b := o.Barcode
	if b.Placeholder != "" {
		base.Barcode.Placeholder = b.Placeholder
	}
	if b.Type != "" {
		base.Barcode.Type = b.Type
	}
	if b.WidthPx != 0 {
		base.Barcode.WidthPx = b.WidthPx
	}
	if b.HeightPx != 0 {
		base.Barcode.HeightPx = b.HeightPx
	}
	if b.TargetHeightIn != 0 {
		base.Barcode.TargetHeightIn = b.TargetHeightIn
	}
	if b.ServiceURL != "" {
		base.Barcode.ServiceURL = b.ServiceURL
	}
	if o.FormID.Seed != 0 {
		base.FormID.Seed = o.FormID.Seed
	}
	if o.FormID.Width != 0 {
		base.FormID.Width = o.FormID.Width
	}
	return base
}
