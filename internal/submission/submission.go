// Package submission turns a header-indexed response row into a typed record.
package submission

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"pantry-intake/internal/household"
)

// Response sheet column names.
const (
	ColFormID                = "FormID"
	ColFirstName             = "First Name"
	ColLastName              = "Last Name"
	ColPhone                 = "Phone Number"
	ColEmail                 = "Email Address"
	ColContactMethod         = "Preferred Contact Method"
	ColContactMethodAlt      = "Contact Method"
	ColAddressLine1          = "Address Line 1"
	ColAddressLine2          = "Address Line 2"
	ColCity                  = "Town/City"
	ColState                 = "State"
	ColZip                   = "Zip Code"
	ColReturningClient       = "Returning Client"
	ColAdditionalServices    = "Additional Services"
	ColPickupWindow          = "Pick-up Window"
	ColResourcesRequested    = "Resources Requested"
	ColResourcesRequestedAlt = "Requested Resources"

	ColGeneratedPDFID    = "Generated PDF ID"
	ColGeneratedPDFURL   = "Generated PDF URL"
	ColGeneratedAt       = "Generated At"
	ColRegeneratedPDFID  = "Regenerated PDF ID"
	ColRegeneratedPDFURL = "Regenerated PDF URL"
	ColLastRegeneratedAt = "Last Regenerated At"

	ColCountAdultDogs = "CountAdultDogs"
	ColCountPuppies   = "CountPuppies"
	ColCountAdultCats = "CountAdultCats"
	ColCountKittens   = "CountKittens"
)

// CountColumns are written back together or not at all.
var CountColumns = []string{ColCountAdultDogs, ColCountPuppies, ColCountAdultCats, ColCountKittens}

// ErrTooManyPets is returned by Validate when more pets are filled than slots allowed.
var ErrTooManyPets = errors.New("submission: more pets than configured slots")

// Pet is one "Pet N ..." block.
type Pet struct {
	Name       string
	Species    string
	Breed      string
	Color      string
	Age        string
	Units      string
	Weight     string
	Sex        string
	SpayNeuter string
}

// Empty reports whether the pet slot is unused.
func (p Pet) Empty() bool { return strings.TrimSpace(p.Species) == "" }

// Submission is one intake form response.
type Submission struct {
	FormID             string
	FirstName          string
	LastName           string
	Phone              string
	Email              string `validate:"omitempty,email"`
	ContactMethod      string
	AddressLine1       string
	AddressLine2       string
	City               string
	State              string
	Zip                string
	ReturningClient    string
	AdditionalServices string
	PickupWindow       string
	ResourcesRequested string
	Pets               []Pet `validate:"dive"`

	// ExtraPets counts filled pet blocks beyond the configured slot count.
	ExtraPets int
}

// FromRow builds a Submission from a row keyed by header name. Exactly slots pets
// are read, in order. Missing cells become empty strings. Cells are copied as
// entered; whitespace only decides whether a cell counts as filled. FormID is trimmed.
func FromRow(row map[string]string, slots int) Submission {
	get := func(keys ...string) string {
		for _, k := range keys {
			if v := row[k]; strings.TrimSpace(v) != "" {
				return v
			}
		}
		return ""
	}
	sub := Submission{
		FormID:             strings.TrimSpace(row[ColFormID]),
		FirstName:          get(ColFirstName),
		LastName:           get(ColLastName),
		Phone:              get(ColPhone),
		Email:              get(ColEmail),
		ContactMethod:      get(ColContactMethod, ColContactMethodAlt),
		AddressLine1:       get(ColAddressLine1),
		AddressLine2:       get(ColAddressLine2),
		City:               get(ColCity),
		State:              get(ColState),
		Zip:                get(ColZip),
		ReturningClient:    get(ColReturningClient),
		AdditionalServices: get(ColAdditionalServices),
		PickupWindow:       get(ColPickupWindow),
		ResourcesRequested: get(ColResourcesRequested, ColResourcesRequestedAlt),
	}
	for i := 1; i <= slots; i++ {
		prefix := fmt.Sprintf("Pet %d ", i)
		sub.Pets = append(sub.Pets, Pet{
			Name:       get(prefix + "Name"),
			Species:    get(prefix + "Species"),
			Breed:      get(prefix + "Breed"),
			Color:      get(prefix + "Color"),
			Age:        get(prefix + "Age"),
			Units:      get(prefix + "Units"),
			Weight:     get(prefix + "Weight"),
			Sex:        get(prefix + "Sex"),
			SpayNeuter: get(prefix + "Spay/Neuter"),
		})
	}
	for key, v := range row {
		var n int
		if _, err := fmt.Sscanf(key, "Pet %d Species", &n); err == nil && n > slots && strings.TrimSpace(v) != "" {
			sub.ExtraPets++
		}
	}
	return sub
}

// FullName joins first and last name.
func (s Submission) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// Slots projects the pets onto the fields the summarizer reads.
func (s Submission) Slots() []household.Slot {
	out := make([]household.Slot, 0, len(s.Pets))
	for _, p := range s.Pets {
		out = append(out, household.Slot{Species: p.Species, AgeUnit: p.Units, Weight: p.Weight})
	}
	return out
}

var validate = validator.New()

// Validate checks field formats. Callers treat failures as warnings; a malformed
// email never blocks form generation.
func (s Submission) Validate() error {
	if s.ExtraPets > 0 {
		return fmt.Errorf("%w: %d ignored", ErrTooManyPets, s.ExtraPets)
	}
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("submission: %w", err)
	}
	return nil
}
