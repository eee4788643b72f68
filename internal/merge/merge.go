// Package merge assembles the placeholder map for one intake form.
package merge

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"pantry-intake/internal/household"
	"pantry-intake/internal/submission"
)

const (
	dateLayout = "1/2/2006"
	nameLayout = "20060102_1504"
)

// Placeholder tokens for the fixed fields of the template.
const (
	KeyFormDate      = "{{formDate}}"
	KeyTodaysDate    = "{{todaysDate}}"
	KeyFormID        = "{{FormID}}"
	KeyFormIDLower   = "{{formId}}"
	KeyFullName      = "{{fullName}}"
	KeyLastName      = "{{lastName}}"
	KeyPhone         = "{{phone}}"
	KeyEmail         = "{{email}}"
	KeyContact       = "{{Contact}}"
	KeyAddressLine1  = "{{addressLine1}}"
	KeyAddressLine2  = "{{addressLine2}}"
	KeyCity          = "{{city}}"
	KeyState         = "{{state}}"
	KeyZip           = "{{zip}}"
	KeyNewClient     = "{{newClient}}"
	KeyServices      = "{{services}}"
	KeyPickupWindow  = "{{pickupWindow}}"
	KeyAdultDogCount = "{{adultDogCount}}"
	KeyPuppyCount    = "{{puppyCount}}"
	KeyAdultCatCount = "{{adultCatCount}}"
	KeyKittenCount   = "{{kittenCount}}"
	KeyDogSizes      = "{{dogSizes}}"
	KeyOtherSpecies  = "{{otherSpecies}}"
)

// BuildPlaceholderMap merges submission fields, counts and recommendations.
// Recommendations are applied last.
func BuildPlaceholderMap(sub submission.Submission, counts household.Counts, recommended map[string]string, now time.Time) map[string]string {
	today := now.Format(dateLayout)
	m := map[string]string{
		KeyFormDate:     today,
		KeyTodaysDate:   today,
		KeyFormID:       sub.FormID,
		KeyFullName:     sub.FullName(),
		KeyLastName:     sub.LastName,
		KeyPhone:        sub.Phone,
		KeyEmail:        sub.Email,
		KeyContact:      NormalizeContact(sub.ContactMethod),
		KeyAddressLine1: sub.AddressLine1,
		KeyAddressLine2: sub.AddressLine2,
		KeyCity:         sub.City,
		KeyState:        sub.State,
		KeyZip:          sub.Zip,
		KeyNewClient:    sub.ReturningClient,
		KeyServices:     sub.AdditionalServices,
		KeyPickupWindow: PickupWindow(sub.PickupWindow),
	}

	for i, p := range sub.Pets {
		n := i + 1
		m[slotKey(n, "Name")] = p.Name
		m[slotKey(n, "Species")] = p.Species
		m[slotKey(n, "Breed")] = p.Breed
		m[slotKey(n, "Color")] = p.Color
		m[slotKey(n, "Age")] = p.Age
		m[slotKey(n, "Units")] = p.Units
		m[slotKey(n, "Weight")] = p.Weight
		m[slotKey(n, "Sex")] = p.Sex
		m[slotKey(n, "SPN")] = p.SpayNeuter
	}

	m[KeyAdultDogCount] = strconv.Itoa(counts.AdultDogs)
	m[KeyPuppyCount] = strconv.Itoa(counts.Puppies)
	m[KeyAdultCatCount] = strconv.Itoa(counts.AdultCats)
	m[KeyKittenCount] = strconv.Itoa(counts.Kittens)
	m[KeyDogSizes] = counts.SizeSummary()
	m[KeyOtherSpecies] = counts.OtherSummary()

	for k, v := range recommended {
		m[k] = v
	}
	return m
}

// FormID returns the barcode value from a merged map.
func FormID(m map[string]string) string {
	if v := m[KeyFormID]; v != "" {
		return v
	}
	return m[KeyFormIDLower]
}

func slotKey(n int, field string) string {
	return fmt.Sprintf("{{%d%s}}", n, field)
}

var (
	contactToken = regexp.MustCompile(`(?i)\b(text|email|phone)\b\s*[–—-]`)
	weekendToken = regexp.MustCompile(`(?i)(sat|sun|weekend)`)
)

// NormalizeContact extracts the contact methods chosen on the form, e.g.
// "Text – (555) 123-4567; email - a@b.c" -> "Text, Email".
func NormalizeContact(raw string) string {
	var out []string
	seen := map[string]bool{}
	title := cases.Title(language.Und)
	for _, m := range contactToken.FindAllStringSubmatch(raw, -1) {
		method := title.String(strings.ToLower(m[1]))
		if seen[method] {
			continue
		}
		seen[method] = true
		out = append(out, method)
	}
	return strings.Join(out, ", ")
}

// PickupWindow maps the free-text pick-up preference to Saturday or Weekday.
func PickupWindow(raw string) string {
	if weekendToken.MatchString(raw) {
		return "Saturday"
	}
	return "Weekday"
}

// OutputName is the generated PDF's base name.
func OutputName(sub submission.Submission, now time.Time) string {
	first := sub.FirstName
	if first == "" {
		first = "Unknown"
	}
	return fmt.Sprintf("PetPantryForm_%s_%s_%s", first, sub.LastName, now.Format(nameLayout))
}
