package branch

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/developer0000009-hue/schoolportal/core"
)

// Countries is the list of countries a branch may be located in.
var Countries = []string{
	"Australia", "Bangladesh", "Botswana", "Burundi", "Cameroon", "Canada", "Egypt", "Ethiopia",
	"France", "Germany", "Ghana", "India", "Indonesia", "Ireland", "Kenya", "Malawi", "Malaysia",
	"Morocco", "Mozambique", "Namibia", "Nepal", "Netherlands", "New Zealand", "Nigeria",
	"Pakistan", "Philippines", "Rwanda", "Saudi Arabia", "Senegal", "Singapore", "South Africa",
	"Sri Lanka", "Tanzania", "Uganda", "United Arab Emirates", "United Kingdom", "United States",
	"Zambia", "Zimbabwe",
}

var (
	countryTag  = "country"
	countryText = "select a country from the list"
)

// IsCountry reports whether name is in Countries (case insensitive).
func IsCountry(name string) bool {
	_, ok := CanonicalCountry(name)
	return ok
}

// CanonicalCountry returns the listed spelling of name.
func CanonicalCountry(name string) (string, bool) {
	name = core.CleanString(name)
	for _, c := range Countries {
		if strings.EqualFold(c, name) {
			return c, true
		}
	}
	return "", false
}

// InitValidators registers the branch validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(countryTag, countryValidation)
	core.RegisterCustomTranslation(validate, translator, countryTag, countryText)
}

func countryValidation(fl validator.FieldLevel) bool {
	return IsCountry(fl.Field().String())
}
