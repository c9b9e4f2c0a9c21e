package config

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var categories = []string{
	"business",
	"entertainment",
	"general",
	"health",
	"science",
	"sports",
	"technology",
}

// Country codes accepted by the top-headlines endpoint.
var countries = []string{
	"ae", "ar", "at", "au", "be", "bg", "br", "ca", "ch", "cn",
	"co", "cu", "cz", "de", "eg", "fr", "gb", "gr", "hk", "hu",
	"id", "ie", "il", "in", "it", "jp", "kr", "lt", "lv", "ma",
	"mx", "my", "ng", "nl", "no", "nz", "ph", "pl", "pt", "ro",
	"rs", "ru", "sa", "se", "sg", "si", "sk", "th", "tr", "tw",
	"ua", "us", "ve", "za",
}

// Categories returns all categories in display order.
func Categories() []string {
	return slices.Clone(categories)
}

func Countries() []string {
	return slices.Clone(countries)
}

func ValidCategory(c string) bool {
	return slices.Contains(categories, strings.ToLower(c))
}

func ValidCountry(code string) bool {
	return slices.Contains(countries, strings.ToLower(code))
}

var titleCaser = cases.Title(language.English)

// CategoryLabel turns "technology" into "Technology".
func CategoryLabel(c string) string {
	return titleCaser.String(c)
}
