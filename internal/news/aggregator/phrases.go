package aggregator

import (
	"sort"
	"strings"
)

// These tables are read-only after package initialization. They are only
// reachable through the lookup functions below.
var (
	categoryPhrases = map[string]string{
		"general":       "india top news",
		"technology":    "technology india",
		"business":      "business economy india",
		"sports":        "sports india cricket",
		"entertainment": "bollywood entertainment",
		"health":        "health india",
		"science":       "science research india",
		"politics":      "india politics",
		"world":         "world news",
		"education":     "education india",
		"environment":   "climate environment india",
		"startups":      "indian startups funding",
	}

	cityPhrases = map[string]string{
		"delhi":      "Delhi NCR news",
		"new delhi":  "Delhi NCR news",
		"mumbai":     "Mumbai news",
		"bengaluru":  "Bengaluru news",
		"bangalore":  "Bengaluru news",
		"chennai":    "Chennai news",
		"kolkata":    "Kolkata news",
		"hyderabad":  "Hyderabad news",
		"pune":       "Pune news",
		"ahmedabad":  "Ahmedabad news",
		"jaipur":     "Jaipur news",
		"lucknow":    "Lucknow news",
		"chandigarh": "Chandigarh news",
		"kochi":      "Kochi Kerala news",
	}
)

// canonical lowercases key, collapses inner whitespace and substitutes def
// for an empty key.
func canonical(key, def string) string {
	k := strings.Join(strings.Fields(strings.ToLower(key)), " ")
	if k == "" {
		return def
	}
	return k
}

// categoryPhrase maps a canonical category to its search phrase. Unknown
// categories are searched literally.
func categoryPhrase(category string) string {
	if p, ok := categoryPhrases[category]; ok {
		return p
	}
	return category
}

// cityPhrase maps a canonical city to its search phrase. Unknown locations
// are searched literally.
func cityPhrase(city string) string {
	if p, ok := cityPhrases[city]; ok {
		return p
	}
	return city
}

// Categories returns the categories with a dedicated search phrase.
func Categories() []string {
	out := make([]string, 0, len(categoryPhrases))
	for c := range categoryPhrases {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
