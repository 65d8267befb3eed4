package domain

import "strings"

// Message categories assigned by the keyword heuristic.
const (
	CategorySoil    = "soil"
	CategoryAnimal  = "animal"
	CategoryInsect  = "insect"
	CategoryCrop    = "crop"
	CategoryUnknown = "unknown"
)

// categoryRule maps a keyword set to a category. Rules are scanned in order
// and the first keyword found in the body wins, so more specific topics come
// before the generic crop row.
type categoryRule struct {
	keywords []string
	category string
}

var categoryRules = []categoryRule{
	{keywords: []string{"soil"}, category: CategorySoil},
	{keywords: []string{"animal", "livestock"}, category: CategoryAnimal},
	{keywords: []string{"insect", "pest"}, category: CategoryInsect},
	{keywords: []string{"crop", "plant", "leaf"}, category: CategoryCrop},
}

// Categorize assigns a coarse topic category to a message body using
// case-insensitive substring matching against a fixed keyword vocabulary.
func Categorize(body string) string {
	lower := strings.ToLower(body)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.category
			}
		}
	}
	return CategoryUnknown
}
