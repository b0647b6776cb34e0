package biasmap

import (
	"fmt"
	"strings"
)

// DefaultTemplate is the template shown on first launch.
const DefaultTemplate = "This movie was filmed in *"

// ExampleTemplates returns the canned templates offered next to the input field.
func ExampleTemplates() []string {
	return []string{
		"The book is written in *",
		"My partner is from *",
		"Our next candidate is from *",
	}
}

// ValidateTemplate checks that the template carries the placeholder.
func ValidateTemplate(template string) error {
	if strings.TrimSpace(template) == "" {
		return fmt.Errorf("%w: empty template", ErrValidation)
	}
	if !strings.Contains(template, Placeholder) {
		return fmt.Errorf("%w: missing placeholder %q", ErrValidation, Placeholder)
	}
	return nil
}

// Expand substitutes every region name into the template, one sentence per
// region in the order given.
func Expand(template string, regions []Region) ([]ExpandedSentence, error) {
	if err := ValidateTemplate(template); err != nil {
		return nil, err
	}
	out := make([]ExpandedSentence, len(regions))
	for i, r := range regions {
		out[i] = ExpandedSentence{
			Region: r,
			Text:   strings.ReplaceAll(template, Placeholder, r.Name),
		}
	}
	return out, nil
}
