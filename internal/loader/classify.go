package loader

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/openfunders/fundermatch/internal/models"
)

// Classifier extracts UKCAT classifications and area mentions from narrative
// text (charity objectives, filing extracts). Patterns compile once at
// construction; classification itself is regex matching only.
type Classifier struct {
	rules []classRule
	areas []areaRule
}

type classRule struct {
	tag     string
	pattern *regexp.Regexp
	exclude *regexp.Regexp
}

type areaRule struct {
	name    string
	pattern *regexp.Regexp
}

// NewClassifier compiles the UKCAT tag patterns and area-name patterns.
// Tags without a match pattern are skipped: they exist only for the bonus
// level weighting. Area names match on word boundaries, case-insensitively.
func NewClassifier(tags []models.UKCATTag, areaNames []string) (*Classifier, error) {
	c := &Classifier{}
	for _, tag := range tags {
		if strings.TrimSpace(tag.Pattern) == "" {
			continue
		}
		pattern, err := regexp.Compile("(?i)" + tag.Pattern)
		if err != nil {
			return nil, fmt.Errorf("tag %s: bad pattern: %w", tag.Tag, err)
		}
		rule := classRule{tag: tag.Tag, pattern: pattern}
		if strings.TrimSpace(tag.ExcludePattern) != "" {
			exclude, err := regexp.Compile("(?i)" + tag.ExcludePattern)
			if err != nil {
				return nil, fmt.Errorf("tag %s: bad exclude pattern: %w", tag.Tag, err)
			}
			rule.exclude = exclude
		}
		c.rules = append(c.rules, rule)
	}
	for _, name := range areaNames {
		if strings.TrimSpace(name) == "" {
			continue
		}
		pattern, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(name) + `\b`)
		if err != nil {
			return nil, fmt.Errorf("area %s: %w", name, err)
		}
		c.areas = append(c.areas, areaRule{name: name, pattern: pattern})
	}
	return c, nil
}

// ExtractClasses returns the UKCAT tags whose pattern matches the text and
// whose exclude pattern does not. Results are deduplicated and sorted.
func (c *Classifier) ExtractClasses(text string) models.KeywordList {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var matched models.KeywordList
	for _, rule := range c.rules {
		if !rule.pattern.MatchString(text) {
			continue
		}
		if rule.exclude != nil && rule.exclude.MatchString(text) {
			continue
		}
		if _, ok := seen[rule.tag]; ok {
			continue
		}
		seen[rule.tag] = struct{}{}
		matched = append(matched, rule.tag)
	}
	sort.Strings(matched)
	return matched
}

// ExtractAreas returns the taxonomy area names mentioned in the text,
// deduplicated and sorted.
func (c *Classifier) ExtractAreas(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var matched []string
	for _, rule := range c.areas {
		if rule.pattern.MatchString(text) {
			matched = append(matched, rule.name)
		}
	}
	sort.Strings(matched)
	return matched
}
