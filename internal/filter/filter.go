// Package filter selects which test cases of a run are executed.
// Cases that are not selected are still reported, as SKIPPED.
package filter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmespath/go-jmespath"
	"github.com/moamenhredeen/oascov/internal/models"
)

// Criteria are the selection flags of the run command
type Criteria struct {
	// Pattern matches a substring of the endpoint path or the operation id
	Pattern string
	// Tags matches test cases carrying any of the tags
	Tags []string
	// Where is a JMESPath expression evaluated against the JSON form of a test case
	Where string
	// Limit caps the number of selected test cases, 0 means no limit
	Limit int
}

// Selector applies Criteria to test cases
type Selector struct {
	criteria Criteria
	where    *jmespath.JMESPath
}

// New compiles the criteria
func New(c Criteria) (*Selector, error) {
	s := &Selector{criteria: c}
	if c.Where != "" {
		jp, err := jmespath.Compile(c.Where)
		if err != nil {
			return nil, fmt.Errorf("invalid JMESPath expression '%s': %w", c.Where, err)
		}
		s.where = jp
	}
	return s, nil
}

// Empty reports whether the selector keeps every test case
func (s *Selector) Empty() bool {
	c := s.criteria
	return c.Pattern == "" && len(c.Tags) == 0 && s.where == nil && c.Limit <= 0
}

// Evaluate returns the skip reason of every test case that is not selected, keyed by test case name
func (s *Selector) Evaluate(cases []models.TestCase) (map[string]string, error) {
	skipped := map[string]string{}
	selected := 0
	for _, tc := range cases {
		reason, err := s.reject(tc)
		if err != nil {
			return nil, err
		}
		if reason == "" && s.criteria.Limit > 0 && selected >= s.criteria.Limit {
			reason = fmt.Sprintf("exceeds limit of %d test cases", s.criteria.Limit)
		}
		if reason != "" {
			skipped[tc.Name] = reason
			continue
		}
		selected++
	}
	return skipped, nil
}

// SkipFunc evaluates the cases once and returns a lookup usable as tester.Config.Skip
func (s *Selector) SkipFunc(cases []models.TestCase) (func(models.TestCase) (string, bool), error) {
	skipped, err := s.Evaluate(cases)
	if err != nil {
		return nil, err
	}
	return func(tc models.TestCase) (string, bool) {
		reason, ok := skipped[tc.Name]
		return reason, ok
	}, nil
}

func (s *Selector) reject(tc models.TestCase) (string, error) {
	c := s.criteria
	if c.Pattern != "" && !strings.Contains(tc.Endpoint, c.Pattern) && !strings.Contains(tc.OperationID, c.Pattern) {
		return fmt.Sprintf("does not match filter %q", c.Pattern), nil
	}
	if len(c.Tags) > 0 && !hasAnyTag(tc.Tags, c.Tags) {
		return fmt.Sprintf("has none of the tags %s", strings.Join(c.Tags, ", ")), nil
	}
	if s.where != nil {
		ok, err := s.matches(tc)
		if err != nil {
			return "", err
		}
		if !ok {
			return "excluded by where expression", nil
		}
	}
	return "", nil
}

// matches evaluates the where expression with JMESPath truthiness
func (s *Selector) matches(tc models.TestCase) (bool, error) {
	data, err := json.Marshal(tc)
	if err != nil {
		return false, fmt.Errorf("failed to encode test case %s: %w", tc.Name, err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return false, fmt.Errorf("failed to decode test case %s: %w", tc.Name, err)
	}

	result, err := s.where.Search(doc)
	if err != nil {
		return false, fmt.Errorf("JMESPath search failed for %s: %w", tc.Name, err)
	}
	return truthy(result), nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

// hasAnyTag checks if the test case has any of the specified tags
func hasAnyTag(caseTags, filterTags []string) bool {
	for _, filterTag := range filterTags {
		for _, caseTag := range caseTags {
			if strings.EqualFold(caseTag, filterTag) {
				return true
			}
		}
	}
	return false
}
