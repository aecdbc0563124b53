package core

import "strings"

// KeyRule builds one candidate budget key from a record. ok is false when a
// field the rule needs is blank.
type KeyRule struct {
	Name  string
	Build func(BusinessRecord) (key string, ok bool)
}

// DefaultKeyRules are tried most specific first.
var DefaultKeyRules = []KeyRule{
	{Name: "segment-customerType", Build: joinFields(func(r BusinessRecord) []string { return []string{r.Segment, r.CustomerType} })},
	{Name: "category-customer", Build: joinFields(func(r BusinessRecord) []string { return []string{r.Category, r.Customer} })},
	{Name: "category-projectName", Build: joinFields(func(r BusinessRecord) []string { return []string{r.Category, r.ProjectName} })},
	{Name: "customerType", Build: joinFields(func(r BusinessRecord) []string { return []string{r.CustomerType} })},
	{Name: "customer", Build: joinFields(func(r BusinessRecord) []string { return []string{r.Customer} })},
	{Name: "category", Build: joinFields(func(r BusinessRecord) []string { return []string{r.Category} })},
}

// KeyResolver turns a record into an ordered list of candidate budget keys.
type KeyResolver struct {
	rules []KeyRule
}

// NewKeyResolver returns a resolver using rules, or DefaultKeyRules when none
// are given.
func NewKeyResolver(rules ...KeyRule) KeyResolver {
	if len(rules) == 0 {
		rules = DefaultKeyRules
	}
	return KeyResolver{rules: rules}
}

// Candidates returns the keys to try, most specific first, without
// duplicates. It fails with ErrNoKeyFields when no rule applies.
func (kr KeyResolver) Candidates(r BusinessRecord) ([]CompoundKey, error) {
	rules := kr.rules
	if len(rules) == 0 {
		rules = DefaultKeyRules
	}
	seen := make(map[string]struct{}, len(rules))
	out := make([]CompoundKey, 0, len(rules))
	for _, rule := range rules {
		key, ok := rule.Build(r)
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, CompoundKey(key))
	}
	if len(out) == 0 {
		return nil, ErrNoKeyFields
	}
	return out, nil
}

func joinFields(fields func(BusinessRecord) []string) func(BusinessRecord) (string, bool) {
	return func(r BusinessRecord) (string, bool) {
		parts := fields(r)
		for i, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				return "", false
			}
			parts[i] = p
		}
		return strings.Join(parts, "-"), true
	}
}
