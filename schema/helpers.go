package schema

import (
	"fmt"
	"strings"
)

// IsGlobal reports whether the filter selects everything.
func (f Filter) IsGlobal() bool {
	return f.Kind == ""
}

// String renders the filter as "kind:value", or "global".
func (f Filter) String() string {
	if f.IsGlobal() {
		return "global"
	}
	return string(f.Kind) + ":" + f.Value
}

// ParseFilter parses a "kind:value" string into a Filter.
// An empty string or "global" yields the global filter.
func ParseFilter(s string) (Filter, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "global") {
		return Filter{}, nil
	}
	kind, value, ok := strings.Cut(s, ":")
	if !ok {
		return Filter{}, fmt.Errorf("invalid filter %q, expected 'kind:value'", s)
	}
	k := FilterKind(strings.ToLower(strings.TrimSpace(kind)))
	if _, valid := ValidFilterKinds[k]; !valid {
		return Filter{}, fmt.Errorf("invalid filter kind '%s'. must be repository, company, country, domain, people", kind)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return Filter{}, fmt.Errorf("filter %q has an empty value", s)
	}
	return Filter{Kind: k, Value: value}, nil
}

// ParseDataSource validates a family name.
func ParseDataSource(s string) (DataSource, error) {
	ds := DataSource(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := ValidDataSources[ds]; !ok {
		return "", fmt.Errorf("unknown data source '%s'. must be scm, its, mls, scr, irc, mediawiki, qaforums", s)
	}
	return ds, nil
}

// Slug makes a filter value safe to use inside a file name.
func Slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
