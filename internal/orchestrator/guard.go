package orchestrator

import (
	"context"
	"sort"
)

// Readiness reports whether a target locale already exists on the live
// listing. Advisory only: callers decide whether to proceed when absent.
type Readiness struct {
	LocalePresent  bool     `json:"locale_present"`
	PresentLocales []string `json:"present_locales"`
}

// GuardReadiness queries the live listing's locales. The language match is
// exact and case-sensitive; present locales are returned sorted.
func (o *Orchestrator) GuardReadiness(ctx context.Context, packageName, language string) (*Readiness, error) {
	listings, err := o.Editor.ListListings(ctx, packageName)
	if err != nil {
		return nil, err
	}

	present := make([]string, 0, len(listings))
	found := false
	for _, l := range listings {
		present = append(present, l.Language)
		if l.Language == language {
			found = true
		}
	}
	sort.Strings(present)

	return &Readiness{LocalePresent: found, PresentLocales: present}, nil
}
