// Package lint validates listing metadata and local image assets against
// store policy limits before they are attached to an experiment variant.
package lint

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Severity levels for policy issues.
const (
	LevelError   = "error"
	LevelWarning = "warning"
)

// Issue is one policy finding on a metadata field.
type Issue struct {
	Level   string `json:"level"`
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MetadataReport aggregates all findings for a set of metadata strings.
type MetadataReport struct {
	Issues  []Issue        `json:"issues"`
	Metrics map[string]int `json:"metrics"`
	OK      bool           `json:"ok"`
}

// Character limits kept in sync with the console's published policy.
const (
	titleLimit = 30
	shortLimit = 80
	fullLimit  = 4000
)

var (
	emojiRe       = regexp.MustCompile(`[\x{1F300}-\x{1F6FF}\x{1F700}-\x{1F77F}\x{1F780}-\x{1F7FF}\x{1F800}-\x{1F8FF}\x{1F900}-\x{1F9FF}\x{1FA00}-\x{1FA6F}\x{1FA70}-\x{1FAFF}\x{2700}-\x{27BF}]`)
	repeatPunctRe = regexp.MustCompile(`([!?*~_\-]{2,}|\.{3,})`)
)

// Promo/ranking claim terms; non-exhaustive.
var bannedTerms = []string{
	"#1", "no.1", "best", "top", "popular", "award", "editor's choice",
	"free", "sale", "discount", "cashback", "% off", "limited time",
}

// CheckMetadata validates the supplied metadata strings. Nil fields are
// skipped; OK is false when any error-level issue is present.
func CheckMetadata(title, shortDescription, fullDescription *string) MetadataReport {
	report := MetadataReport{Metrics: make(map[string]int)}
	add := func(level, field, code, message string) {
		report.Issues = append(report.Issues, Issue{Level: level, Field: field, Code: code, Message: message})
	}

	if title != nil {
		length := utf8.RuneCountInString(*title)
		report.Metrics["title_length"] = length
		if length > titleLimit {
			add(LevelError, "title", "TITLE_LEN", fmt.Sprintf("title exceeds %d characters", titleLimit))
		}
		if emojiRe.MatchString(*title) {
			add(LevelError, "title", "TITLE_EMOJI", "title contains emojis/emoticons")
		}
		if repeatPunctRe.MatchString(*title) {
			add(LevelWarning, "title", "TITLE_PUNCT", "avoid repeated punctuation in title")
		}
		if containsBanned(*title) {
			add(LevelError, "title", "TITLE_PROMO", "disallowed performance/promo terms in title")
		}
	}

	if shortDescription != nil {
		length := utf8.RuneCountInString(*shortDescription)
		report.Metrics["short_description_length"] = length
		if length > shortLimit {
			add(LevelError, "short_description", "SHORT_LEN", fmt.Sprintf("short description exceeds %d characters", shortLimit))
		}
		if emojiRe.MatchString(*shortDescription) {
			add(LevelError, "short_description", "SHORT_EMOJI", "short description contains emojis/emoticons")
		}
		if repeatPunctRe.MatchString(*shortDescription) {
			add(LevelWarning, "short_description", "SHORT_PUNCT", "avoid repeated punctuation in short description")
		}
		if containsBanned(*shortDescription) {
			add(LevelError, "short_description", "SHORT_PROMO", "disallowed performance/promo terms in short description")
		}
	}

	if fullDescription != nil {
		length := utf8.RuneCountInString(*fullDescription)
		report.Metrics["full_description_length"] = length
		if length > fullLimit {
			add(LevelError, "full_description", "FULL_LEN", fmt.Sprintf("full description exceeds %d characters", fullLimit))
		}
		if containsBanned(*fullDescription) {
			add(LevelWarning, "full_description", "FULL_PROMO", "avoid performance/promo terms in full description")
		}
	}

	report.OK = true
	for _, issue := range report.Issues {
		if issue.Level == LevelError {
			report.OK = false
			break
		}
	}
	return report
}

func containsBanned(s string) bool {
	lower := strings.ToLower(s)
	for _, term := range bannedTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}
