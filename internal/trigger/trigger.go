// Package trigger decides whether a normalized GitHub event should activate
// the agent. Three independent paths can fire: issue assignment, label
// application, and trigger-phrase mention in any event text field.
package trigger

import (
	"regexp"
	"strings"

	"github.com/juniehq/junie-agent/internal/event"
)

// Config holds the configured activation triggers.
type Config struct {
	// Phrase is the mention that activates the agent (default "@junie").
	Phrase string
	// AssigneeTrigger activates on issue assignment to this login. A leading
	// "@" in the configured value is ignored.
	AssigneeTrigger string
	// LabelTrigger activates when this exact label is applied.
	LabelTrigger string
}

// DefaultPhrase is the trigger mention used when none is configured.
const DefaultPhrase = "@junie"

// Detect reports whether the event should activate the agent.
// It is a pure function: malformed or missing optional fields never error,
// they just fail to match.
func Detect(e event.Descriptor, cfg Config) bool {
	if detectAssignee(e, cfg) {
		return true
	}
	if detectLabel(e, cfg) {
		return true
	}
	return detectPhrase(e, cfg)
}

func detectAssignee(e event.Descriptor, cfg Config) bool {
	if cfg.AssigneeTrigger == "" {
		return false
	}
	if e.Kind != event.KindIssue || e.Action != event.ActionAssigned {
		return false
	}

	// Case-sensitive compare against the assignee, ignoring a leading "@"
	// in the configured value.
	want := strings.TrimPrefix(cfg.AssigneeTrigger, "@")
	return want != "" && e.AssigneeLogin == want
}

func detectLabel(e event.Descriptor, cfg Config) bool {
	if cfg.LabelTrigger == "" {
		return false
	}
	if e.Action != event.ActionLabeled {
		return false
	}
	return e.LabelName == cfg.LabelTrigger
}

func detectPhrase(e event.Descriptor, cfg Config) bool {
	phrase := cfg.Phrase
	if phrase == "" {
		phrase = DefaultPhrase
	}

	re, err := phrasePattern(phrase)
	if err != nil {
		return false
	}

	for _, field := range e.TextFields {
		if field.Text == "" {
			continue
		}
		if re.MatchString(field.Text) {
			return true
		}
	}
	return false
}

// phrasePattern compiles a case-insensitive pattern that matches the phrase
// only when bounded by a non-word character or a string edge on both sides,
// so "@junie" matches "Hi @junie," but not "email@junie.com".
func phrasePattern(phrase string) (*regexp.Regexp, error) {
	escaped := EscapePhrase(phrase)
	return regexp.Compile(`(?i)(^|\W)` + escaped + `($|\W)`)
}

// regex metacharacters that need escaping; "@" and other plain characters
// pass through untouched.
const metaChars = `.*+?^${}()|[]\`

// EscapePhrase escapes regex metacharacters in a user-supplied trigger phrase
// so it matches literally inside a pattern.
func EscapePhrase(phrase string) string {
	var b strings.Builder
	b.Grow(len(phrase))
	for _, r := range phrase {
		if r < 128 && strings.ContainsRune(metaChars, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
