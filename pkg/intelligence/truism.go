package intelligence

import (
	"regexp"
	"strings"
)

// TruismFilter is a heuristic backstop behind the extraction prompt.
// The prompt already instructs the model not to emit generic facts,
// this filter catches the ones that slip through anyway.
type TruismFilter struct {
	patterns []*regexp.Regexp
}

// genericPredicates are verb phrases that, combined with an abstract
// object, produce statements true of almost anyone.
var genericPredicates = []string{
	`values?`,
	`appreciates?`,
	`cares? about`,
	`is interested in`,
	`likes? things? (to|that)`,
	`wants? (things|everything|code|results?) to`,
	`prefers? (good|clear|helpful|quality|better)`,
	`enjoys? (good|quality)`,
}

// abstractObjects are the objects those predicates pair with.
var abstractObjects = []string{
	`efficiency`,
	`quality`,
	`simplicity`,
	`productivity`,
	`communication`,
	`clarity`,
	`honesty`,
	`convenience`,
	`reliability`,
	`technology`,
	`learning( new things)?`,
	`good (service|results?|work)`,
	`clear (communication|answers?|explanations?)`,
	`helpful (answers?|responses?)`,
	`things? (to work|done right|being easy)`,
	`(to )?work(ing)? (well|correctly|properly)`,
}

// NewTruismFilter builds the default filter.
func NewTruismFilter() *TruismFilter {
	var patterns []*regexp.Regexp
	for _, pred := range genericPredicates {
		pattern := regexp.MustCompile(`(?i)^(the )?(user |they |he |she )?` + pred + ` (` + strings.Join(abstractObjects, `|`) + `)\.?$`)
		patterns = append(patterns, pattern)
	}
	return &TruismFilter{patterns: patterns}
}

// IsTruism reports whether a fact is a generic statement with no
// user-specific content.
func (f *TruismFilter) IsTruism(fact string) bool {
	fact = strings.TrimSpace(fact)
	if fact == "" {
		return true
	}

	// A fact that names a concrete anchor is never a truism.
	if hasConcreteAnchor(fact) {
		return false
	}

	for _, pattern := range f.patterns {
		if pattern.MatchString(fact) {
			return true
		}
	}
	return false
}

// Filter splits facts into kept and discarded sets, preserving order.
func (f *TruismFilter) Filter(facts []string) (kept, discarded []string) {
	for _, fact := range facts {
		if f.IsTruism(fact) {
			discarded = append(discarded, fact)
		} else {
			kept = append(kept, fact)
		}
	}
	return kept, discarded
}

var (
	digitRe      = regexp.MustCompile(`\d`)
	properNounRe = regexp.MustCompile(`\b[A-Z][a-z]+`)
	temporalRe   = regexp.MustCompile(`(?i)\b(yesterday|today|tomorrow|last (week|month|year)|next (week|month|year)|on (mon|tues|wednes|thurs|fri|satur|sun)day|in (january|february|march|april|may|june|july|august|september|october|november|december))\b`)
)

// hasConcreteAnchor reports whether a fact carries user-specific
// detail: a number, a date reference, or a proper noun past the
// sentence start.
func hasConcreteAnchor(fact string) bool {
	if digitRe.MatchString(fact) {
		return true
	}
	if temporalRe.MatchString(fact) {
		return true
	}
	// Skip the leading word, sentence case is not evidence of a name.
	if idx := strings.IndexByte(fact, ' '); idx > 0 {
		if properNounRe.MatchString(fact[idx:]) {
			return true
		}
	}
	return false
}
