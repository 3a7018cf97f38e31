package redact

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Category identifies a class of personally identifiable information.
type Category string

// Built-in PII categories, listed in matcher order.
const (
	CategoryIBAN       Category = "IBAN"
	CategoryEmail      Category = "EMAIL"
	CategoryCreditCard Category = "CREDIT_CARD"
	CategoryPhone      Category = "PHONE"
	CategoryIPAddress  Category = "IP_ADDRESS"
)

// FailMode controls how the engine behaves when a matcher faults.
type FailMode string

const (
	// FailOpen returns the original text with no matches when a
	// matcher faults. This favors pipeline availability over privacy.
	FailOpen FailMode = "open"

	// FailClosed surfaces a MatcherFaultError instead of returning
	// unredacted text.
	FailClosed FailMode = "closed"
)

// ErrMatcherFault is the sentinel for matcher faults in FailClosed mode.
var ErrMatcherFault = errors.New("redaction matcher fault")

// MatcherFaultError reports an internal matcher failure in FailClosed mode.
type MatcherFaultError struct {
	// Category is the matcher that faulted.
	Category Category

	// Cause is the recovered fault.
	Cause error
}

// Error implements the error interface.
func (e *MatcherFaultError) Error() string {
	return fmt.Sprintf("redaction matcher %q faulted: %v", e.Category, e.Cause)
}

// Is implements error matching for errors.Is().
func (e *MatcherFaultError) Is(target error) bool { return target == ErrMatcherFault }

// Unwrap returns the recovered fault.
func (e *MatcherFaultError) Unwrap() error { return e.Cause }

// Match records a single PII occurrence. Offsets refer to the text the
// matcher pass ran against, before its replacements were applied. A
// Match never carries the raw matched value so it is safe to log.
type Match struct {
	// Category is the PII class that matched.
	Category Category

	// Start is the byte offset where the match begins.
	Start int

	// End is the byte offset one past the last matched byte.
	End int
}

// Result is the outcome of a single Redact call. It is immutable.
type Result struct {
	// Sanitized is the input text with every match replaced by its
	// category placeholder.
	Sanitized string

	// Matches lists the detected occurrences in pass order.
	Matches []Match

	// HasPII is true when at least one matcher fired.
	HasPII bool
}

// Config configures a redaction Engine.
type Config struct {
	// FailMode selects fail-open or fail-closed behavior on matcher
	// faults. Default: FailOpen.
	FailMode FailMode

	// Categories restricts the engine to a subset of categories.
	// Empty means all built-in categories, in their default order.
	Categories []Category
}

// matcher is a single compiled category scanner.
type matcher struct {
	category    Category
	regex       *regexp.Regexp
	placeholder string

	// validate rejects a candidate match (checksum validation etc.).
	// Nil means every regex match counts.
	validate func(string) bool
}

// Engine is a stateless, concurrency-safe PII scanner and substituter.
type Engine struct {
	matchers []*matcher
	mode     FailMode
}

var (
	ibanRegex = regexp.MustCompile(`\b[A-Z]{2}[0-9]{2}[A-Za-z0-9]{11,30}\b`)

	emailRegex = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)

	creditCardRegex = regexp.MustCompile(`\b(?:4[0-9]{12}(?:[0-9]{3})?|5[1-5][0-9]{14}|3[47][0-9]{13}|6(?:011|5[0-9]{2})[0-9]{12})\b`)

	phoneRegex = regexp.MustCompile(`(?:\+[0-9]{1,3}[-. ]?)?(?:\([0-9]{2,4}\)|\b[0-9]{2,4})[-. ]?[0-9]{3,4}[-. ]?[0-9]{3,4}\b`)

	ipv4Regex = regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\b`)
)

// defaultMatchers returns the built-in matchers in scan order.
// IBAN and credit card run before phone so digit runs belonging to a
// financial identifier are consumed whole.
func defaultMatchers() []*matcher {
	return []*matcher{
		{category: CategoryIBAN, regex: ibanRegex, placeholder: "<IBAN_REMOVED>", validate: validIBAN},
		{category: CategoryEmail, regex: emailRegex, placeholder: "<EMAIL_REMOVED>"},
		{category: CategoryCreditCard, regex: creditCardRegex, placeholder: "<CREDIT_CARD_REMOVED>", validate: luhnValid},
		{category: CategoryPhone, regex: phoneRegex, placeholder: "<PHONE_REMOVED>", validate: plausiblePhone},
		{category: CategoryIPAddress, regex: ipv4Regex, placeholder: "<IP_REMOVED>"},
	}
}

// NewEngine creates a redaction engine from the given configuration.
func NewEngine(cfg Config) *Engine {
	mode := cfg.FailMode
	if mode == "" {
		mode = FailOpen
	}

	all := defaultMatchers()
	if len(cfg.Categories) == 0 {
		return &Engine{matchers: all, mode: mode}
	}

	enabled := make(map[Category]bool, len(cfg.Categories))
	for _, c := range cfg.Categories {
		enabled[c] = true
	}

	var selected []*matcher
	for _, m := range all {
		if enabled[m.category] {
			selected = append(selected, m)
		}
	}
	return &Engine{matchers: selected, mode: mode}
}

// Redact scans text and replaces every PII occurrence with its
// category placeholder. In FailOpen mode a matcher fault yields the
// original text with HasPII=false and a nil error; in FailClosed mode
// it yields a MatcherFaultError.
func (e *Engine) Redact(text string) (*Result, error) {
	sanitized := text
	var matches []Match

	for _, m := range e.matchers {
		next, found, err := applyMatcher(m, sanitized)
		if err != nil {
			if e.mode == FailClosed {
				return nil, err
			}
			// Fail open: discard partial work, hand back the input.
			return &Result{Sanitized: text, Matches: nil, HasPII: false}, nil
		}
		sanitized = next
		matches = append(matches, found...)
	}

	return &Result{
		Sanitized: sanitized,
		Matches:   matches,
		HasPII:    len(matches) > 0,
	}, nil
}

// HasPII reports whether text contains at least one detectable PII
// occurrence. Equivalent to Redact(text).HasPII.
func (e *Engine) HasPII(text string) bool {
	res, err := e.Redact(text)
	if err != nil {
		return false
	}
	return res.HasPII
}

// applyMatcher runs one non-overlapping, leftmost-first pass over text.
// Faults inside the matcher are recovered and returned as errors.
func applyMatcher(m *matcher, text string) (out string, found []Match, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, found = "", nil
			err = &MatcherFaultError{Category: m.category, Cause: fmt.Errorf("%v", r)}
		}
	}()

	locs := m.regex.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return text, nil, nil
	}

	var b strings.Builder
	b.Grow(len(text))
	prev := 0
	for _, loc := range locs {
		candidate := text[loc[0]:loc[1]]
		if m.validate != nil && !m.validate(candidate) {
			continue
		}
		b.WriteString(text[prev:loc[0]])
		b.WriteString(m.placeholder)
		prev = loc[1]
		found = append(found, Match{Category: m.category, Start: loc[0], End: loc[1]})
	}
	b.WriteString(text[prev:])
	return b.String(), found, nil
}

// validIBAN checks the ISO 13616 mod-97 checksum.
func validIBAN(s string) bool {
	if len(s) < 15 || len(s) > 34 {
		return false
	}

	// Move the country code and check digits to the end, then map
	// letters to numbers (A=10 .. Z=35) and compute mod 97.
	rearranged := s[4:] + s[:4]
	rem := 0
	for i := 0; i < len(rearranged); i++ {
		c := rearranged[i]
		switch {
		case c >= '0' && c <= '9':
			rem = (rem*10 + int(c-'0')) % 97
		case c >= 'A' && c <= 'Z':
			v := int(c-'A') + 10
			rem = (rem*100 + v) % 97
		case c >= 'a' && c <= 'z':
			v := int(c-'a') + 10
			rem = (rem*100 + v) % 97
		default:
			return false
		}
	}
	return rem == 1
}

// luhnValid validates a card number with the Luhn algorithm.
func luhnValid(s string) bool {
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "-", "")
	if len(s) < 13 || len(s) > 19 {
		return false
	}

	sum := 0
	double := false
	for i := len(s) - 1; i >= 0; i-- {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// plausiblePhone rejects matches too short to be dialable numbers.
// The phone regex is deliberately loose; this keeps short numeric
// fragments (order IDs, years) out of the match set.
func plausiblePhone(s string) bool {
	digits := 0
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			digits++
		}
	}
	return digits >= 7 && digits <= 15
}
