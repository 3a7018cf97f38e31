// Package redact implements the PII redaction engine used on all
// outbound provider payloads.
//
// The engine applies an ordered sequence of category matchers to the
// input text. Ordering matters: IBAN and email run before phone so a
// phone matcher can never partially consume digits that belong to an
// IBAN. Each pass replaces non-overlapping, leftmost-first matches
// with a fixed placeholder token per category (for example
// <EMAIL_REMOVED>), and the output of one pass feeds the next.
//
// Redaction is pure and performs no I/O, which makes the engine safe
// for concurrent reuse across requests. Matcher faults are handled
// according to the configured FailMode: FailOpen returns the original
// text unredacted (availability over privacy), FailClosed surfaces an
// error so the caller can reject the request.
package redact
