// Package catalog provides the immutable provider/model catalog.
//
// The catalog maps (provider, model) pairs to ModelDescriptor entries
// carrying capability, region, compliance, timeout, and cost metadata.
// It is built once at startup and is read-only afterwards, which makes
// it safe for concurrent use without locking.
//
// Ordering is part of the catalog contract: models are kept in their
// declared order per provider, and that order is the deterministic
// tie-break used by the compliance selector when several models of a
// fallback provider support the requested modality.
package catalog
