// Package providers defines the provider client abstraction used by
// the gateway to talk to external LLM vendors.
//
// Capability is modeled as one interface per group — ChatProvider,
// VisionProvider, AudioProvider, EmbeddingProvider — all embedding the
// base Provider interface. A vendor adapter implements only the groups
// its API offers; the registry and selector dispatch by capability,
// never by branching on provider names.
//
// All adapters share the HTTPClient base, which owns the pooled HTTP
// client, the single bounded retry for transient network failures, and
// the normalization of vendor failures into the typed error taxonomy
// (AuthError, RateLimitError, TransientNetworkError, VendorError).
//
// Clients hold immutable connection configuration and no per-request
// state, so a single instance is safely shared across concurrent
// requests.
package providers
