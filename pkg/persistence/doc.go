// Package persistence stores the caster's runtime state in a JSON
// file: the onboarding identity (so printed onboarding codes survive
// restarts), the cached SPAKE2+ verifier, and the last commissioned
// peer. Certificate storage is handled separately by the cert package.
package persistence
