// Package store implements the normalized, immutable in-memory audit store:
// full audits, delta audits, exemptions, violations, imported audits, and
// policy, indexed by package name for the resolver and suggester.
package store
