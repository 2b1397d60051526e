// Package criteria implements the named-criteria implication graph and the
// closure, satisfaction, meet, and join operations over sets of criteria
// names that the resolver and suggester build on.
package criteria
