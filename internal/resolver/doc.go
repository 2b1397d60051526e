// Package resolver implements the two-pass audit resolution algorithm: Pass
// A computes, per package and criterion, which versions are reachable from
// a trusted root through delta chains; Pass B propagates policy demand
// across the dependency graph and decides, for every third-party node, which
// criteria are satisfied, violated, or unmet.
package resolver
