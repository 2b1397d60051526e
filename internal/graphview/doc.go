// Package graphview provides the abstract view of a resolved dependency
// graph the resolver consumes: nodes are (package name, version) pairs
// tagged workspace-member/third-party/dev-only, connected by edges tagged
// normal, dev, or build.
package graphview
