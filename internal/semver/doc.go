// Package semver wraps golang.org/x/mod/semver with the value-type Version
// and Range the rest of the engine works with, since the engine models
// versions as plain comparable values rather than strings.
package semver
