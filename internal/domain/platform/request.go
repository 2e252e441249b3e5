// Package platform resolves which compiler target and release tag a build uses.
package platform

import "fmt"

// Defaults applied when the corresponding override is absent.
const (
	DefaultTriple = "x86_64-unknown-linux-gnu"
	DefaultTag    = "linux-amd64"
)

// Request is the resolved target of one build run.
// Both fields are non-empty. No relationship between them is enforced.
type Request struct {
	CompilerTriple string `json:"compiler_triple" yaml:"compiler_triple"`
	ReleaseTag     string `json:"release_tag" yaml:"release_tag"`
}

// Resolve builds a Request from optional overrides. An empty override means
// "not supplied"; each field falls back to its own default independently and
// a supplied override is used verbatim.
func Resolve(tripleOverride, tagOverride string) Request {
	req := Request{
		CompilerTriple: DefaultTriple,
		ReleaseTag:     DefaultTag,
	}
	if tripleOverride != "" {
		req.CompilerTriple = tripleOverride
	}
	if tagOverride != "" {
		req.ReleaseTag = tagOverride
	}
	return req
}

// Default returns the Request used when nothing is overridden.
func Default() Request {
	return Resolve("", "")
}

// Platform returns the catalog entry matching both fields, if any.
func (r Request) Platform() (Platform, bool) {
	p, ok := Lookup(r.ReleaseTag)
	if !ok || p.Triple != r.CompilerTriple {
		return Platform{}, false
	}
	return p, true
}

// Consistent reports whether the triple and tag form a known catalog pair.
// Unknown triples paired with unknown tags are considered consistent, since
// the catalog cannot say anything about them.
func (r Request) Consistent() bool {
	byTag, tagKnown := Lookup(r.ReleaseTag)
	byTriple, tripleKnown := LookupByTriple(r.CompilerTriple)
	switch {
	case tagKnown && tripleKnown:
		return byTag.Name == byTriple.Name
	case tagKnown:
		return false
	case tripleKnown:
		return false
	default:
		return true
	}
}

// Expected describes the catalog pairing a mismatched request deviates from.
func (r Request) Expected() string {
	if p, ok := Lookup(r.ReleaseTag); ok {
		return fmt.Sprintf("tag %s expects triple %s", p.Name, p.Triple)
	}
	if p, ok := LookupByTriple(r.CompilerTriple); ok {
		return fmt.Sprintf("triple %s expects tag %s", p.Triple, p.Name)
	}
	return ""
}

func (r Request) String() string {
	return fmt.Sprintf("%s (%s)", r.ReleaseTag, r.CompilerTriple)
}
