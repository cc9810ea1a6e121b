// Package retrier provides the conditional retry controller
package retrier

import (
	"fmt"
	"regexp"
	"strings"
)

// Signature is one named failure pattern. A log line matching the
// pattern classifies the attempt's failure as recoverable.
type Signature struct {
	// Name identifies the pattern in diagnostics
	Name string

	// Pattern is the compiled regular expression
	Pattern *regexp.Regexp
}

// SignatureSet is an ordered collection of failure signatures. Order is
// kept for deterministic diagnostics; matching itself is order-independent.
type SignatureSet struct {
	sigs  []Signature
	index map[string]int
}

// NewSignatureSet creates an empty signature set
func NewSignatureSet() *SignatureSet {
	return &SignatureSet{index: make(map[string]int)}
}

// Add inserts a signature, replacing an existing one with the same name
// in place so that the original position is kept.
func (s *SignatureSet) Add(name string, pattern *regexp.Regexp) {
	if i, ok := s.index[name]; ok {
		s.sigs[i].Pattern = pattern
		return
	}
	s.index[name] = len(s.sigs)
	s.sigs = append(s.sigs, Signature{Name: name, Pattern: pattern})
}

// AddString compiles and inserts a signature
func (s *SignatureSet) AddString(name, pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("signature %q: %w", name, err)
	}
	s.Add(name, re)
	return nil
}

// Merge applies every signature of other on top of s: same-name entries
// are overridden in place, new names are appended (union semantics).
func (s *SignatureSet) Merge(other *SignatureSet) {
	if other == nil {
		return
	}
	for _, sig := range other.sigs {
		s.Add(sig.Name, sig.Pattern)
	}
}

// Names returns the signature names in insertion order
func (s *SignatureSet) Names() []string {
	names := make([]string, len(s.sigs))
	for i, sig := range s.sigs {
		names[i] = sig.Name
	}
	return names
}

// Len returns the number of signatures
func (s *SignatureSet) Len() int {
	return len(s.sigs)
}

// MatchLine tests a single log line against every signature and returns
// the name of the first matching one. Matching is per line, never
// against the whole log text, so multi-line content cannot change the
// semantics of anchored patterns.
func (s *SignatureSet) MatchLine(line string) (string, bool) {
	for _, sig := range s.sigs {
		if sig.Pattern.MatchString(line) {
			return sig.Name, true
		}
	}
	return "", false
}

// MatchAny scans text line by line and reports the first signature that
// matches any line.
func (s *SignatureSet) MatchAny(text string) (string, bool) {
	if s.Len() == 0 {
		return "", false
	}
	for _, line := range strings.Split(text, "\n") {
		if name, ok := s.MatchLine(line); ok {
			return name, true
		}
	}
	return "", false
}

// Alternation returns the OR-combination of all patterns as one
// expression, built in insertion order.
func (s *SignatureSet) Alternation() string {
	parts := make([]string, len(s.sigs))
	for i, sig := range s.sigs {
		parts[i] = "(?:" + sig.Pattern.String() + ")"
	}
	return strings.Join(parts, "|")
}

// builtinSignatures are the known recoverable infrastructure failures,
// mostly agent channel loss and resource exhaustion.
var builtinSignatures = []struct{ name, pattern string }{
	{"connection-reset", `^.*:? Connection reset$`},
	{"timeout", `.*Error: timeout of .* exceeded.*`},
	{"jnlp-client-disconnected-1", `^.*Caused: java.io.IOException: Backing channel 'JNLP4-connect connection from .*' is disconnected.$`},
	{"jnlp-client-disconnected-2", `^.*Remote call on JNLP4-connect connection from .* failed. The channel is closing down or has closed down$`},
	{"jnlp-client-disconnected-3", `java.nio.channels.ClosedChannelException`},
	{"jnlp-client-disconnected-4", `hudson.AbortException: missing workspace`},
	{"jnlp-request-aborted-1", `.*Caused: java.io.IOException: remote file operation failed.*JNLP4-connect connection from.*`},
	{"jnlp-request-aborted-2", `.*Caused: hudson.remoting.RequestAbortedException.*`},
	{"java-oom", `.*java.lang.OutOfMemoryError.*`},
	{"git-clone-failure", `^.*ERROR: Error cloning remote repo 'origin'$`},
}

// DefaultSignatures returns the built-in failure signature set
func DefaultSignatures() *SignatureSet {
	set := NewSignatureSet()
	for _, b := range builtinSignatures {
		set.Add(b.name, regexp.MustCompile(b.pattern))
	}
	return set
}
