// Package importer converts bank statement exports into transaction
// candidates for reconciliation. Each supported export format is a
// Parser registered under its format name.
package importer

import (
	"io"
	"sort"
	"strings"

	"github.com/eris-dev/eris/internal/model"
)

// Parser converts a bank statement export into transaction candidates.
type Parser interface {
	Parse(r io.Reader) ([]model.BankTransaction, error)
	Format() string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// Formats returns the registered format names.
func (r *Registry) Formats() []string {
	formats := make([]string, 0, len(r.parsers))
	for key := range r.parsers {
		formats = append(formats, key)
	}
	sort.Strings(formats)
	return formats
}

// DefaultRegistry returns a registry with all built-in parsers, decoding
// with the given charset (IANA name; empty = ISO 8859-1).
func DefaultRegistry(encoding string) *Registry {
	r := NewRegistry()
	r.Register(&DeutscheBankParser{Encoding: encoding})
	return r
}
