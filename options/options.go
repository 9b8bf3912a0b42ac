// Package options implements the typed key/value store that configures one
// tabular engine instance. Every option is declared up front with a kind
// and a default; Set rejects values outside the kind's grammar and leaves
// the prior value in place, so a store is never observed holding an
// ill-typed value.
package options

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	// ErrUnknownOption indicates a Set or Get of an undeclared name.
	ErrUnknownOption = errors.New("tabio/options: unknown option")

	// ErrBadOptionValue indicates a value that fails its option's grammar.
	ErrBadOptionValue = errors.New("tabio/options: value does not match option type")
)

// Kind is the declared type of an option value.
type Kind int

// Supported option kinds.
const (
	// String accepts any text; escape sequences are expanded at Set time.
	String Kind = iota
	// Bool accepts the recognized true/false tokens (1/0, t/f, yes/no,
	// on/off, true/false, any case).
	Bool
	// Int accepts decimal integers.
	Int
	// Char accepts exactly one character after escape expansion, or the
	// empty string meaning "unset".
	Char
	// Enum accepts one of the member tokens declared with the option
	// (the "disposition" grammar: keep, delete, replace, unify, …).
	Enum
)

func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Char:
		return "char"
	case Enum:
		return "enum"
	}
	return "string"
}

// Option is one declared entry of a Store.
type Option struct {
	Name    string
	Kind    Kind
	Default string

	// Members lists the allowed tokens for an Enum option.
	Members []string
}

func (o *Option) allows(value string) bool {
	switch o.Kind {
	case Bool:
		_, ok := parseBool(value)
		return ok
	case Int:
		_, err := strconv.Atoi(value)
		return err == nil
	case Char:
		return value == "" || utf8.RuneCountInString(value) == 1
	case Enum:
		for _, m := range o.Members {
			if value == m {
				return true
			}
		}
		return false
	}
	return true
}

var (
	trueTokens  = map[string]bool{"1": true, "t": true, "true": true, "y": true, "yes": true, "on": true}
	falseTokens = map[string]bool{"0": true, "f": true, "false": true, "n": true, "no": true, "off": true}
)

func parseBool(s string) (val, ok bool) {
	s = strings.ToLower(s)
	if trueTokens[s] {
		return true, true
	}
	if falseTokens[s] {
		return false, true
	}
	return false, false
}

// Store holds the typed options of one engine instance.
// It is not safe for concurrent use.
type Store struct {
	defs   map[string]*Option
	values map[string]string
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		defs:   make(map[string]*Option),
		values: make(map[string]string),
	}
}

// Define declares an option at setup time. Redefining a name replaces the
// declaration and resets its value to the new default. The default is not
// escape-expanded and is not checked against the grammar; it is the
// caller's contract.
func (s *Store) Define(name string, kind Kind, def string, members ...string) *Option {
	o := &Option{Name: name, Kind: kind, Default: def, Members: members}
	s.defs[name] = o
	delete(s.values, name)
	return o
}

// Lookup returns the declaration for name.
func (s *Store) Lookup(name string) (*Option, bool) {
	o, ok := s.defs[name]
	return o, ok
}

// Names returns every declared option name, sorted.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.defs))
	for n := range s.defs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Set assigns a value to a declared option. Escape sequences in the value
// are expanded first (so a separator may be supplied as `\t`). An unknown
// name or a value outside the option's grammar is rejected with an error
// and the store is left unchanged.
func (s *Store) Set(name, value string) error {
	o, ok := s.defs[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownOption, name)
	}
	expanded, err := Expand(value)
	if err != nil {
		return fmt.Errorf("%w: option %q: %v", ErrBadOptionValue, name, err)
	}
	if !o.allows(expanded) {
		return fmt.Errorf("%w: option %q (%s) rejects %q", ErrBadOptionValue, name, o.Kind, value)
	}
	s.values[name] = expanded
	return nil
}

// Get returns the current value of a declared option, or its default if
// it was never set. Getting an unknown name returns the empty string.
func (s *Store) Get(name string) string {
	if v, ok := s.values[name]; ok {
		return v
	}
	if o, ok := s.defs[name]; ok {
		return o.Default
	}
	return ""
}

// GetBool returns a Bool option's value. Unset and unknown names are false
// unless the declared default says otherwise.
func (s *Store) GetBool(name string) bool {
	v, _ := parseBool(s.Get(name))
	return v
}

// GetInt returns an Int option's value, or 0.
func (s *Store) GetInt(name string) int {
	n, _ := strconv.Atoi(s.Get(name))
	return n
}

// GetChar returns a Char option's value as a rune, or 0 when unset.
func (s *Store) GetChar(name string) rune {
	v := s.Get(name)
	if v == "" {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(v)
	return r
}

// Clone returns an independent copy of the store, declarations included.
func (s *Store) Clone() *Store {
	c := New()
	for n, o := range s.defs {
		dup := *o
		c.defs[n] = &dup
	}
	for n, v := range s.values {
		c.values[n] = v
	}
	return c
}
