package schema

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrUnknownType indicates a type name outside the closed registry.
	ErrUnknownType = errors.New("tabio/schema: unknown datatype")

	// ErrBadValue indicates a value that fails its declared type's grammar.
	// Callers still receive the offending value; validation never withholds it.
	ErrBadValue = errors.New("tabio/schema: value does not match datatype")
)

// Type is one entry of the closed datatype registry. Types validate field
// values declared through a header; they never affect parsing of the
// surrounding syntax.
type Type struct {
	// Name of the type as it appears in declarations.
	Name string

	check func(string) error
}

// Validate reports whether the value matches the type's grammar.
// The returned error wraps ErrBadValue.
func (t *Type) Validate(value string) error {
	if t == nil || t.check == nil {
		return nil
	}
	return t.check(value)
}

func (t *Type) String() string {
	if t == nil {
		return "untyped"
	}
	return t.Name
}

func badValue(typename, value string) error {
	return fmt.Errorf("%w: %q is not a valid %s", ErrBadValue, value, typename)
}

// recognized boolean tokens, shared with the options package grammar
var (
	trueTokens  = map[string]bool{"1": true, "t": true, "true": true, "y": true, "yes": true, "on": true}
	falseTokens = map[string]bool{"0": true, "f": true, "false": true, "n": true, "no": true, "off": true}
)

// ParseBool maps a recognized boolean token to its value.
func ParseBool(s string) (val, ok bool) {
	s = strings.ToLower(s)
	if trueTokens[s] {
		return true, true
	}
	if falseTokens[s] {
		return false, true
	}
	return false, false
}

func boolCheck(s string) error {
	if _, ok := ParseBool(s); !ok {
		return badValue("boolean", s)
	}
	return nil
}

func intCheck(name string, bits int) func(string) error {
	return func(s string) error {
		if _, err := strconv.ParseInt(s, 10, bits); err != nil {
			return badValue(name, s)
		}
		return nil
	}
}

func uintCheck(name string, bits int) func(string) error {
	return func(s string) error {
		if _, err := strconv.ParseUint(s, 10, bits); err != nil {
			return badValue(name, s)
		}
		return nil
	}
}

func floatCheck(s string) error {
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return badValue("real", s)
	}
	return nil
}

func timeCheck(name string, layouts ...string) func(string) error {
	return func(s string) error {
		for _, layout := range layouts {
			if _, err := time.Parse(layout, s); err == nil {
				return nil
			}
		}
		return badValue(name, s)
	}
}

func durationCheck(s string) error {
	if _, err := time.ParseDuration(s); err != nil {
		return badValue("duration", s)
	}
	return nil
}

func uriCheck(s string) error {
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		return badValue("uri", s)
	}
	return nil
}

var (
	identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	refPattern   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.:-]*$`)
)

func patternCheck(name string, re *regexp.Regexp) func(string) error {
	return func(s string) error {
		if !re.MatchString(s) {
			return badValue(name, s)
		}
		return nil
	}
}

// registry is the closed set of named datatypes. It is populated once at
// init and never mutated afterwards; parameterized types (enum, regex,
// baseuri) are constructed per declaration instead.
var registry = map[string]*Type{}

func register(name string, check func(string) error) {
	registry[name] = &Type{Name: name, check: check}
}

func init() {
	register("boolean", boolCheck)
	register("int8", intCheck("int8", 8))
	register("int16", intCheck("int16", 16))
	register("int32", intCheck("int32", 32))
	register("int64", intCheck("int64", 64))
	register("uint8", uintCheck("uint8", 8))
	register("uint16", uintCheck("uint16", 16))
	register("uint32", uintCheck("uint32", 32))
	register("uint64", uintCheck("uint64", 64))
	register("real", floatCheck)
	register("date", timeCheck("date", "2006-01-02"))
	register("time", timeCheck("time", "15:04:05", "15:04"))
	register("datetime", timeCheck("datetime", time.RFC3339, "2006-01-02 15:04:05"))
	register("duration", durationCheck)
	register("string", func(string) error { return nil })
	register("token", patternCheck("token", identPattern))
	register("ref", patternCheck("ref", refPattern))
	register("uri", uriCheck)
}

// LookupType returns the registered datatype with the given name.
func LookupType(name string) (*Type, bool) {
	t, ok := registry[name]
	return t, ok
}

// EnumType constructs an enumeration over the given member tokens.
func EnumType(members ...string) *Type {
	allow := make(map[string]bool, len(members))
	for _, m := range members {
		allow[m] = true
	}
	name := "enum(" + strings.Join(members, "|") + ")"
	return &Type{
		Name: name,
		check: func(s string) error {
			if !allow[s] {
				return badValue(name, s)
			}
			return nil
		},
	}
}

// RegexType constructs a constrained-pattern type from expr. The pattern is
// anchored at both ends.
func RegexType(expr string) (*Type, error) {
	re, err := regexp.Compile("^(?:" + expr + ")$")
	if err != nil {
		return nil, fmt.Errorf("%w: bad pattern %q: %v", ErrUnknownType, expr, err)
	}
	return &Type{Name: "regex(" + expr + ")", check: patternCheck("regex("+expr+")", re)}, nil
}
