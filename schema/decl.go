package schema

import (
	"errors"
	"fmt"
	"strings"
)

// DeclMarker is the reserved character that starts a field declaration in
// an XSV schema attribute. An attribute value that does not start with it
// is a plain default value with no type constraint.
const DeclMarker = '#'

// ErrBadDecl indicates a malformed field declaration string.
var ErrBadDecl = errors.New("tabio/schema: malformed field declaration")

// ParseDecl interprets an XSV field declaration of the form
//
//	#typename(arg)repetition#default
//
// and applies it to the field definition. The type name and the "(arg)",
// repetition, and "#default" parts are each optional. The special type
// name "baseuri" does not constrain values: its argument is a fixed
// string prefixed onto every non-empty value of the field.
//
// A value that does not begin with DeclMarker is taken verbatim as the
// field's default value.
func ParseDecl(f *FieldDef, value string) error {
	if value == "" || value[0] != DeclMarker {
		f.Default = value
		return nil
	}
	spec := value[1:]

	// trailing "#default" part; the default itself may not contain '#'
	if i := strings.LastIndexByte(spec, DeclMarker); i >= 0 {
		f.Default = spec[i+1:]
		spec = spec[:i]
	}

	// trailing repetition flag
	if n := len(spec); n > 0 {
		switch spec[n-1] {
		case '!':
			f.Repetition = One
			spec = spec[:n-1]
		case '?':
			f.Repetition = ZeroOrOne
			spec = spec[:n-1]
		case '*':
			f.Repetition = ZeroOrMore
			spec = spec[:n-1]
		case '+':
			f.Repetition = OneOrMore
			spec = spec[:n-1]
		}
	}

	if spec == "" {
		return nil
	}

	name, arg := spec, ""
	if i := strings.IndexByte(spec, '('); i >= 0 {
		if !strings.HasSuffix(spec, ")") {
			return fmt.Errorf("%w: unbalanced argument in %q", ErrBadDecl, value)
		}
		name, arg = spec[:i], spec[i+1:len(spec)-1]
	}

	switch name {
	case "baseuri":
		if arg == "" {
			return fmt.Errorf("%w: baseuri needs a prefix argument in %q", ErrBadDecl, value)
		}
		f.BaseURI = arg
		return nil
	case "enum":
		if arg == "" {
			return fmt.Errorf("%w: enum needs members in %q", ErrBadDecl, value)
		}
		f.Type = EnumType(strings.Split(arg, "|")...)
		return nil
	case "regex":
		t, err := RegexType(arg)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBadDecl, err)
		}
		f.Type = t
		return nil
	}

	t, ok := LookupType(name)
	if !ok {
		return fmt.Errorf("%w: %q in %q", ErrUnknownType, name, value)
	}
	if arg != "" {
		return fmt.Errorf("%w: type %q takes no argument", ErrBadDecl, name)
	}
	f.Type = t
	return nil
}

// ApplyPrefix applies the field's base-URI factoring to one value.
func (f *FieldDef) ApplyPrefix(value string) string {
	if f.BaseURI == "" || value == "" {
		return value
	}
	return f.BaseURI + value
}

// TrimPrefix undoes base-URI factoring on output when the value still
// carries the prefix.
func (f *FieldDef) TrimPrefix(value string) string {
	if f.BaseURI == "" {
		return value
	}
	return strings.TrimPrefix(value, f.BaseURI)
}
