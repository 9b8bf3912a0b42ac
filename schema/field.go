package schema

import "strings"

// Alignment controls how a field value is padded when assembled into
// fixed-width columns.
type Alignment int

// Supported column alignments.
const (
	AlignNone Alignment = iota
	AlignLeft
	AlignRight
	AlignCenter
)

// Repetition describes how many values a declared field may carry.
type Repetition int

// Supported field repetitions (XSV declaration suffixes).
const (
	// One is a required singleton value ("!").
	One Repetition = iota
	// ZeroOrOne is an optional singleton value ("?").
	ZeroOrOne
	// ZeroOrMore is an optional repeated value ("*").
	ZeroOrMore
	// OneOrMore is a required repeated value ("+").
	OneOrMore
)

func (r Repetition) String() string {
	switch r {
	case ZeroOrOne:
		return "?"
	case ZeroOrMore:
		return "*"
	case OneOrMore:
		return "+"
	}
	return "!"
}

// Repeated reports whether the field may carry more than one value.
func (r Repetition) Repeated() bool {
	return r == ZeroOrMore || r == OneOrMore
}

// Required reports whether the field must carry at least one value.
func (r Repetition) Required() bool {
	return r == One || r == OneOrMore
}

// FieldDef describes one declared column of a table.
type FieldDef struct {
	// Name of the field, unique within its Schema and immutable once
	// assigned (except through Schema.Rename).
	Name string

	// Ordinal is the 1-based position of the field. Position 0 is
	// reserved and always empty in array-shaped records.
	Ordinal int

	// Type validates values of this field. A nil Type means untyped:
	// any text is accepted.
	Type *Type

	// Default is applied when a record omits the field entirely.
	Default string

	// Repetition constrains how many values the field carries.
	Repetition Repetition

	// Width is the fixed column width for column-oriented output.
	// Zero means unconstrained.
	Width int

	// Align controls padding within Width.
	Align Alignment

	// Split, when non-empty, is the delimiter used to encode a list of
	// values as one field (and to split it back apart on input).
	Split string

	// BaseURI, when non-empty, is prefixed onto every non-empty value of
	// this field on input. It is a factoring convenience, not a
	// validation rule.
	BaseURI string

	// synthetic marks a field auto-created from data rather than
	// declared by a header.
	synthetic bool
}

// Synthetic reports whether the field was auto-created (named F_1, F_2, …)
// rather than declared by a header or an explicit Append.
func (f *FieldDef) Synthetic() bool {
	return f.synthetic
}

// SplitValue splits a raw field value into its list of values using the
// field's Split delimiter. A field without a delimiter yields a single
// element.
func (f *FieldDef) SplitValue(raw string) []string {
	if f.Split == "" || raw == "" {
		return []string{raw}
	}
	return strings.Split(raw, f.Split)
}

// JoinValue encodes a list of values as one raw field value.
func (f *FieldDef) JoinValue(values []string) string {
	if f.Split == "" && len(values) > 0 {
		return values[0]
	}
	return strings.Join(values, f.Split)
}
