// Package formats implements the tabular-format engine: one record/field
// data model fed by a closed set of interchangeable syntax strategies.
// The goal of this package is to support iteration of records (containing fields) within any supported syntax:
//
//	+----------------------------+
//	| Data Set                   |
//	| +------------------------+ |
//	| | Record 1               | |
//	| | Field 1 | Field 2| ... | |
//	| +------------------------+ |
//	| +------------------------+ |
//	| | Record 2               | |
//	| | Field 1 | Field 2| ... | |
//	| +------------------------+ |
//	| +------------------------+ |
//	| | Record 3               | |
//	| | Field 1 | Field 2| ... | |
//	| +------------------------+ |
//	+----------------------------+
//
// Logical records may span several physical lines (quoted newlines,
// bracket-balanced expressions, continuation blocks, markup rows); the
// recio package guarantees each strategy always sees one complete,
// syntactically balanced unit. Converting between any two syntaxes is
// "read strategy A, write strategy B": every reader normalizes to the
// same Record stream and every writer assembles from it.
package formats
