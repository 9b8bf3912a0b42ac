package detection

import (
	"regexp"
	"strconv"
	"time"

	"github.com/joiningdata/tabio/schema"
)

// prefixed identifiers look like "GO:0005737" or "rs:12345"
var pfxint = regexp.MustCompile("^[A-Za-z]+:[0-9]+$")

// DetectFieldType examines sampled values of one column and returns the
// name of the narrowest registered datatype that fits at least half of
// them, or "" when the values are free text. Empty values are not
// counted against any candidate.
func DetectFieldType(sample []string) string {
	nBooleans := 0
	nIntegers := 0
	nFloats := 0
	nPrefixed := 0
	nDates := 0
	n := 0

	for _, s := range sample {
		if s == "" {
			continue
		}
		n++
		if _, ok := schema.ParseBool(s); ok {
			nBooleans++
		}
		if _, err := time.Parse("2006-01-02", s); err == nil {
			nDates++
			continue
		}
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			nIntegers++
			nFloats++
			continue
		}
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			nFloats++
			continue
		}
		if pfxint.MatchString(s) {
			nPrefixed++
		}
	}
	if n == 0 {
		return ""
	}

	switch {
	case nBooleans == n:
		return "boolean"
	case nDates > n/2:
		return "date"
	case nFloats > nIntegers && nFloats > nPrefixed && nFloats > n/2:
		return "real"
	case nIntegers > nPrefixed && nIntegers > n/2:
		return "int64"
	case nPrefixed >= (n+1)/2:
		return "ref"
	}
	return ""
}
