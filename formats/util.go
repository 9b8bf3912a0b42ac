package formats

import (
	"strings"

	"github.com/joiningdata/tabio/options"
)

// stripValue applies the whitespace disposition option to one parsed
// field value.
func stripValue(o *options.Store, s string) string {
	switch o.Get(OptStripWhitespace) {
	case "leading":
		return strings.TrimLeft(s, " \t")
	case "trailing":
		return strings.TrimRight(s, " \t")
	case "both":
		return strings.TrimSpace(s)
	}
	return s
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// xmlEscape escapes markup-significant characters for element content
// and attribute values.
func xmlEscape(s string) string {
	return xmlEscaper.Replace(s)
}

// xmlUnescape resolves the predefined entities and numeric character
// references. Unknown references pass through untouched.
func xmlUnescape(s string) string {
	if !strings.ContainsRune(s, '&') {
		return s
	}
	var b strings.Builder
	for {
		i := strings.IndexByte(s, '&')
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:i])
		s = s[i:]
		end := strings.IndexByte(s, ';')
		if end < 0 {
			b.WriteString(s)
			return b.String()
		}
		ref := s[1:end]
		switch {
		case ref == "amp":
			b.WriteByte('&')
		case ref == "lt":
			b.WriteByte('<')
		case ref == "gt":
			b.WriteByte('>')
		case ref == "quot":
			b.WriteByte('"')
		case ref == "apos":
			b.WriteByte('\'')
		case strings.HasPrefix(ref, "#"):
			if r, ok := charRef(ref[1:]); ok {
				b.WriteRune(r)
			} else {
				b.WriteString(s[:end+1])
			}
		default:
			b.WriteString(s[:end+1])
		}
		s = s[end+1:]
	}
}

func charRef(num string) (rune, bool) {
	base := 10
	if strings.HasPrefix(num, "x") || strings.HasPrefix(num, "X") {
		base = 16
		num = num[1:]
	}
	var n rune
	for _, c := range num {
		var d rune
		switch {
		case c >= '0' && c <= '9':
			d = c - '0'
		case base == 16 && c >= 'a' && c <= 'f':
			d = c - 'a' + 10
		case base == 16 && c >= 'A' && c <= 'F':
			d = c - 'A' + 10
		default:
			return 0, false
		}
		n = n*rune(base) + d
	}
	if num == "" || n > 0x10FFFF {
		return 0, false
	}
	return n, true
}

// splitTag extracts the element name from one raw "<...>" tag and
// reports whether it closes or self-closes.
func splitTag(tag string) (name string, isClose, selfClose bool) {
	inner := strings.TrimSuffix(strings.TrimPrefix(tag, "<"), ">")
	inner = strings.TrimSpace(inner)
	if strings.HasPrefix(inner, "/") {
		isClose = true
		inner = strings.TrimSpace(inner[1:])
	} else if strings.HasSuffix(inner, "/") {
		selfClose = true
		inner = strings.TrimSpace(inner[:len(inner)-1])
	}
	if i := strings.IndexAny(inner, " \t"); i >= 0 {
		inner = inner[:i]
	}
	return strings.ToLower(inner), isClose, selfClose
}

// attrs parses the attributes of one raw "<name a="1" b='2'>" tag into
// ordered name/value pairs. It is intentionally small: the constrained
// XML dialects this package reads guarantee quoted values.
func parseTagAttrs(tag string) (name string, attrs [][2]string) {
	inner := strings.TrimSuffix(strings.TrimPrefix(tag, "<"), ">")
	inner = strings.TrimSuffix(inner, "/")
	inner = strings.TrimSpace(inner)
	i := strings.IndexAny(inner, " \t")
	if i < 0 {
		return strings.ToLower(inner), nil
	}
	name = strings.ToLower(inner[:i])
	rest := strings.TrimSpace(inner[i:])

	for rest != "" {
		eq := strings.IndexByte(rest, '=')
		if eq < 0 {
			break
		}
		aname := strings.TrimSpace(rest[:eq])
		rest = strings.TrimSpace(rest[eq+1:])
		if rest == "" {
			break
		}
		q := rest[0]
		if q != '"' && q != '\'' {
			break
		}
		vend := strings.IndexByte(rest[1:], q)
		if vend < 0 {
			attrs = append(attrs, [2]string{aname, xmlUnescape(rest[1:])})
			break
		}
		attrs = append(attrs, [2]string{aname, xmlUnescape(rest[1 : vend+1])})
		rest = strings.TrimSpace(rest[vend+2:])
	}
	return name, attrs
}
