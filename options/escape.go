package options

import (
	"fmt"
	"strconv"
	"strings"
)

// mnemonic escapes recognized after the escape character.
var mnemonics = map[byte]rune{
	'a':  '\a',
	'b':  '\b',
	'e':  '\x1b',
	'f':  '\f',
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
	'0':  0,
	'\\': '\\',
}

// Expand interprets backslash escape sequences in s: the mnemonics
// \a \b \e \f \n \r \t \0 \\, three-digit octal, \xFF, \uFFFF,
// \UFFFFFFFF and \x{F...} hexadecimal forms. A malformed numeric escape
// is an error; a backslash before any other character passes that
// character through unchanged.
func Expand(s string) (string, error) {
	if !strings.ContainsRune(s, '\\') {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			i++
			continue
		}
		r, n, err := decodeEscape(s[i+1:])
		if err != nil {
			return "", err
		}
		b.WriteRune(r)
		i += 1 + n
	}
	return b.String(), nil
}

// Unescape interprets the same escape forms as Expand but with an
// arbitrary escape character, and degrades instead of failing: a
// malformed sequence passes through its characters untouched. It is used
// for per-field unescaping, where one bad field must not abort a record.
func Unescape(s string, esc rune) string {
	if esc == 0 || !strings.ContainsRune(s, esc) {
		return s
	}
	escLen := len(string(esc))
	var b strings.Builder
	for i := 0; i < len(s); {
		if !strings.HasPrefix(s[i:], string(esc)) || i+escLen == len(s) {
			b.WriteByte(s[i])
			i++
			continue
		}
		r, n, err := decodeEscape(s[i+escLen:])
		if err != nil {
			b.WriteByte(s[i])
			i++
			continue
		}
		b.WriteRune(r)
		i += escLen + n
	}
	return b.String()
}

// decodeEscape interprets the text after an escape character and returns
// the decoded rune plus how many input bytes it consumed.
func decodeEscape(s string) (rune, int, error) {
	c := s[0]
	// three octal digits win over the '\0' mnemonic, so that \012 is a
	// newline rather than NUL followed by "12"
	if isOctal(c) && len(s) >= 3 && isOctal(s[1]) && isOctal(s[2]) {
		n, err := strconv.ParseUint(s[:3], 8, 32)
		if err != nil {
			return 0, 0, fmt.Errorf("bad octal escape %q", s[:3])
		}
		return rune(n), 3, nil
	}
	if r, ok := mnemonics[c]; ok {
		return r, 1, nil
	}
	switch c {
	case 'x':
		if len(s) > 1 && s[1] == '{' {
			end := strings.IndexByte(s, '}')
			if end < 0 {
				return 0, 0, fmt.Errorf("unterminated \\x{...} escape")
			}
			return decodeHex(s[2:end], end+1)
		}
		return decodeHexN(s[1:], 2)
	case 'u':
		return decodeHexN(s[1:], 4)
	case 'U':
		return decodeHexN(s[1:], 8)
	}
	// unknown escape: pass the character through
	return rune(c), 1, nil
}

func isOctal(c byte) bool { return c >= '0' && c <= '7' }

func decodeHexN(s string, digits int) (rune, int, error) {
	if len(s) < digits {
		return 0, 0, fmt.Errorf("truncated hex escape %q", s)
	}
	return decodeHex(s[:digits], 1+digits)
}

func decodeHex(digits string, consumed int) (rune, int, error) {
	n, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("bad hex escape %q", digits)
	}
	return rune(n), consumed, nil
}
