package recio

import (
	"io"
	"strings"
)

func closer(open rune) rune {
	switch open {
	case '(':
		return ')'
	case '[':
		return ']'
	case '{':
		return '}'
	}
	return 0
}

func isOpener(c rune) bool { return c == '(' || c == '[' || c == '{' }
func isCloser(c rune) bool { return c == ')' || c == ']' || c == '}' }

// readBracketBalanced accumulates text until nesting across the three
// bracket families returns to zero after having gone positive. Characters
// inside a quoted span never affect nesting, a comment prefix outside any
// quote or bracket kills the rest of its physical line, and whatever
// follows the closing bracket on the same line is pushed back unread.
func (r *Reader) readBracketBalanced() (string, error) {
	var (
		buf     strings.Builder
		stack   []rune
		opened  bool
		inQuote bool
		escaped bool
		started bool // saw any non-space text
		startLn int
	)

	for {
		line, err := r.src.ReadLine()
		if err == io.EOF {
			if !started {
				return "", io.EOF
			}
			msg := "unterminated expression"
			if inQuote {
				msg = "unterminated quote inside expression"
			}
			return "", &BoundaryError{Line: startLn, Msg: msg, Partial: buf.String()}
		}
		if err != nil {
			return "", err
		}

		runes := []rune(line)
		for i := 0; i < len(runes); i++ {
			c := runes[i]

			if inQuote {
				buf.WriteRune(c)
				switch {
				case escaped:
					escaped = false
				case r.cfg.Escape != 0 && c == r.cfg.Escape:
					escaped = true
				case c == r.cfg.Quote:
					inQuote = false
				}
				continue
			}

			if r.cfg.CommentPrefix != "" && strings.HasPrefix(string(runes[i:]), r.cfg.CommentPrefix) {
				break // rest of the physical line is comment
			}

			if !started {
				if isSpaceRune(c) {
					continue
				}
				started = true
				startLn = r.src.Line()
			}

			switch {
			case r.cfg.Quote != 0 && c == r.cfg.Quote:
				inQuote = true
				buf.WriteRune(c)
			case isOpener(c):
				stack = append(stack, closer(c))
				opened = true
				buf.WriteRune(c)
			case isCloser(c):
				if len(stack) > 0 && stack[len(stack)-1] == c {
					stack = stack[:len(stack)-1]
				}
				buf.WriteRune(c)
				if opened && len(stack) == 0 {
					// the record ends here; hand back the remainder
					if rest := strings.TrimLeft(string(runes[i+1:]), " \t"); rest != "" {
						r.src.PushBack(rest)
					}
					return buf.String(), nil
				}
			default:
				buf.WriteRune(c)
			}
		}

		// a complete non-bracketed line (an atom) is a record of its own
		if started && !opened && !inQuote {
			return buf.String(), nil
		}
		if started {
			buf.WriteRune('\n')
		}
	}
}

func isSpaceRune(c rune) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
