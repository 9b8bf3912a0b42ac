package recio

import (
	"fmt"
	"io"
	"strings"
)

// readMarkup reads forward until the close tag matching the configured
// row element, treating comments, processing instructions and CDATA as
// opaque spans that do not affect tag matching. Character references
// contain no '<' so they are opaque by construction. Same-named nested
// elements are tracked so the match is the outermost close tag.
func (r *Reader) readMarkup() (string, error) {
	row := r.cfg.RowElement
	var (
		buf     strings.Builder
		depth   int
		started bool
		startLn int
	)

	for {
		line, err := r.src.ReadLine()
		if err == io.EOF {
			if !started {
				return "", io.EOF
			}
			return "", &BoundaryError{
				Line:    startLn,
				Msg:     fmt.Sprintf("unterminated <%s> element", row),
				Partial: buf.String(),
			}
		}
		if err != nil {
			return "", err
		}

		rest := line
		for rest != "" {
			lt := strings.IndexByte(rest, '<')
			if lt < 0 {
				if started {
					buf.WriteString(rest)
				}
				break
			}
			if started {
				buf.WriteString(rest[:lt])
			}
			rest = rest[lt:]

			// opaque spans: their contents never open or close the row
			if span, ok := opaqueSpan(rest, &buf, started, r.src); ok {
				rest = span
				continue
			}

			gt := strings.IndexByte(rest, '>')
			if gt < 0 {
				// tag split across physical lines: stitch and retry
				more, err := r.src.ReadLine()
				if err != nil {
					if !started {
						return "", io.EOF
					}
					return "", &BoundaryError{
						Line:    startLn,
						Msg:     fmt.Sprintf("unterminated tag inside <%s>", row),
						Partial: buf.String(),
					}
				}
				rest = rest + " " + more
				continue
			}
			tag := rest[:gt+1]

			name, isClose, selfClose := tagName(tag)
			if !started {
				if !isClose && selfClose && name == row {
					// a self-closed row is a complete record by itself
					if moreText := strings.TrimSpace(rest[gt+1:]); moreText != "" {
						r.src.PushBack(rest[gt+1:])
					}
					return tag, nil
				}
				if !isClose && !selfClose && name == row {
					started = true
					startLn = r.src.Line()
					depth = 1
					buf.WriteString(tag)
				}
				// anything before the row opener is skipped
				rest = rest[gt+1:]
				continue
			}

			buf.WriteString(tag)
			if name == row {
				switch {
				case selfClose:
					// a self-closed row nested in itself is malformed
					// but harmless to the depth count
				case isClose:
					depth--
					if depth == 0 {
						if moreText := strings.TrimSpace(rest[gt+1:]); moreText != "" {
							r.src.PushBack(rest[gt+1:])
						}
						return buf.String(), nil
					}
				default:
					depth++
				}
			}
			rest = rest[gt+1:]
		}
		if started {
			buf.WriteByte('\n')
		}
	}
}

// opaqueSpan consumes a comment, PI or CDATA section starting at rest
// (which begins with '<'). It returns the remainder of the current line
// and true when one was consumed; spans may continue onto later physical
// lines, which are read through directly.
func opaqueSpan(rest string, buf *strings.Builder, emit bool, src *Source) (string, bool) {
	var end string
	switch {
	case strings.HasPrefix(rest, "<!--"):
		end = "-->"
	case strings.HasPrefix(rest, "<![CDATA["):
		end = "]]>"
	case strings.HasPrefix(rest, "<?"):
		end = "?>"
	default:
		return "", false
	}

	for {
		if i := strings.Index(rest, end); i >= 0 {
			if emit {
				buf.WriteString(rest[:i+len(end)])
			}
			return rest[i+len(end):], true
		}
		if emit {
			buf.WriteString(rest)
			buf.WriteByte('\n')
		}
		line, err := src.ReadLine()
		if err != nil {
			// unterminated span: treat the rest of input as consumed
			return "", true
		}
		rest = line
	}
}

// tagName extracts the element name from a raw "<...>" tag and reports
// whether it is a close or self-closing tag.
func tagName(tag string) (name string, isClose, selfClose bool) {
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
