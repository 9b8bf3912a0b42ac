package detection

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/joiningdata/tabio/formats"
)

// SyntaxHit reports how strongly a sample resembled one syntax.
type SyntaxHit struct {
	// Syntax is the candidate syntax name.
	Syntax string `json:"syntax"`

	// Score is a confidence value from 0.0 - 1.0.
	Score float64 `json:"score"`

	// Options holds settings inferred from the sample (separator,
	// header presence, column widths).
	Options map[string]string `json:"options,omitempty"`
}

// DetectSyntax scores a sample of a document against every supported
// syntax and returns the candidates sorted best-first. Set incomplete
// when the sample was cut off mid-file, so that a truncated final line
// is not held against any candidate.
func DetectSyntax(data []byte, incomplete bool) []SyntaxHit {
	lines := strings.Split(string(data), "\n")
	if incomplete && len(lines) > 1 {
		lines = lines[:len(lines)-1]
	}
	var nonblank []string
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			nonblank = append(nonblank, line)
		}
	}
	if len(nonblank) == 0 {
		return nil
	}

	var hits []SyntaxHit
	add := func(syntax string, score float64, opts map[string]string) {
		if score > 0 {
			hits = append(hits, SyntaxHit{Syntax: syntax, Score: score, Options: opts})
		}
	}

	lowered := strings.ToLower(string(data))
	head := strings.TrimSpace(nonblank[0])

	if strings.HasPrefix(head, "<") {
		sniffMarkup(lowered, add)
	} else {
		sniffBrackets(head, lowered, add)
		sniffARFF(nonblank, add)
		sniffHeaderBlocks(lines, add)
		sniffDelimited(nonblank, add)
		sniffFixed(nonblank, add)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	return hits
}

func sniffMarkup(lowered string, add func(string, float64, map[string]string)) {
	xsv, xhtml := 0.3, 0.3
	if strings.Contains(lowered, "<?xml") {
		xsv += 0.2
	}
	if strings.Contains(lowered, "<xsv") || strings.Contains(lowered, "<row") {
		xsv += 0.5
	}
	if strings.Contains(lowered, "<table") || strings.Contains(lowered, "<tr") ||
		strings.Contains(lowered, "<html") {
		xhtml += 0.6
	}
	add("xsv", math.Min(xsv, 0.95), nil)
	add("xhtml", math.Min(xhtml, 0.95), nil)
}

func sniffBrackets(head, lowered string, add func(string, float64, map[string]string)) {
	arrow := strings.Contains(lowered, "=>")
	perlish := strings.HasPrefix(head, "my ") || strings.HasPrefix(head, "our ") ||
		strings.Contains(head, "= (")

	switch head[0] {
	case '(':
		if arrow || perlish {
			add("perl", 0.9, nil)
		} else {
			add("sexp", 0.85, nil)
		}
	case '{', '[':
		if arrow {
			add("perl", 0.9, nil)
		} else if strings.Contains(lowered, `":`) || head == "[" || head == "{" {
			add("json", 0.9, nil)
		} else {
			add("json", 0.5, nil)
			add("perl", 0.4, nil)
		}
	default:
		if perlish && arrow {
			add("perl", 0.9, nil)
		} else if perlish {
			add("perl", 0.6, nil)
		}
	}
}

func sniffARFF(lines []string, add func(string, float64, map[string]string)) {
	score := 0.0
	for _, line := range lines {
		l := strings.ToLower(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(l, "@relation"):
			score += 0.6
		case strings.HasPrefix(l, "@attribute"):
			score += 0.2
		case strings.HasPrefix(l, "@data"):
			score += 0.2
		}
	}
	if score > 0.95 {
		score = 0.95
	}
	add("arff", score, nil)
}

// sniffHeaderBlocks looks for mail-header style "Name: value" lines,
// distinguishing ontology frames from plain header blocks by their
// frame keywords and indentation.
func sniffHeaderBlocks(lines []string, add func(string, float64, map[string]string)) {
	colonish, indented, blanks, frames, other := 0, 0, 0, 0, 0
	for _, line := range lines {
		t := strings.TrimSpace(line)
		switch {
		case t == "":
			blanks++
		case line[0] == ' ' || line[0] == '\t':
			indented++
		case headerLine(t):
			colonish++
			kw := t[:strings.Index(t, ":")]
			if kw == "Individual" || kw == "Class" || kw == "Datatype" {
				frames++
			}
		default:
			other++
		}
	}
	if colonish == 0 || other > colonish {
		return
	}
	if frames > 0 && indented > 0 {
		add("owl", 0.9, nil)
		add("hdr", 0.5, nil)
		return
	}
	score := 0.8
	if blanks == 0 {
		// a single block could just as well be a one-record file
		score = 0.6
	}
	add("hdr", score, nil)
}

func headerLine(t string) bool {
	i := strings.IndexAny(t, ": \t")
	return i > 0 && t[i] == ':'
}

// candidate separators tried in preference order
var sepCandidates = []struct {
	sep  string
	name string
}{
	{"\t", `\t`},
	{",", ","},
	{";", ";"},
	{"|", `\|`},
}

func sniffDelimited(lines []string, add func(string, float64, map[string]string)) {
	best := 0.0
	var bestOpts map[string]string
	for _, c := range sepCandidates {
		counts := make(map[int]int)
		for _, line := range lines {
			counts[strings.Count(line, c.sep)]++
		}
		mode, modeN := 0, 0
		for n, freq := range counts {
			if freq > modeN || (freq == modeN && n > mode) {
				mode, modeN = n, freq
			}
		}
		if mode == 0 {
			continue
		}
		score := 0.8 * float64(modeN) / float64(len(lines))
		if score > best {
			best = score
			bestOpts = map[string]string{formats.OptSeparator: c.name}
			if headerGuess(lines, c.sep) {
				bestOpts[formats.OptHeader] = "true"
			}
		}
	}
	if best == 0 {
		// single-column fallback
		best, bestOpts = 0.1, nil
	}
	add("delim", best, bestOpts)
}

// headerGuess is true when the first line has no numeric cells but a
// later line does.
func headerGuess(lines []string, sep string) bool {
	numericCell := func(line string) bool {
		for _, cell := range strings.Split(line, sep) {
			if _, err := strconv.ParseFloat(strings.TrimSpace(cell), 64); err == nil {
				return true
			}
		}
		return false
	}
	if numericCell(lines[0]) {
		return false
	}
	for _, line := range lines[1:] {
		if numericCell(line) {
			return true
		}
	}
	return false
}

// sniffFixed checks whether the lines share interior space columns, the
// signature of fixed-width alignment.
func sniffFixed(lines []string, add func(string, float64, map[string]string)) {
	if len(lines) < 2 {
		return
	}
	width := len(lines[0])
	for _, line := range lines {
		if len(line) < width {
			width = len(line)
		}
	}
	if width < 4 {
		return
	}

	common := make([]bool, width)
	for i := range common {
		common[i] = true
	}
	for _, line := range lines {
		for i := 0; i < width; i++ {
			if line[i] != ' ' {
				common[i] = false
			}
		}
	}

	// column breaks at the last space of each shared gap
	var widths []string
	prev := 0
	for i := 1; i < width; i++ {
		if common[i] && (i+1 >= width || !common[i+1]) {
			widths = append(widths, strconv.Itoa(i+1-prev))
			prev = i + 1
		}
	}
	if len(widths) == 0 {
		return
	}
	if prev < width {
		// the final column takes the line remainder anyway
		widths = append(widths, strconv.Itoa(width-prev))
	}
	add("fixed", 0.6, map[string]string{
		formats.OptWidths:          strings.Join(widths, ","),
		formats.OptStripWhitespace: "both",
	})
}
