package translator

import (
	"regexp"
	"strings"

	"github.com/paiml/rosetta-ruchy-sub000/internal/domain"
	"github.com/paiml/rosetta-ruchy-sub000/internal/util"
	apperrors "github.com/paiml/rosetta-ruchy-sub000/pkg/errors"
)

// blockSink receives the block structure of a unit.
type blockSink interface {
	open(header string, line int)
	statement(text string, line int)
	close(line int)
}

// scanBraces splits brace-delimited code on '{', '}', ';' and on newlines
// outside parentheses. A line followed by a line starting with '{' joins it
// so that Allman-style headers stay intact. Inside a bare control header
// such as Go's `for i := 0; i < n; i++ {` a ';' does not split.
func scanBraces(lines []sourceLine, syn domain.Syntax, sink blockSink) {
	joinNext := make([]bool, len(lines))
	next := -1
	for i := len(lines) - 1; i >= 0; i-- {
		if next >= 0 {
			joinNext[i] = strings.HasPrefix(strings.TrimSpace(lines[next].Code), "{")
		}
		if !lines[i].blank() {
			next = i
		}
	}

	var (
		seg      strings.Builder
		segLine  int
		depth    int
		depthFor []int
	)
	flush := func() {
		text := strings.TrimSpace(seg.String())
		if text != "" {
			sink.statement(text, segLine)
		}
		seg.Reset()
		segLine = 0
	}
	write := func(ch byte, line int) {
		if segLine == 0 && ch != ' ' && ch != '\t' {
			segLine = line
		}
		seg.WriteByte(ch)
	}

	for idx, l := range lines {
		for i := 0; i < len(l.Code); i++ {
			ch := l.Code[i]
			if !l.Live[i] {
				write(ch, l.Number)
				continue
			}
			switch ch {
			case '(', '[':
				depth++
				write(ch, l.Number)
			case ')', ']':
				if depth > 0 {
					depth--
				}
				write(ch, l.Number)
			case '{':
				header := strings.TrimSpace(seg.String())
				line := segLine
				if line == 0 {
					line = l.Number
				}
				seg.Reset()
				segLine = 0
				sink.open(header, line)
				depthFor = append(depthFor, depth)
				depth = 0
			case '}':
				flush()
				sink.close(l.Number)
				if n := len(depthFor); n > 0 {
					depth = depthFor[n-1]
					depthFor = depthFor[:n-1]
				}
			case ';':
				if depth == 0 && !(bareHeader(seg.String(), syn) && opensLater(l, i)) {
					flush()
				} else {
					write(ch, l.Number)
				}
			default:
				write(ch, l.Number)
			}
		}
		if depth == 0 && !joinNext[idx] {
			flush()
		} else {
			seg.WriteByte(' ')
		}
	}
	flush()
}

// bareHeader reports whether seg starts with a loop, conditional or branch
// keyword that is not followed by a parenthesized condition.
func bareHeader(seg string, syn domain.Syntax) bool {
	text := strings.TrimSpace(seg)
	for _, re := range []*regexp.Regexp{syn.Loop, syn.Conditional, syn.Branch} {
		if re == nil {
			continue
		}
		loc := re.FindStringIndex(text)
		if loc == nil || strings.TrimSpace(text[:loc[0]]) != "" || loc[1] == 0 {
			continue
		}
		rest := strings.TrimSpace(text[loc[1]:])
		if rest != "" && rest[0] != '(' {
			return true
		}
	}
	return false
}

// opensLater reports whether a live '{' follows position i on l.
func opensLater(l sourceLine, i int) bool {
	for j := i + 1; j < len(l.Code); j++ {
		if l.Live[j] && l.Code[j] == '{' {
			return true
		}
	}
	return false
}

// logicalLine is one indentation-significant statement, possibly spanning
// several physical lines.
type logicalLine struct {
	first  int // index into lines
	last   int
	line   int
	indent int
	lead   string
	code   string // masked, joined
	raw    string // raw code without comments, joined
	live   []bool
}

// indentWidth counts leading whitespace with tabs advancing to the next
// multiple of eight.
func indentWidth(s string) (int, string) {
	width := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ':
			width++
		case '\t':
			width += 8 - width%8
		default:
			return width, s[:i]
		}
	}
	return width, s
}

func logicalLines(lines []sourceLine) []logicalLine {
	var out []logicalLine
	for i := 0; i < len(lines); i++ {
		if lines[i].blank() {
			continue
		}
		width, lead := indentWidth(lines[i].Raw)
		ll := logicalLine{first: i, last: i, line: lines[i].Number, indent: width, lead: lead}

		var code, raw strings.Builder
		var live []bool
		depth := 0
		for j := i; j < len(lines); j++ {
			l := lines[j]
			start := 0
			switch {
			case j == i:
				start = len(lead)
			case lines[j-1].OpenString:
				// string content keeps its line structure
				code.WriteByte(' ')
				raw.WriteByte('\n')
				live = append(live, false)
			default:
				for start < l.CodeEnd && (l.Raw[start] == ' ' || l.Raw[start] == '\t') {
					start++
				}
				code.WriteByte(' ')
				raw.WriteByte(' ')
				live = append(live, true)
			}
			end := l.CodeEnd
			for end > start && (l.Raw[end-1] == ' ' || l.Raw[end-1] == '\t') {
				end--
			}
			code.WriteString(l.Code[start:end])
			raw.WriteString(l.Raw[start:end])
			live = append(live, l.Live[start:end]...)

			for k := start; k < end; k++ {
				if !l.Live[k] {
					continue
				}
				switch l.Code[k] {
				case '(', '[', '{':
					depth++
				case ')', ']', '}':
					depth--
				}
			}
			ll.last = j
			continued := strings.HasSuffix(strings.TrimSpace(l.Code[:l.CodeEnd]), "\\")
			if depth <= 0 && !continued && !l.OpenString {
				break
			}
		}
		ll.code = code.String()
		ll.raw = raw.String()
		ll.live = live
		out = append(out, ll)
		i = ll.last
	}
	return out
}

var leadingWord = regexp.MustCompile(`^(\w+)`)

// headerColon returns the index of the ':' closing an indent-style block
// header, or -1 when text is not a header.
func headerColon(text string, keywords []string) int {
	m := leadingWord.FindString(text)
	if m == "" || !util.Contains(keywords, m) {
		return -1
	}
	depth := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ':':
			if depth == 0 && (i+1 >= len(text) || text[i+1] != '=') {
				return i
			}
		}
	}
	return -1
}

type indentFrame struct {
	indent    int
	line      int
	needsBody bool
}

// scanIndent walks indentation-delimited code. A header without an indented
// body is a parse error.
func scanIndent(lines []sourceLine, syn domain.Syntax, sink blockSink) error {
	var stack []indentFrame
	lastLine := 0

	for _, ll := range logicalLines(lines) {
		if n := len(stack); n > 0 && stack[n-1].needsBody {
			if ll.indent <= stack[n-1].indent {
				return apperrors.NewParseError("expected an indented block", stack[n-1].line, stack[n-1].indent+1)
			}
			stack[n-1].needsBody = false
		}
		for len(stack) > 0 && stack[len(stack)-1].indent >= ll.indent {
			stack = stack[:len(stack)-1]
			sink.close(lastLine)
		}

		if colon := headerColon(ll.code, syn.BlockKeywords); colon >= 0 {
			header := strings.TrimSpace(ll.code[:colon])
			rest := strings.TrimSpace(ll.code[colon+1:])
			sink.open(header, ll.line)
			if rest != "" {
				sink.statement(rest, ll.line)
				sink.close(lines[ll.last].Number)
			} else {
				stack = append(stack, indentFrame{indent: ll.indent, line: ll.line, needsBody: true})
			}
		} else {
			sink.statement(strings.TrimSpace(ll.code), ll.line)
		}
		lastLine = lines[ll.last].Number
	}

	if n := len(stack); n > 0 && stack[n-1].needsBody {
		return apperrors.NewParseError("expected an indented block", stack[n-1].line, stack[n-1].indent+1)
	}
	for range stack {
		sink.close(lastLine)
	}
	return nil
}
