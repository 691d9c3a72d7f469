package translator

import (
	"regexp"
	"sort"
	"strings"

	"github.com/paiml/rosetta-ruchy-sub000/internal/domain"
	apperrors "github.com/paiml/rosetta-ruchy-sub000/pkg/errors"
)

// sourceLine is one physical line with comments and string contents masked.
type sourceLine struct {
	Number int
	Raw    string
	// Code has the same length as Raw. Comment text and string contents
	// are replaced by spaces; quote characters are kept.
	Code string
	// Live marks bytes of executable code outside strings and comments.
	Live []bool
	// CodeEnd is where a trailing line comment starts, len(Raw) otherwise.
	CodeEnd    int
	HasComment bool
	// OpenString is set when the line ends inside a multi-line string.
	OpenString bool
}

func (l sourceLine) blank() bool {
	return strings.TrimSpace(l.Code) == ""
}

var charLiteral = regexp.MustCompile(`^'(?:\\(?:u\{[0-9a-fA-F]+\}|x[0-9a-fA-F]{2}|.)|[^'\\])'`)

type maskState int

const (
	stateCode maskState = iota
	stateBlockComment
	stateMultiString
)

// splitLines normalises line endings and reports a trailing newline.
func splitLines(source string) ([]string, bool) {
	source = strings.ReplaceAll(source, "\r\n", "\n")
	if source == "" {
		return nil, false
	}
	trailing := strings.HasSuffix(source, "\n")
	if trailing {
		source = source[:len(source)-1]
	}
	return strings.Split(source, "\n"), trailing
}

// maskSource classifies every byte of source as code, string or comment.
func maskSource(source string, syn domain.Syntax) ([]sourceLine, error) {
	rawLines, _ := splitLines(source)

	lineMarkers := sortedByLength(syn.LineComments)
	multi := sortedByLength(syn.MultilineQuotes)
	single := sortedByLength(syn.Quotes)

	var (
		state      = stateCode
		delim      string
		openLine   int
		openColumn int
	)

	lines := make([]sourceLine, 0, len(rawLines))
	for idx, raw := range rawLines {
		number := idx + 1
		code := []byte(raw)
		live := make([]bool, len(raw))
		codeEnd := len(raw)
		hasComment := false

		blankRange := func(from, to int) {
			for k := from; k < to && k < len(code); k++ {
				code[k] = ' '
			}
		}

		i := 0
		for i < len(raw) {
			switch state {
			case stateBlockComment:
				hasComment = true
				end := strings.Index(raw[i:], syn.BlockCommentEnd)
				if end < 0 {
					blankRange(i, len(raw))
					i = len(raw)
					continue
				}
				stop := i + end + len(syn.BlockCommentEnd)
				blankRange(i, stop)
				i = stop
				state = stateCode

			case stateMultiString:
				end := closingQuote(raw, i, delim)
				if end < 0 {
					blankRange(i, len(raw))
					i = len(raw)
					continue
				}
				blankRange(i, end)
				i = end + len(delim)
				state = stateCode

			default:
				if m := prefixAt(raw, i, lineMarkers); m != "" {
					codeEnd = i
					hasComment = true
					blankRange(i, len(raw))
					i = len(raw)
					continue
				}
				if syn.BlockCommentStart != "" && strings.HasPrefix(raw[i:], syn.BlockCommentStart) {
					state = stateBlockComment
					openLine, openColumn = number, i+1
					hasComment = true
					blankRange(i, i+len(syn.BlockCommentStart))
					i += len(syn.BlockCommentStart)
					continue
				}
				if q := prefixAt(raw, i, multi); q != "" {
					end := closingQuote(raw, i+len(q), q)
					if end < 0 {
						state = stateMultiString
						delim = q
						openLine, openColumn = number, i+1
						blankRange(i+len(q), len(raw))
						i = len(raw)
						continue
					}
					blankRange(i+len(q), end)
					i = end + len(q)
					continue
				}
				if syn.CharLiterals && raw[i] == '\'' {
					if m := charLiteral.FindString(raw[i:]); m != "" {
						blankRange(i+1, i+len(m)-1)
						i += len(m)
						continue
					}
					live[i] = true
					i++
					continue
				}
				if q := prefixAt(raw, i, single); q != "" {
					end := closingQuote(raw, i+len(q), q)
					if end < 0 {
						return nil, apperrors.NewParseError("unterminated string literal", number, i+1)
					}
					blankRange(i+len(q), end)
					i = end + len(q)
					continue
				}
				live[i] = true
				i++
			}
		}

		lines = append(lines, sourceLine{
			Number:     number,
			Raw:        raw,
			Code:       string(code),
			Live:       live,
			CodeEnd:    codeEnd,
			HasComment: hasComment,
			OpenString: state == stateMultiString,
		})
	}

	switch state {
	case stateBlockComment:
		return nil, apperrors.NewParseError("unterminated block comment", openLine, openColumn)
	case stateMultiString:
		return nil, apperrors.NewParseError("unterminated string literal", openLine, openColumn)
	}
	return lines, nil
}

// closingQuote finds the next unescaped q at or after from.
func closingQuote(s string, from int, q string) int {
	for i := from; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if strings.HasPrefix(s[i:], q) {
			return i
		}
	}
	return -1
}

func prefixAt(s string, i int, candidates []string) string {
	for _, c := range candidates {
		if c != "" && strings.HasPrefix(s[i:], c) {
			return c
		}
	}
	return ""
}

// sortedByLength orders markers longest first so """ wins over ".
func sortedByLength(in []string) []string {
	out := append([]string(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

var closers = map[byte]byte{')': '(', ']': '[', '}': '{'}

type opener struct {
	ch     byte
	line   int
	column int
}

// checkBalance verifies () [] {} nesting over live code.
func checkBalance(lines []sourceLine) error {
	var stack []opener
	for _, l := range lines {
		for i := 0; i < len(l.Code); i++ {
			if !l.Live[i] {
				continue
			}
			ch := l.Code[i]
			switch ch {
			case '(', '[', '{':
				stack = append(stack, opener{ch: ch, line: l.Number, column: i + 1})
			case ')', ']', '}':
				if len(stack) == 0 {
					return apperrors.NewParseError("unexpected '"+string(ch)+"'", l.Number, i+1)
				}
				top := stack[len(stack)-1]
				if top.ch != closers[ch] {
					return apperrors.NewParseError("mismatched '"+string(ch)+"' for '"+string(top.ch)+"'", l.Number, i+1)
				}
				stack = stack[:len(stack)-1]
			}
		}
	}
	if len(stack) > 0 {
		top := stack[len(stack)-1]
		return apperrors.NewParseError("unterminated '"+string(top.ch)+"'", top.line, top.column)
	}
	return nil
}
