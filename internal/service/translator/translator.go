package translator

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/paiml/rosetta-ruchy-sub000/internal/domain"
	apperrors "github.com/paiml/rosetta-ruchy-sub000/pkg/errors"
)

// Translation is the output of one Translate call.
type Translation struct {
	Text    string
	Summary domain.StructuralSummary
	Notes   []domain.TranslationNote
	// NeedsEntryCall is set when the unit defines an entry point that
	// nothing calls. Translate appends the call itself.
	NeedsEntryCall bool
}

// Translator rewrites source units into the target language.
type Translator struct {
	target string
	logger *zap.Logger
}

func New(target string, logger *zap.Logger) *Translator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Translator{target: target, logger: logger}
}

// Translate rewrites source with the rules of p. The identity profile
// returns source unchanged.
func (t *Translator) Translate(source string, p *domain.Profile) (*Translation, error) {
	return t.translate(source, p, true)
}

// TranslateFragment rewrites one piece of a larger unit. The text carries
// neither the header line nor an appended entry call.
func (t *Translator) TranslateFragment(source string, p *domain.Profile) (*Translation, error) {
	return t.translate(source, p, false)
}

func (t *Translator) translate(source string, p *domain.Profile, whole bool) (*Translation, error) {
	start := time.Now()
	lines, col, err := scan(source, p)
	if err != nil {
		return nil, err
	}

	out := &Translation{Summary: summarize(lines, col, p)}
	switch {
	case strings.TrimSpace(source) == "":
		out.Text = ""
	case p.Identity:
		out.Text = source
	default:
		e := newEmitter(p, lines)
		if p.Syntax.BlockStyle == domain.BlockIndent {
			e.emitIndent()
		} else {
			e.emitBraces()
		}
		out.NeedsEntryCall = p.AppendEntryCall && col.definesMain() && !col.callsMain
		_, trailing := splitLines(source)
		header := ""
		if whole {
			header = fmt.Sprintf("// Translated from %s to %s", p.Language, t.target)
			if out.NeedsEntryCall {
				e.out = append(e.out, "", "main()")
			}
		}
		out.Text = e.render(header, trailing && whole)
		out.Notes = e.notes
		out.Summary.UnmappedConstructs = len(e.notes)
	}

	t.logger.Debug("Translated unit",
		zap.String("language", p.Language),
		zap.Bool("fragment", !whole),
		zap.Int("functions", out.Summary.FunctionCount),
		zap.Int("unmapped", out.Summary.UnmappedConstructs),
		zap.Duration("duration", time.Since(start)),
	)
	return out, nil
}

// Scan runs only the masking and structure passes.
func (t *Translator) Scan(source string, p *domain.Profile) (domain.StructuralSummary, error) {
	lines, col, err := scan(source, p)
	if err != nil {
		return domain.StructuralSummary{}, err
	}
	return summarize(lines, col, p), nil
}

// CheckDelimiters reports the first unbalanced delimiter or unterminated
// literal of text under syn.
func CheckDelimiters(text string, syn domain.Syntax) error {
	lines, err := maskSource(text, syn)
	if err != nil {
		return err
	}
	return checkBalance(lines)
}

// CodeLines reports, per line of text, whether the line holds live code
// rather than only blanks, comments or string continuation.
func CodeLines(text string, syn domain.Syntax) ([]bool, error) {
	lines, err := maskSource(text, syn)
	if err != nil {
		return nil, err
	}
	out := make([]bool, len(lines))
	for i, l := range lines {
		out[i] = !l.blank()
	}
	return out, nil
}

func scan(source string, p *domain.Profile) ([]sourceLine, *collector, error) {
	if p == nil {
		return nil, nil, apperrors.NewInternalError("translation profile is nil", nil)
	}
	lines, err := maskSource(source, p.Syntax)
	if err != nil {
		return nil, nil, err
	}
	if err := checkBalance(lines); err != nil {
		return nil, nil, err
	}

	col := newCollector(p.Syntax)
	if p.Syntax.BlockStyle == domain.BlockIndent {
		if err := scanIndent(lines, p.Syntax, col); err != nil {
			return nil, nil, err
		}
	} else {
		scanBraces(lines, p.Syntax, col)
	}
	return lines, col, nil
}

func summarize(lines []sourceLine, col *collector, p *domain.Profile) domain.StructuralSummary {
	s := col.summary(p.Language, p.Identity)
	s.PhysicalLines = len(lines)
	for _, l := range lines {
		switch {
		case !l.blank():
			s.LineCount++
		case l.HasComment:
			s.CommentLines++
		}
	}
	return s
}
