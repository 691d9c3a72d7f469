package classifier

import (
	"go.uber.org/zap"

	"github.com/paiml/rosetta-ruchy-sub000/internal/domain"
	"github.com/paiml/rosetta-ruchy-sub000/internal/util"
	apperrors "github.com/paiml/rosetta-ruchy-sub000/pkg/errors"
)

// Registry is the subset of the profile registry the classifier reads.
type Registry interface {
	Lookup(language string) (*domain.Profile, bool)
	Sources() []*domain.Profile
	Target() *domain.Profile
	Languages() []string
	ByFilename(name string) (*domain.Profile, bool)
}

type Classifier struct {
	registry Registry
	logger   *zap.Logger
}

func New(registry Registry, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{registry: registry, logger: logger}
}

// Classify decides the input language. A declared language always wins; an
// unregistered one is an error. Otherwise the filename extension, then
// the weighted detection patterns, then the identity profile are tried.
func (c *Classifier) Classify(source, declared, filename string) (domain.ClassificationResult, error) {
	if hint := util.Normalize(declared); hint != "" {
		p, ok := c.registry.Lookup(hint)
		if !ok {
			return domain.ClassificationResult{}, apperrors.NewUnsupportedLanguageError(hint, c.registry.Languages())
		}
		return domain.ClassificationResult{
			Language:    p.Language,
			Confidence:  1.0,
			HintHonored: true,
			Source:      domain.SourceDeclared,
		}, nil
	}

	if filename != "" {
		if p, ok := c.registry.ByFilename(filename); ok {
			return domain.ClassificationResult{
				Language:   p.Language,
				Confidence: 1.0,
				Source:     domain.SourceExtension,
			}, nil
		}
	}

	return c.detect(source), nil
}

func (c *Classifier) detect(source string) domain.ClassificationResult {
	sources := c.registry.Sources()
	scores := make([]domain.LanguageScore, 0, len(sources))

	var (
		best  *domain.Profile
		top   float64
		total float64
	)
	for _, p := range sources {
		score := Score(p, source)
		scores = append(scores, domain.LanguageScore{Language: p.Language, Score: score})
		total += score
		// strict comparison keeps the earliest registered profile on ties
		if score > top {
			top = score
			best = p
		}
	}

	if best == nil || total <= 0 {
		c.logger.Debug("No detection pattern matched, using identity profile")
		return domain.ClassificationResult{
			Language:   c.registry.Target().Language,
			Confidence: 0.0,
			Source:     domain.SourceFallback,
			Scores:     scores,
		}
	}

	return domain.ClassificationResult{
		Language:   best.Language,
		Confidence: top / total,
		Source:     domain.SourcePatterns,
		Scores:     scores,
	}
}

// Score sums the weights of every detection pattern present in source.
// Each pattern counts once.
func Score(p *domain.Profile, source string) float64 {
	var score float64
	for _, d := range p.Detection {
		if d.Weight > 0 && d.Found(source) {
			score += d.Weight
		}
	}
	return score
}
