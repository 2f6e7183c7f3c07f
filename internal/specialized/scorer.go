package specialized

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Scores are the raw dimension scores produced by a Scorer.
type Scores struct {
	Toxicity     float64 `json:"toxicity"`
	Explicitness float64 `json:"explicitness"`
	// Confidence is optional; zero lets the classifier derive it.
	Confidence float64 `json:"confidence,omitempty"`
	// Terms lists the evidence behind the scores, if the scorer reports it.
	Terms []string `json:"terms,omitempty"`
}

// Scorer rates text on the toxicity and explicitness dimensions.
type Scorer interface {
	Score(ctx context.Context, text string) (Scores, error)
	Name() string
}

var (
	toxicTerms    = []string{"hate", "kill", "stupid", "idiot", "moron", "threat"}
	explicitTerms = []string{"sex", "porn", "naked", "adult", "explicit"}
)

const (
	toxicWeight    = 0.2
	explicitWeight = 0.25
)

// KeywordScorer is the in-process lexical scorer. Each distinct term found
// adds a fixed weight to its dimension, capped at 1.
type KeywordScorer struct{}

// Name identifies the scorer in results.
func (KeywordScorer) Name() string { return "keyword" }

// Score never fails except on a done context.
func (KeywordScorer) Score(ctx context.Context, text string) (Scores, error) {
	if err := ctx.Err(); err != nil {
		return Scores{}, err
	}
	tokens := tokenize(text)

	var s Scores
	toxic := matchTerms(tokens, toxicTerms)
	explicit := matchTerms(tokens, explicitTerms)
	s.Toxicity = min(float64(len(toxic))*toxicWeight, 1)
	s.Explicitness = min(float64(len(explicit))*explicitWeight, 1)
	s.Terms = append(toxic, explicit...)
	return s, nil
}

// matchTerms returns the terms that begin some token, so "killing" counts
// for "kill" but "skill" does not.
func matchTerms(tokens, terms []string) []string {
	var found []string
	for _, term := range terms {
		for _, tok := range tokens {
			if strings.HasPrefix(tok, term) {
				found = append(found, term)
				break
			}
		}
	}
	return found
}

// tokenize builds its transformer per call; a transform.Chain holds buffers
// and must not be shared between goroutines.
func tokenize(text string) []string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}
	return strings.FieldsFunc(strings.ToLower(folded), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
