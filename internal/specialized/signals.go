package specialized

import (
	"slices"
	"strings"

	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/domain"
)

const (
	longContentRunes = 500
	maxQuestionMarks = 2
	minPoliticalHits = 2
)

var (
	controversialTerms = []string{"political", "controversial", "opinion", "debate"}
	nuanceTerms        = []string{
		"cultural", "religious", "philosophical", "ethical",
		"moral", "values", "belief", "opinion", "perspective",
	}
	educationalTerms = []string{"learn", "education", "teaching", "academic", "study", "research", "knowledge"}
	politicalTerms   = []string{"political", "government", "policy", "election"}
)

// Signals are cues that the content needs deeper analysis than lexical
// scoring can give.
type Signals struct {
	Long          bool `json:"long,omitempty"`
	YoungAudience bool `json:"young_audience,omitempty"`
	Controversial bool `json:"controversial,omitempty"`
	ManyQuestions bool `json:"many_questions,omitempty"`
	Nuanced       bool `json:"nuanced,omitempty"`
	Educational   bool `json:"educational,omitempty"`
	Political     bool `json:"political,omitempty"`
}

// Complex reports the cues that make a layered pipeline consult the
// language model.
func (s Signals) Complex() bool {
	return s.Long || s.YoungAudience || s.Controversial || s.ManyQuestions
}

// Ambiguous is Complex plus the topical cues the hybrid pipeline also
// escalates on.
func (s Signals) Ambiguous() bool {
	return s.Complex() || s.Nuanced || s.Educational || s.Political
}

// Assess derives Signals from content and the viewer's profile.
func Assess(text string, profile domain.SafetyProfile) Signals {
	tokens := tokenize(text)
	return Signals{
		Long:          len([]rune(text)) > longContentRunes,
		YoungAudience: profile.AgeCategory == domain.AgeUnder13 || profile.AgeCategory == domain.AgeUnder16,
		Controversial: len(matchTerms(tokens, controversialTerms)) > 0,
		ManyQuestions: strings.Count(text, "?") > maxQuestionMarks,
		Nuanced:       len(matchTerms(tokens, nuanceTerms)) > 0,
		Educational:   len(matchTerms(tokens, educationalTerms)) > 0,
		Political:     len(matchTerms(tokens, politicalTerms)) >= minPoliticalHits,
	}
}

// Names lists the raised signals, for logs and reasoning text.
func (s Signals) Names() []string {
	var out []string
	for name, on := range map[string]bool{
		"long": s.Long, "young_audience": s.YoungAudience, "controversial": s.Controversial,
		"many_questions": s.ManyQuestions, "nuanced": s.Nuanced, "educational": s.Educational,
		"political": s.Political,
	} {
		if on {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}
