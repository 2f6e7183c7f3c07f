package lmanalyzer

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/domain"
)

// SchemaError lists why a model response could not be accepted.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return "model output failed schema validation: " + strings.Join(e.Problems, "; ")
}

// Is lets errors.Is(err, domain.ErrLMMalformedOutput) match.
func (e *SchemaError) Is(target error) bool {
	return target == domain.ErrLMMalformedOutput
}

var (
	jsonFenceRe     = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*\\n?(.*?)\\n?```")
	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
	smartQuotes     = strings.NewReplacer("“", `"`, "”", `"`, "‘", "'", "’", "'")
	subjectFolder   = strings.NewReplacer("-", "_", " ", "_")
	leaningFolder   = strings.NewReplacer("_", "-", " ", "-")
)

type wireSafety struct {
	SafetyScore        *float64 `json:"safety_score"`
	ViolenceLevel      float64  `json:"violence_level"`
	AdultContent       bool     `json:"adult_content"`
	HateSpeech         float64  `json:"hate_speech"`
	MisinformationRisk float64  `json:"misinformation_risk"`
	AgeAppropriateness *string  `json:"age_appropriateness"`
	ContentWarnings    []string `json:"content_warnings"`
	Reasoning          *string  `json:"reasoning"`
}

type wireEducational struct {
	EducationalValue *float64 `json:"educational_value"`
	SubjectAreas     []string `json:"subject_areas"`
	CognitiveLevel   *string  `json:"cognitive_level"`
	ReadingLevel     *float64 `json:"reading_level"`
	FactualAccuracy  float64  `json:"factual_accuracy"`
}

type wireViewpoint struct {
	PoliticalLeaning  *string  `json:"political_leaning"`
	BiasScore         *float64 `json:"bias_score"`
	ControversyLevel  float64  `json:"controversy_level"`
	SourceCredibility *float64 `json:"source_credibility"`
	EchoChamberRisk   float64  `json:"echo_chamber_risk"`
}

type wireAnalysis struct {
	Safety        *wireSafety      `json:"safety"`
	Educational   *wireEducational `json:"educational"`
	Viewpoint     *wireViewpoint   `json:"viewpoint"`
	CategoryFlags []string         `json:"category_flags"`
	Confidence    *float64         `json:"confidence"`
}

// ValidateAndRepair turns raw model output into a conformant Analysis.
// Surrounding prose and markdown fences are stripped, then one syntactic
// repair pass (trailing commas, typographic quotes) is allowed if the first
// decode fails. Enum values are matched case-insensitively. Anything still
// invalid yields a *SchemaError. The function has no side effects.
func ValidateAndRepair(raw string) (Analysis, error) {
	var repairs []string

	body, extracted := extractJSON(raw)
	if body == "" {
		return Analysis{}, &SchemaError{Problems: []string{"no JSON object found"}}
	}
	if extracted {
		repairs = append(repairs, "extracted_json")
	}

	var w wireAnalysis
	if err := json.Unmarshal([]byte(body), &w); err != nil {
		fixed := trailingCommaRe.ReplaceAllString(smartQuotes.Replace(body), "$1")
		if fixed == body {
			return Analysis{}, &SchemaError{Problems: []string{"invalid JSON: " + err.Error()}}
		}
		w = wireAnalysis{}
		if err = json.Unmarshal([]byte(fixed), &w); err != nil {
			return Analysis{}, &SchemaError{Problems: []string{"invalid JSON after repair: " + err.Error()}}
		}
		repairs = append(repairs, "syntax")
	}

	v := validator{repairs: repairs}
	a := v.analysis(w)
	if len(v.problems) > 0 {
		return Analysis{}, &SchemaError{Problems: v.problems}
	}
	a.Repairs = v.repairs
	return a, nil
}

// extractJSON returns the JSON object in s and whether anything around it
// had to be removed.
func extractJSON(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		return s, false
	}
	if m := jsonFenceRe.FindStringSubmatch(s); len(m) == 2 {
		s = strings.TrimSpace(m[1])
	}
	start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

type validator struct {
	problems []string
	repairs  []string
}

func (v *validator) fail(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) analysis(w wireAnalysis) Analysis {
	var a Analysis
	if w.Safety == nil {
		v.fail("safety: required")
	} else {
		a.Safety = v.safety(*w.Safety)
	}
	if w.Educational != nil {
		a.Educational = v.educational(*w.Educational)
	}
	if w.Viewpoint != nil {
		a.Viewpoint = v.viewpoint(*w.Viewpoint)
	}
	a.CategoryFlags = normalizeFlags(w.CategoryFlags)
	a.Confidence = v.required("confidence", w.Confidence, 0, 1)
	return a
}

func (v *validator) safety(w wireSafety) SafetyAssessment {
	s := SafetyAssessment{
		SafetyScore:        v.required("safety.safety_score", w.SafetyScore, 0, 1),
		ViolenceLevel:      v.unit("safety.violence_level", w.ViolenceLevel),
		AdultContent:       w.AdultContent,
		HateSpeech:         v.unit("safety.hate_speech", w.HateSpeech),
		MisinformationRisk: v.unit("safety.misinformation_risk", w.MisinformationRisk),
		ContentWarnings:    w.ContentWarnings,
	}
	if w.Reasoning == nil {
		v.fail("safety.reasoning: required")
	} else {
		s.Reasoning = strings.TrimSpace(*w.Reasoning)
	}
	if w.AgeAppropriateness == nil {
		v.fail("safety.age_appropriateness: required")
	} else {
		s.AgeAppropriateness = enumValue(v, "safety.age_appropriateness", normalizeAgeRating(*w.AgeAppropriateness), *w.AgeAppropriateness, ageRatings)
	}
	return s
}

func (v *validator) educational(w wireEducational) *EducationalAssessment {
	e := &EducationalAssessment{
		EducationalValue: v.required("educational.educational_value", w.EducationalValue, 0, 1),
		ReadingLevel:     v.required("educational.reading_level", w.ReadingLevel, 1, 20),
		FactualAccuracy:  v.unit("educational.factual_accuracy", w.FactualAccuracy),
	}
	if w.CognitiveLevel == nil {
		v.fail("educational.cognitive_level: required")
	} else {
		e.CognitiveLevel = enumValue(v, "educational.cognitive_level", foldEnum(*w.CognitiveLevel), *w.CognitiveLevel, cognitiveLevels)
	}
	for _, area := range w.SubjectAreas {
		folded := subjectFolder.Replace(foldEnum(area))
		e.SubjectAreas = append(e.SubjectAreas, enumValue(v, "educational.subject_areas", folded, area, subjectAreas))
	}
	return e
}

func (v *validator) viewpoint(w wireViewpoint) *ViewpointAssessment {
	vp := &ViewpointAssessment{
		BiasScore:         v.required("viewpoint.bias_score", w.BiasScore, 0, 1),
		ControversyLevel:  v.unit("viewpoint.controversy_level", w.ControversyLevel),
		SourceCredibility: v.required("viewpoint.source_credibility", w.SourceCredibility, 0, 1),
		EchoChamberRisk:   v.unit("viewpoint.echo_chamber_risk", w.EchoChamberRisk),
	}
	if w.PoliticalLeaning == nil {
		v.fail("viewpoint.political_leaning: required")
	} else {
		folded := leaningFolder.Replace(foldEnum(*w.PoliticalLeaning))
		vp.PoliticalLeaning = enumValue(v, "viewpoint.political_leaning", folded, *w.PoliticalLeaning, politicalLeanings)
	}
	return vp
}

func (v *validator) required(field string, p *float64, lo, hi float64) float64 {
	if p == nil {
		v.fail("%s: required", field)
		return 0
	}
	return v.inRange(field, *p, lo, hi)
}

func (v *validator) unit(field string, f float64) float64 {
	return v.inRange(field, f, 0, 1)
}

// clampSlack is the fraction of a field's span by which a value may overshoot
// and still be clamped into range instead of rejected.
const clampSlack = 0.05

func (v *validator) inRange(field string, f, lo, hi float64) float64 {
	if math.IsNaN(f) {
		v.fail("%s: NaN outside [%g,%g]", field, lo, hi)
		return 0
	}
	if f >= lo && f <= hi {
		return f
	}
	slack := (hi - lo) * clampSlack
	if f < lo-slack || f > hi+slack {
		v.fail("%s: %g outside [%g,%g]", field, f, lo, hi)
		return 0
	}
	v.repairs = append(v.repairs, "clamped:"+field)
	return min(max(f, lo), hi)
}

// enumValue accepts folded when it is one of allowed, recording a repair if
// folding changed the original spelling.
func enumValue[T ~string](v *validator, field, folded, original string, allowed []T) T {
	for _, a := range allowed {
		if string(a) == folded {
			if folded != original {
				v.repairs = append(v.repairs, "enum_case:"+field)
			}
			return a
		}
	}
	v.fail("%s: %q not one of %v", field, original, allowed)
	return ""
}

func foldEnum(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizeAgeRating(s string) string {
	s = strings.ReplaceAll(foldEnum(s), " ", "")
	if s != "" && !strings.HasSuffix(s, "+") {
		s += "+"
	}
	return s
}

func normalizeFlags(flags []string) []string {
	if len(flags) == 0 {
		return nil
	}
	out := make([]string, 0, len(flags))
	seen := make(map[string]bool, len(flags))
	for _, f := range flags {
		f = strings.ReplaceAll(foldEnum(f), " ", "_")
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
