package lmanalyzer

// AgeRating is the minimum viewer age the model considers appropriate.
type AgeRating string

const (
	AgeRatingAll AgeRating = "0+"
	AgeRating7   AgeRating = "7+"
	AgeRating13  AgeRating = "13+"
	AgeRating16  AgeRating = "16+"
	AgeRating18  AgeRating = "18+"
)

var ageRatings = []AgeRating{AgeRatingAll, AgeRating7, AgeRating13, AgeRating16, AgeRating18}

// MinimumAge returns the age in years the rating requires.
func (a AgeRating) MinimumAge() int {
	switch a {
	case AgeRating7:
		return 7
	case AgeRating13:
		return 13
	case AgeRating16:
		return 16
	case AgeRating18:
		return 18
	default:
		return 0
	}
}

// CognitiveLevel follows Bloom's taxonomy.
type CognitiveLevel string

var cognitiveLevels = []CognitiveLevel{"remember", "understand", "apply", "analyze", "evaluate", "create"}

// PoliticalLeaning of the content.
type PoliticalLeaning string

var politicalLeanings = []PoliticalLeaning{"left", "center-left", "center", "center-right", "right", "neutral", "mixed"}

var subjectAreas = []string{
	"mathematics", "science", "literature", "history",
	"technology", "arts", "social_studies", "other",
}

// SafetyAssessment is the safety section of a model response.
type SafetyAssessment struct {
	SafetyScore        float64   `json:"safety_score"`
	ViolenceLevel      float64   `json:"violence_level"`
	AdultContent       bool      `json:"adult_content"`
	HateSpeech         float64   `json:"hate_speech"`
	MisinformationRisk float64   `json:"misinformation_risk"`
	AgeAppropriateness AgeRating `json:"age_appropriateness"`
	ContentWarnings    []string  `json:"content_warnings,omitempty"`
	Reasoning          string    `json:"reasoning"`
}

// EducationalAssessment is the optional educational section.
type EducationalAssessment struct {
	EducationalValue float64        `json:"educational_value"`
	SubjectAreas     []string       `json:"subject_areas,omitempty"`
	CognitiveLevel   CognitiveLevel `json:"cognitive_level"`
	ReadingLevel     float64        `json:"reading_level"`
	FactualAccuracy  float64        `json:"factual_accuracy"`
}

// ViewpointAssessment is the optional viewpoint section.
type ViewpointAssessment struct {
	PoliticalLeaning  PoliticalLeaning `json:"political_leaning"`
	BiasScore         float64          `json:"bias_score"`
	ControversyLevel  float64          `json:"controversy_level"`
	SourceCredibility float64          `json:"source_credibility"`
	EchoChamberRisk   float64          `json:"echo_chamber_risk"`
}

// Analysis is a validated model response.
type Analysis struct {
	Safety        SafetyAssessment       `json:"safety"`
	Educational   *EducationalAssessment `json:"educational,omitempty"`
	Viewpoint     *ViewpointAssessment   `json:"viewpoint,omitempty"`
	CategoryFlags []string               `json:"category_flags,omitempty"`
	Confidence    float64                `json:"confidence"`

	// Repairs lists the fixes ValidateAndRepair had to apply.
	Repairs []string `json:"-"`
}

// responseSchema is embedded in the prompt so every provider sees the same
// contract.
const responseSchema = `{
  "safety": {
    "safety_score": number 0-1 (1 = completely safe),
    "violence_level": number 0-1,
    "adult_content": boolean,
    "hate_speech": number 0-1,
    "misinformation_risk": number 0-1,
    "age_appropriateness": one of "0+", "7+", "13+", "16+", "18+",
    "content_warnings": [string],
    "reasoning": string
  },
  "educational": {
    "educational_value": number 0-1,
    "subject_areas": [one of "mathematics", "science", "literature", "history", "technology", "arts", "social_studies", "other"],
    "cognitive_level": one of "remember", "understand", "apply", "analyze", "evaluate", "create",
    "reading_level": number 1-20,
    "factual_accuracy": number 0-1
  },
  "viewpoint": {
    "political_leaning": one of "left", "center-left", "center", "center-right", "right", "neutral", "mixed",
    "bias_score": number 0-1,
    "controversy_level": number 0-1,
    "source_credibility": number 0-1,
    "echo_chamber_risk": number 0-1
  },
  "category_flags": [string],
  "confidence": number 0-1
}`
