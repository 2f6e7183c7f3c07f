package lmanalyzer

import (
	"fmt"
	"strings"

	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/domain"
)

const maxPromptContentRunes = 2000

const (
	childSystemPrompt = "You are a child-safety content reviewer. The viewer is under 13. " +
		"Treat any violence, sexual content, frightening material, manipulation or " +
		"unsupervised contact with strangers as unsafe. Reward clear educational value."
	teenSystemPrompt = "You are a content reviewer for teenage viewers (13 to 17). " +
		"Age-appropriate discussion of difficult topics is acceptable when handled " +
		"responsibly. Flag explicit sexual content, graphic violence, self-harm, " +
		"substance promotion and hateful language."
	adultSystemPrompt = "You are a content reviewer for adult viewers. Assess harm " +
		"rather than maturity: hate speech, incitement, harassment, dangerous " +
		"misinformation and non-consensual content are unsafe."
)

var jurisdictionAddenda = map[domain.Jurisdiction]string{
	domain.JurisdictionEU: "Apply EU rules: GDPR protections for minors' personal data and the Digital Services Act duty to limit illegal and harmful content.",
	domain.JurisdictionUS: "Apply US rules: COPPA restrictions on collecting data from children under 13.",
	domain.JurisdictionIN: "Apply Indian IT Rules 2021 on unlawful and obscene content.",
	domain.JurisdictionCN: "Apply Cyberspace Administration of China content rules.",
}

// SystemPrompt returns the reviewer instructions for the profile's audience
// and jurisdiction.
func SystemPrompt(profile domain.SafetyProfile) string {
	var base string
	switch profile.AgeCategory {
	case domain.AgeUnder13:
		base = childSystemPrompt
	case domain.AgeUnder16, domain.AgeUnder18:
		base = teenSystemPrompt
	default:
		base = adultSystemPrompt
	}
	if addendum, ok := jurisdictionAddenda[profile.Jurisdiction]; ok {
		base += "\n" + addendum
	}
	return base + "\nRespond with a single JSON object and nothing else."
}

// UserPrompt asks for the analysis of content against the response schema.
func UserPrompt(content domain.ContentItem, profile domain.SafetyProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Audience: %s, safety level %s", profile.AgeCategory, profile.SafetyLevel)
	if profile.Jurisdiction != "" {
		fmt.Fprintf(&b, ", jurisdiction %s", profile.Jurisdiction)
	}
	b.WriteString(".\n")
	if len(profile.BlockedCategories) > 0 {
		fmt.Fprintf(&b, "Categories the guardian blocked: %s.\n", strings.Join(profile.BlockedCategories, ", "))
	}
	if content.ContentType != "" {
		fmt.Fprintf(&b, "Content type: %s.\n", content.ContentType)
	}
	b.WriteString("\nContent:\n<<<\n")
	b.WriteString(truncateRunes(content.Text, maxPromptContentRunes))
	b.WriteString("\n>>>\n\nReturn JSON matching this schema:\n")
	b.WriteString(responseSchema)
	return b.String()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
