package fastfilter

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/internal/domain"
)

// Rule is one denylist entry. A rule matches when any of its keywords,
// patterns or hosts is found.
type Rule struct {
	Name     string   `yaml:"name"`
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
	Patterns []string `yaml:"patterns"`
	Hosts    []string `yaml:"hosts"`
	Enabled  *bool    `yaml:"enabled"`
}

// IsEnabled treats an omitted enabled flag as true.
func (r Rule) IsEnabled() bool { return r.Enabled == nil || *r.Enabled }

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// Denylist categories used by the built-in rules.
const (
	CategoryProfanity  = "profanity"
	CategoryViolence   = "violence"
	CategoryHateSpeech = "hate_speech"
	CategoryHarmfulURL = "harmful_url"
)

// DefaultRules is the built-in denylist.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:     "profanity",
			Category: CategoryProfanity,
			Patterns: []string{`\b(fuck|shit|damn|bitch)\b`},
		},
		{
			Name:     "direct_threat",
			Category: CategoryViolence,
			Patterns: []string{`\b(kill|murder|die)\s+(you|yourself|them)\b`},
		},
		{
			Name:     "group_hate",
			Category: CategoryHateSpeech,
			Patterns: []string{`\b(hate|kill)\s+all\s+\w+\b`},
		},
		{
			Name:     "harmful_links",
			Category: CategoryHarmfulURL,
			Patterns: []string{`bit\.ly/[a-z0-9]+`, `pornhub\.com`, `\bxxx\.`, `\.onion\b`},
			Hosts:    []string{"known-bad.example"},
		},
	}
}

// ParseRules decodes a YAML denylist document and validates it. Errors wrap
// domain.ErrConfiguration.
func ParseRules(data []byte) ([]Rule, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &domain.ConfigurationError{Setting: "denylist", Reason: err.Error()}
	}
	if _, err := compile(f.Rules); err != nil {
		return nil, err
	}
	return f.Rules, nil
}

// LoadRulesFile reads and parses a denylist file.
func LoadRulesFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read denylist %s: %w", path, err)
	}
	return ParseRules(data)
}

type compiledPattern struct {
	re   *regexp.Regexp
	rule *Rule
}

type compiled struct {
	rules    []Rule
	keywords []string
	kwRules  map[string][]*Rule
	patterns []compiledPattern
	hosts    map[string]*Rule
}

func compile(rules []Rule) (*compiled, error) {
	c := &compiled{
		rules:   make([]Rule, 0, len(rules)),
		kwRules: make(map[string][]*Rule),
		hosts:   make(map[string]*Rule),
	}
	for _, r := range rules {
		if r.IsEnabled() {
			c.rules = append(c.rules, r)
		}
	}

	for i := range c.rules {
		rule := &c.rules[i]
		if rule.Name == "" {
			return nil, &domain.ConfigurationError{Setting: "denylist", Reason: fmt.Sprintf("rule %d has no name", i)}
		}
		if rule.Category == "" {
			rule.Category = rule.Name
		}

		for _, kw := range rule.Keywords {
			norm := normalizeKeyword(kw)
			if norm == "" {
				continue
			}
			if _, seen := c.kwRules[norm]; !seen {
				c.keywords = append(c.keywords, norm)
			}
			c.kwRules[norm] = append(c.kwRules[norm], rule)
		}

		for _, p := range rule.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, &domain.ConfigurationError{
					Setting: "denylist." + rule.Name,
					Value:   p,
					Reason:  err.Error(),
				}
			}
			c.patterns = append(c.patterns, compiledPattern{re: re, rule: rule})
		}

		for _, h := range rule.Hosts {
			if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
				c.hosts[h] = rule
			}
		}
	}
	return c, nil
}
