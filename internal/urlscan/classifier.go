// Package urlscan flags suspicious URLs by keyword and keeps running totals.
package urlscan

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/user/intruscan/internal/model"
)

// Keyword is a suspicious substring and the threat level it implies.
type Keyword struct {
	Word  string            `yaml:"word"`
	Level model.ThreatLevel `yaml:"level,omitempty"`
}

var defaultWords = []string{
	"malware", "phishing", "bad-site", "suspicious", "attack", "virus", "trojan",
	"scam", "fraud", "hack", "steal", "password", "banking-fake", "paypal-fake",
	"microsoft-fake", "google-fake", "login-steal", "credential", "exploit",
}

var (
	highWords   = map[string]bool{"malware": true, "virus": true, "trojan": true, "hack": true, "steal": true}
	mediumWords = map[string]bool{"phishing": true, "scam": true, "fraud": true, "fake": true}
)

// LevelFor grades a keyword by exact match. Compound words such as
// "login-steal" stay low.
func LevelFor(word string) model.ThreatLevel {
	switch {
	case highWords[word]:
		return model.ThreatHigh
	case mediumWords[word]:
		return model.ThreatMedium
	default:
		return model.ThreatLow
	}
}

// DefaultKeywords returns the built-in list in match order.
func DefaultKeywords() []Keyword {
	out := make([]Keyword, len(defaultWords))
	for i, w := range defaultWords {
		out[i] = Keyword{Word: w, Level: LevelFor(w)}
	}
	return out
}

type keywordFile struct {
	Keywords []Keyword `yaml:"keywords"`
}

// LoadKeywords reads a YAML keyword list. Entries without a level are
// graded with LevelFor.
func LoadKeywords(path string) ([]Keyword, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keywords file: %w", err)
	}

	var f keywordFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse keywords file: %w", err)
	}

	out := make([]Keyword, 0, len(f.Keywords))
	for _, k := range f.Keywords {
		word := strings.ToLower(strings.TrimSpace(k.Word))
		if word == "" {
			continue
		}
		switch k.Level {
		case "":
			k.Level = LevelFor(word)
		case model.ThreatLow, model.ThreatMedium, model.ThreatHigh:
		default:
			return nil, fmt.Errorf("keyword %q: unknown threat level %q", word, k.Level)
		}
		out = append(out, Keyword{Word: word, Level: k.Level})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("keywords file %s lists no keywords", path)
	}

	return out, nil
}

// Classifier matches URLs against an ordered keyword list.
type Classifier struct {
	keywords []Keyword
}

// NewClassifier creates a classifier. A nil list uses DefaultKeywords.
func NewClassifier(keywords []Keyword) *Classifier {
	if keywords == nil {
		keywords = DefaultKeywords()
	}
	return &Classifier{keywords: keywords}
}

// Keywords returns a copy of the list in match order.
func (c *Classifier) Keywords() []Keyword {
	return append([]Keyword(nil), c.keywords...)
}

// Classify returns the first keyword, in list order, found in the
// lower-cased URL. Clean URLs are reported with level low.
func (c *Classifier) Classify(url string) model.URLCheck {
	check := model.URLCheck{URL: url, ThreatLevel: model.ThreatLow}
	lower := strings.ToLower(url)

	for _, k := range c.keywords {
		if strings.Contains(lower, k.Word) {
			check.Detected = true
			check.Matched = k.Word
			check.ThreatLevel = k.Level
			break
		}
	}

	return check
}
