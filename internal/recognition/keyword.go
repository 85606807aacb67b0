package recognition

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"smsbridge/internal/domain"
)

// DefaultIntent is assigned when no pattern matches the message text.
const DefaultIntent = "default_fallback"

// IntentPattern is a YAML-defined keyword intent. Files conform to:
//
//	name: greeting
//	keywords: [hello, hi]
//	reply: "Hello! How can I help?"
//	confidence: 0.9
type IntentPattern struct {
	Name       string   `yaml:"name"`
	Keywords   []string `yaml:"keywords"`
	Reply      string   `yaml:"reply,omitempty"`
	Confidence float64  `yaml:"confidence,omitempty"`
}

// KeywordRecognizer matches inbound text against local intent patterns. It
// is the fallback when no remote intent engine is configured.
type KeywordRecognizer struct {
	patterns []IntentPattern
	logger   *slog.Logger
}

func NewKeywordRecognizer(patterns []IntentPattern, logger *slog.Logger) *KeywordRecognizer {
	return &KeywordRecognizer{patterns: patterns, logger: logger}
}

func (r *KeywordRecognizer) Name() string { return "keyword" }

// Recognize returns the first pattern whose keyword occurs in the text,
// compared case-insensitively. An unmatched message yields DefaultIntent
// with zero confidence.
func (r *KeywordRecognizer) Recognize(ctx context.Context, text string, sess *domain.Session) (*domain.RecognizedEvent, error) {
	lowered := strings.ToLower(text)
	for _, p := range r.patterns {
		for _, kw := range p.Keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(lowered, strings.ToLower(kw)) {
				confidence := p.Confidence
				if confidence == 0 {
					confidence = 1.0
				}
				return &domain.RecognizedEvent{
					Intent:     p.Name,
					Confidence: confidence,
					Text:       text,
					Reply:      p.Reply,
				}, nil
			}
		}
	}
	return &domain.RecognizedEvent{Intent: DefaultIntent, Text: text}, nil
}

// LoadPatterns loads intent pattern definitions from YAML files in dir.
// A missing directory is not an error; unparseable files are skipped.
func LoadPatterns(dir string, logger *slog.Logger) ([]IntentPattern, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		logger.Debug("intents directory does not exist, skipping", "dir", dir)
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read intents dir: %w", err)
	}

	var patterns []IntentPattern
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("cannot read intent file", "path", path, "err", err)
			continue
		}

		var pattern IntentPattern
		if err := yaml.Unmarshal(data, &pattern); err != nil {
			logger.Warn("cannot parse intent file", "path", path, "err", err)
			continue
		}

		if pattern.Name == "" {
			pattern.Name = strings.TrimSuffix(name, filepath.Ext(name))
		}

		logger.Info("loaded intent pattern", "name", pattern.Name, "path", path)
		patterns = append(patterns, pattern)
	}

	return patterns, nil
}
