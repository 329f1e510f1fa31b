package model

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// BatchInput is the user-supplied qualification document: the profile URLs
// to process plus criteria, weights, and run tuning. Accepted as JSON or
// YAML; field names follow the camelCase document convention.
type BatchInput struct {
	ProfileURLs           []string              `json:"profileUrls" yaml:"profileUrls"`
	QualificationCriteria QualificationCriteria `json:"qualificationCriteria" yaml:"qualificationCriteria"`
	ScoringWeights        ScoringWeights        `json:"scoringWeights" yaml:"scoringWeights"`
	MinimumScore          float64               `json:"minimumScore" yaml:"minimumScore"`
	MaxResults            int                   `json:"maxResults" yaml:"maxResults"`
	Concurrency           int                   `json:"concurrency" yaml:"concurrency"`
	RequestDelayMs        int                   `json:"requestDelayMs" yaml:"requestDelayMs"`
	TimeoutSecs           int                   `json:"timeoutSecs" yaml:"timeoutSecs"`
	EmptyCriterionPolicy  EmptyCriterionPolicy  `json:"emptyCriterionPolicy" yaml:"emptyCriterionPolicy"`
}

// ParseBatchInput decodes a JSON or YAML qualification document and applies
// defaults. The format is sniffed from the first non-space byte.
func ParseBatchInput(data []byte) (*BatchInput, error) {
	var in BatchInput

	trimmed := strings.TrimLeftFunc(string(data), func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal(data, &in); err != nil {
			return nil, eris.Wrap(err, "model: parse input document as json")
		}
	} else {
		if err := yaml.Unmarshal(data, &in); err != nil {
			return nil, eris.Wrap(err, "model: parse input document as yaml")
		}
	}

	in.applyDefaults()
	return &in, nil
}

func (in *BatchInput) applyDefaults() {
	if in.ScoringWeights == (ScoringWeights{}) {
		in.ScoringWeights = DefaultScoringWeights()
	}
	if in.MinimumScore == 0 {
		in.MinimumScore = 60
	}
	if in.Concurrency == 0 {
		in.Concurrency = 5
	}
	if in.RequestDelayMs == 0 {
		in.RequestDelayMs = 2000
	}
	if in.EmptyCriterionPolicy == "" {
		in.EmptyCriterionPolicy = EmptyCriterionSkip
	}
}

// Validate checks the full document. Any error here is a configuration
// error: the run aborts before any fetch is issued.
func (in *BatchInput) Validate() error {
	if len(in.ProfileURLs) == 0 {
		return eris.New("model: input document has no profile urls")
	}
	if in.MinimumScore < 0 || in.MinimumScore > 100 {
		return eris.Errorf("model: minimum score must be in [0,100], got %.1f", in.MinimumScore)
	}
	if in.MaxResults < 0 {
		return eris.Errorf("model: max results must be >= 0, got %d", in.MaxResults)
	}
	if in.Concurrency < 1 {
		return eris.Errorf("model: concurrency must be >= 1, got %d", in.Concurrency)
	}
	if in.RequestDelayMs < 0 {
		return eris.Errorf("model: request delay must be >= 0, got %d", in.RequestDelayMs)
	}
	if err := in.ScoringWeights.Validate(); err != nil {
		return err
	}
	if err := in.QualificationCriteria.Validate(); err != nil {
		return err
	}
	return in.EmptyCriterionPolicy.Validate()
}
