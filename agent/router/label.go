package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
	promptx "github.com/tanpawarit/civic-chat/agent/prompt"
	statex "github.com/tanpawarit/civic-chat/agent/state"
)

// labelHistory is how many prior messages the label prompt sees.
const labelHistory = 4

// Keywords are matched as substrings of the upper-cased classifier output.
var Keywords = map[contractx.IntentCategory][]string{
	contractx.CategoryComplaintFiling: {"COMPLAINT"},
	contractx.CategoryCivicEducation:  {"CIVIC_EDUCATION", "CIVIC_KNOWLEDGE"},
	contractx.CategoryFactCheck:       {"FACT_CHECK", "PROTOCOL"},
	contractx.CategoryPracticalGuide:  {"PRACTICAL_GUIDE"},
	contractx.CategoryCityGuide:       {"CITY_GUIDE"},
	contractx.CategoryGeneral:         {"GENERAL", "UNCLEAR"},
}

// LabelClassifier asks the model for a single category token.
type LabelClassifier struct {
	completer contractx.Completer
	prompt    string
}

var _ contractx.Classifier = (*LabelClassifier)(nil)

func NewLabelClassifier(completer contractx.Completer) (*LabelClassifier, error) {
	if completer == nil {
		return nil, errors.New("completer is required")
	}
	prompt, err := promptx.Lookup(promptx.RouterLabel)
	if err != nil {
		return nil, err
	}
	return &LabelClassifier{completer: completer, prompt: prompt}, nil
}

func (c *LabelClassifier) Classify(ctx context.Context, utterance string, history []statex.Message) (contractx.RouterDecision, error) {
	if len(history) > labelHistory {
		history = history[len(history)-labelHistory:]
	}
	out, err := c.completer.Complete(ctx, c.prompt, history, utterance)
	if err != nil {
		return contractx.RouterDecision{}, err
	}
	return ParseLabel(out)
}

// ParseLabel maps raw classifier output to a decision. When several
// categories match, the one earliest in Priority wins.
func ParseLabel(raw string) (contractx.RouterDecision, error) {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	token := strings.TrimFunc(upper, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '_'
	})

	var matched []contractx.IntentCategory
	exact := false
	for _, category := range Priority {
		for _, kw := range Keywords[category] {
			if strings.Contains(upper, kw) {
				matched = append(matched, category)
				if token == kw {
					exact = true
				}
				break
			}
		}
	}
	if len(matched) == 0 {
		return contractx.RouterDecision{}, fmt.Errorf("%w: unrecognized label %q", contractx.ErrSchemaViolation, raw)
	}

	confidence := 0.5
	if exact && len(matched) == 1 {
		confidence = 1.0
	}
	return contractx.RouterDecision{
		Category:   matched[0],
		Confidence: confidence,
		Rationale:  "label=" + token,
	}, nil
}
