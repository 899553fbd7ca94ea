// Package safety checks handler replies for political bias and harmful
// content before they reach the user.
package safety

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
)

const (
	// SeverityThreshold rejects any harm category at or above this level.
	SeverityThreshold = 2
	// AlertEvery logs an alert each time this many violations accumulate.
	AlertEvery = 10
)

const (
	ViolationBias          = "bias_keyword"
	ViolationContentSafety = "content_safety"
)

// BiasKeywords are phrases that signal a voting recommendation or a partisan
// preference.
var BiasKeywords = []string{
	"should vote for",
	"you should vote",
	"recommend voting for",
	"recommend you vote for",
	"suggest voting for",
	"suggest you vote for",
	"best candidate",
	"better candidate",
	"superior candidate",
	"best party",
	"better party",
	"superior party",
	"more trustworthy",
	"more qualified",
	"more experienced than",
	"superior policy",
	"better policy",
	"best policy",
	"right choice",
	"wrong choice",
	"smart choice",
	"foolish choice",
	"support this candidate",
	"support this party",
	"endorse",
	"back this candidate",
	"deberías votar por",
	"debe votar por",
	"recomiendo votar",
	"sugiero votar",
	"mejor candidato",
	"mejor partido",
	"candidato superior",
	"partido superior",
	"más confiable",
	"más calificado",
	"mejor política",
	"política superior",
	"elección correcta",
	"elección incorrecta",
	"apoyar este candidato",
	"apoyar este partido",
	"respaldar",
}

// Validator runs the bias check first, then the content-safety check when a
// classifier is configured.
type Validator struct {
	classifier contractx.SafetyClassifier
	keywords   []string
	violations atomic.Int64
}

var _ contractx.OutputValidator = (*Validator)(nil)

func NewValidator(classifier contractx.SafetyClassifier) *Validator {
	keywords := make([]string, len(BiasKeywords))
	for i, kw := range BiasKeywords {
		keywords[i] = strings.ToLower(kw)
	}
	return &Validator{classifier: classifier, keywords: keywords}
}

// Violations returns how many replies have been rejected so far.
func (v *Validator) Violations() int64 { return v.violations.Load() }

func (v *Validator) Validate(ctx context.Context, text string) contractx.ValidationResult {
	lower := strings.ToLower(text)
	for _, kw := range v.keywords {
		if strings.Contains(lower, kw) {
			return v.reject(contractx.ValidationResult{
				Reason:        fmt.Sprintf("bias keyword %q", kw),
				ViolationType: ViolationBias,
			})
		}
	}

	if v.classifier == nil || strings.TrimSpace(text) == "" {
		return contractx.ValidationResult{Valid: true}
	}
	severities, err := v.classifier.Classify(ctx, text)
	if err != nil {
		log.Warn().Err(err).Msg("content safety check failed; allowing reply")
		return contractx.ValidationResult{Valid: true}
	}
	for category, severity := range severities {
		if severity >= SeverityThreshold {
			return v.reject(contractx.ValidationResult{
				Reason:        fmt.Sprintf("content safety: %s (severity %d)", category, severity),
				ViolationType: ViolationContentSafety,
			})
		}
	}
	return contractx.ValidationResult{Valid: true}
}

func (v *Validator) reject(r contractx.ValidationResult) contractx.ValidationResult {
	r.Valid = false
	n := v.violations.Add(1)
	log.Warn().Str("violation_type", r.ViolationType).Str("reason", r.Reason).Int64("violations", n).Msg("reply rejected")
	if n%AlertEvery == 0 {
		log.Error().Int64("violations", n).Msg("reply violation threshold reached")
	}
	return r
}

type analyzer interface {
	Analyze(ctx context.Context, text string) (map[string]int, error)
}

// ContentSafetyClassifier adapts the Azure Content Safety client.
type ContentSafetyClassifier struct {
	client analyzer
}

func NewContentSafetyClassifier(client analyzer) *ContentSafetyClassifier {
	return &ContentSafetyClassifier{client: client}
}

func (c *ContentSafetyClassifier) Classify(ctx context.Context, text string) (map[string]int, error) {
	return c.client.Analyze(ctx, text)
}
