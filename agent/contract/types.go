package contract

import (
	statex "github.com/tanpawarit/civic-chat/agent/state"
)

type IntentCategory string

const (
	CategoryComplaintFiling IntentCategory = "complaint_filing"
	CategoryCivicEducation  IntentCategory = "civic_education"
	CategoryFactCheck       IntentCategory = "fact_check"
	CategoryPracticalGuide  IntentCategory = "practical_guide"
	CategoryCityGuide       IntentCategory = "city_guide"
	CategoryGeneral         IntentCategory = "general"
)

// Categories is the closed set of intent categories.
var Categories = []IntentCategory{
	CategoryComplaintFiling,
	CategoryCivicEducation,
	CategoryFactCheck,
	CategoryPracticalGuide,
	CategoryCityGuide,
	CategoryGeneral,
}

func (c IntentCategory) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type RouterDecision struct {
	Category   IntentCategory `json:"category"`
	Confidence float64        `json:"confidence"`
	Rationale  string         `json:"rationale,omitempty"`
}

type HandlerRequest struct {
	UserID    string           `json:"user_id"`
	Utterance string           `json:"utterance"`
	History   []statex.Message `json:"history,omitempty"`
	Context   string           `json:"context,omitempty"`
	Language  string           `json:"language,omitempty"`
}

type HandlerResponse struct {
	Handler     string       `json:"handler"`
	Text        string       `json:"text"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

type ToolRequest struct {
	ID   string         `json:"id,omitempty"`
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

type ToolResult struct {
	Tool   string `json:"tool"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

type SearchResult struct {
	Text         string  `json:"text"`
	Source       string  `json:"source"`
	LocationHint string  `json:"location_hint,omitempty"`
	Title        string  `json:"title,omitempty"`
	Score        float64 `json:"score,omitempty"`
}

// Document is a record the storage gateway can persist under its own id.
type Document interface {
	DocumentID() string
}

type Notification struct {
	To          string `json:"to"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	ComplaintID string `json:"complaint_id"`
	Entity      string `json:"entity"`
}

type ValidationResult struct {
	Valid         bool   `json:"valid"`
	Reason        string `json:"reason,omitempty"`
	ViolationType string `json:"violation_type,omitempty"`
}
