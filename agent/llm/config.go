package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
	openrouterx "github.com/tanpawarit/civic-chat/pkg/openrouter"
)

// Role names a model consumer with its own override slot.
type Role string

const (
	RoleRouter    Role = "router"
	RoleExtractor Role = "extractor"
	RoleEducator  Role = "educator"
	RoleGuide     Role = "guide"
	RoleComplaint Role = "complaint"
	RoleFactCheck Role = "fact_checker"
	RoleCityGuide Role = "city_guide"
	RoleGeneral   Role = "general"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	MaxRetries         int           `envconfig:"MAX_RETRIES" split_words:"true" default:"3"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	RouterModel    string `envconfig:"ROUTER_MODEL" split_words:"true"`
	ExtractorModel string `envconfig:"EXTRACTOR_MODEL" split_words:"true"`
	EducatorModel  string `envconfig:"EDUCATOR_MODEL" split_words:"true"`
	GuideModel     string `envconfig:"GUIDE_MODEL" split_words:"true"`
	ComplaintModel string `envconfig:"COMPLAINT_MODEL" split_words:"true"`
	FactCheckModel string `envconfig:"FACT_CHECK_MODEL" split_words:"true"`
	CityGuideModel string `envconfig:"CITY_GUIDE_MODEL" split_words:"true"`
	GeneralModel   string `envconfig:"GENERAL_MODEL" split_words:"true"`

	RouterTemperature    float32 `envconfig:"ROUTER_TEMPERATURE" split_words:"true" default:"0"`
	ExtractorTemperature float32 `envconfig:"EXTRACTOR_TEMPERATURE" split_words:"true" default:"0.1"`
	HandlerTemperature   float32 `envconfig:"HANDLER_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

func (c Config) modelOverride(role Role) string {
	switch role {
	case RoleRouter:
		return c.RouterModel
	case RoleExtractor:
		return c.ExtractorModel
	case RoleEducator:
		return c.EducatorModel
	case RoleGuide:
		return c.GuideModel
	case RoleComplaint:
		return c.ComplaintModel
	case RoleFactCheck:
		return c.FactCheckModel
	case RoleCityGuide:
		return c.CityGuideModel
	case RoleGeneral:
		return c.GeneralModel
	}
	return ""
}

// OpenRouterFor resolves the client config for one role. Empty model
// overrides and negative temperatures fall back to the defaults.
func (c Config) OpenRouterFor(role Role) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	if v := strings.TrimSpace(c.modelOverride(role)); v != "" {
		modelName = v
	}

	temp := c.Temperature
	switch role {
	case RoleRouter:
		if c.RouterTemperature >= 0 {
			temp = c.RouterTemperature
		}
	case RoleExtractor:
		if c.ExtractorTemperature >= 0 {
			temp = c.ExtractorTemperature
		}
	default:
		if c.HandlerTemperature >= 0 {
			temp = c.HandlerTemperature
		}
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		MaxRetries:         c.MaxRetries,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
