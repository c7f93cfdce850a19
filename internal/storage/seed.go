package storage

import "newsdesk/internal/models"

// SeedModel is a model together with the name of its provider
type SeedModel struct {
	Provider string
	Model    models.Model
}

// SeedData is the initial configuration of a fresh installation
type SeedData struct {
	Stages        []models.Stage
	SystemPrompts map[string]string // stage name -> prompt text
	Providers     []models.Provider
	Models        []SeedModel
}

// SeedReport counts what a seed run created
type SeedReport struct {
	Stages        int
	SystemPrompts int
	Providers     int
	Models        int
	Skipped       int
}

func strPtr(s string) *string { return &s }

// DefaultSeedData returns the stock stages, providers (without keys) and models
func DefaultSeedData() SeedData {
	return SeedData{
		Stages: []models.Stage{
			{Name: models.StageClassification, DisplayName: "Classification", Description: strPtr("Determine the category and type of the news item"), Order: 1, IsActive: true},
			{Name: models.StageFreshnessCheck, DisplayName: "Freshness check", Description: strPtr("Generate a search query to check whether the news is still new"), Order: 2, IsActive: true},
			{Name: models.StageFreshnessAnalysis, DisplayName: "Search results analysis", Description: strPtr("Analyze the found publications to assess the freshness of the news"), Order: 3, IsActive: true},
			{Name: models.StageAnalysis, DisplayName: "Analysis", Description: strPtr("In-depth analysis of the news content"), Order: 4, IsActive: true},
			{Name: models.StageRecommendations, DisplayName: "Recommendations", Description: strPtr("Generate publishing recommendations"), Order: 5, IsActive: true},
		},
		SystemPrompts: map[string]string{
			models.StageClassification:    "Classify the news item. Answer with its category, type and a one sentence justification.",
			models.StageFreshnessCheck:    "Write one short web search query that would find earlier publications of this news. Answer with the query only.",
			models.StageFreshnessAnalysis: "Compare the news item with the found publications and assess whether it is new, partially known or already published.",
			models.StageAnalysis:          "Analyze the news item: key facts, involved parties, credibility and missing context.",
			models.StageRecommendations:   "Give concrete recommendations on whether and how to publish this news item.",
		},
		Providers: []models.Provider{
			{Name: string(models.ProviderTypeOpenAI), DisplayName: "OpenAI", IsActive: true},
			{Name: string(models.ProviderTypeGoogle), DisplayName: "Google AI", IsActive: true},
			{Name: string(models.ProviderTypeAnthropic), DisplayName: "Anthropic", IsActive: true},
		},
		Models: []SeedModel{
			{"openai", models.Model{Name: "gpt-4o", DisplayName: "GPT-4o", APIIdentifier: "gpt-4o", IsActive: true}},
			{"openai", models.Model{Name: "gpt-4o-mini", DisplayName: "GPT-4o Mini", APIIdentifier: "gpt-4o-mini", IsActive: true}},
			{"openai", models.Model{Name: "o1", DisplayName: "o1", APIIdentifier: "o1", IsActive: true}},
			{"openai", models.Model{Name: "o1-mini", DisplayName: "o1 Mini", APIIdentifier: "o1-mini", IsActive: true}},

			{"google", models.Model{Name: "gemini-pro", DisplayName: "Gemini Pro", APIIdentifier: "gemini-pro", IsActive: true}},
			{"google", models.Model{Name: "gemini-flash-2.0", DisplayName: "Gemini Flash 2.0", APIIdentifier: "gemini-2.0-flash-exp", IsActive: true}},
			{"google", models.Model{Name: "gemma2", DisplayName: "Gemma 2", APIIdentifier: "gemma-2-9b-it", IsActive: true}},

			{"anthropic", models.Model{Name: "claude-sonnet-4.5", DisplayName: "Claude Sonnet 4.5", APIIdentifier: "claude-sonnet-4-5-20250929", IsActive: true}},
			{"anthropic", models.Model{Name: "claude-opus-4", DisplayName: "Claude Opus 4", APIIdentifier: "claude-opus-4-20250514", IsActive: true}},
			{"anthropic", models.Model{Name: "claude-haiku", DisplayName: "Claude Haiku", APIIdentifier: "claude-3-5-haiku-20241022", IsActive: true}},
		},
	}
}
