package services

import (
	"fmt"
	"strings"

	"github.com/huangang/adsentry/internal/config"
)

// Review categories form a closed set. Config can disable them or tune
// their instructions; an unrecognized name is a configuration error, never
// a silent merge into some catch-all.
const (
	CategoryContentCompliance = "content_compliance"
	CategoryBrandRelevance    = "brand_relevance"
	CategoryVideoQuality      = "video_quality"
)

// PromptVersion identifies the instruction document format. Bump when the
// response schema changes shape.
const PromptVersion = "v2"

// categoryOrder fixes section order so the same config always renders the
// same document.
var categoryOrder = []string{
	CategoryContentCompliance,
	CategoryBrandRelevance,
	CategoryVideoQuality,
}

var categoryTitles = map[string]string{
	CategoryContentCompliance: "Content Compliance",
	CategoryBrandRelevance:    "Brand Relevance",
	CategoryVideoQuality:      "Video Quality",
}

// defaultCheckItems are the built-in checklists. Config check_items replace
// them; custom_prompt text is appended after them verbatim.
var defaultCheckItems = map[string][]string{
	CategoryContentCompliance: {
		"No prohibited, offensive, or age-inappropriate content",
		"No competitor brand names, logos, or app icons visible anywhere in the frame",
		"No unlicensed third-party characters, music overlays, or watermarks",
		"Claims and on-screen text comply with advertising standards",
	},
	CategoryBrandRelevance: {
		"The advertised product is recognizably present and central to the video",
		"Product name and branding match the campaign being promoted",
		"Screens and UI shown belong to the advertised product, not a lookalike",
	},
	CategoryVideoQuality: {
		"Footage is sharp: no heavy blur, pixelation, or compression artifacts",
		"No abrupt cuts, frozen frames, or black segments",
		"Text overlays are legible at the target resolution",
	},
}

// responseSchema is the machine-parseable reply contract appended to every
// prompt. The reviewer's parser expects exactly this shape back.
const responseSchema = `Respond with ONLY a JSON object, no surrounding prose, matching:
{
  "summary": "<one-paragraph overall assessment>",
  "issues": [
    {
      "category": "<one of the category identifiers listed above>",
      "severity": "low" | "medium" | "high" | "critical",
      "timestamp": <seconds into the video as a number, or null if not tied to a moment>,
      "description": "<what is wrong and where in the frame>",
      "suggested_fix": "<how to resolve it>"
    }
  ]
}
Return an empty issues array when the video is clean. Do not invent
categories. Timestamps must be numbers, not strings.`

// PromptSpec is the versioned instruction document sent to the AI provider,
// paired with the response schema the parser expects back.
type PromptSpec struct {
	Version    string   `json:"version"`
	System     string   `json:"system"`
	Document   string   `json:"document"`
	Categories []string `json:"categories"`
}

// RuleEngineService turns the review configuration into prompt documents.
type RuleEngineService struct{}

func NewRuleEngineService() *RuleEngineService {
	return &RuleEngineService{}
}

// IsKnownCategory reports whether name belongs to the closed category set.
func IsKnownCategory(name string) bool {
	_, ok := categoryTitles[name]
	return ok
}

// validateCategories rejects config entries that name categories outside
// the closed set.
func validateCategories(cfg *config.ReviewConfig) error {
	for name := range cfg.Categories {
		if !IsKnownCategory(name) {
			return NewConfigurationError("unknown review category %q (known: %s)",
				name, strings.Join(categoryOrder, ", "))
		}
	}
	return nil
}

// EnabledCategories returns the enabled categories in canonical order.
// Categories absent from config are enabled with their defaults.
func EnabledCategories(cfg *config.ReviewConfig) []string {
	var enabled []string
	for _, name := range categoryOrder {
		if cfg.Categories[name].IsEnabled() {
			enabled = append(enabled, name)
		}
	}
	return enabled
}

// BuildPrompt validates the rule set and renders the versioned instruction
// document. Disabled categories are omitted entirely so the model is never
// told to look for them.
func (s *RuleEngineService) BuildPrompt(cfg *config.ReviewConfig) (*PromptSpec, error) {
	if err := validateCategories(cfg); err != nil {
		return nil, err
	}

	enabled := EnabledCategories(cfg)
	if len(enabled) == 0 {
		return nil, NewConfigurationError("no review categories enabled")
	}

	var b strings.Builder
	b.WriteString("You are reviewing a marketing video for publication. ")
	b.WriteString("Examine every provided frame carefully, including screen corners, app lists, and small overlaid text. ")
	b.WriteString("Report only what is actually visible.\n\n")
	b.WriteString("## Review Categories\n\n")

	for i, name := range enabled {
		catCfg := cfg.Categories[name]

		fmt.Fprintf(&b, "### %d. %s (category: %s)\n", i+1, categoryTitles[name], name)
		items := catCfg.CheckItems
		if len(items) == 0 {
			items = defaultCheckItems[name]
		}
		for _, item := range items {
			fmt.Fprintf(&b, "- %s\n", item)
		}
		if catCfg.CustomPrompt != "" {
			b.WriteString(catCfg.CustomPrompt)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if cfg.CustomPrompt != "" {
		b.WriteString("## Additional Requirements\n")
		b.WriteString(cfg.CustomPrompt)
		b.WriteString("\n\n")
	}

	b.WriteString("## Output Format\n")
	b.WriteString(responseSchema)
	b.WriteString("\n")

	return &PromptSpec{
		Version:    PromptVersion,
		System:     "You are a meticulous marketing video compliance reviewer. You respond only with valid JSON.",
		Document:   b.String(),
		Categories: enabled,
	}, nil
}

// EffectiveRule is the resolved view of one category for the rules API.
type EffectiveRule struct {
	Category     string   `json:"category"`
	Title        string   `json:"title"`
	Enabled      bool     `json:"enabled"`
	CheckItems   []string `json:"check_items"`
	CustomPrompt string   `json:"custom_prompt,omitempty"`
}

// EffectiveRules resolves config against the built-in category set,
// including disabled categories so callers can render toggles.
func (s *RuleEngineService) EffectiveRules(cfg *config.ReviewConfig) ([]EffectiveRule, error) {
	if err := validateCategories(cfg); err != nil {
		return nil, err
	}

	rules := make([]EffectiveRule, 0, len(categoryOrder))
	for _, name := range categoryOrder {
		catCfg := cfg.Categories[name]
		items := catCfg.CheckItems
		if len(items) == 0 {
			items = defaultCheckItems[name]
		}
		rules = append(rules, EffectiveRule{
			Category:     name,
			Title:        categoryTitles[name],
			Enabled:      catCfg.IsEnabled(),
			CheckItems:   items,
			CustomPrompt: catCfg.CustomPrompt,
		})
	}
	return rules, nil
}
