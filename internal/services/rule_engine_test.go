package services

import (
	"strings"
	"testing"

	"github.com/huangang/adsentry/internal/config"
)

func boolPtr(b bool) *bool { return &b }

func TestBuildPrompt_AllCategoriesByDefault(t *testing.T) {
	svc := NewRuleEngineService()

	spec, err := svc.BuildPrompt(&config.ReviewConfig{})
	if err != nil {
		t.Fatalf("BuildPrompt failed: %v", err)
	}

	if spec.Version != PromptVersion {
		t.Errorf("version = %q, want %q", spec.Version, PromptVersion)
	}
	if len(spec.Categories) != 3 {
		t.Fatalf("expected 3 enabled categories, got %d", len(spec.Categories))
	}
	for _, name := range []string{CategoryContentCompliance, CategoryBrandRelevance, CategoryVideoQuality} {
		if !strings.Contains(spec.Document, "category: "+name) {
			t.Errorf("document missing section for %s", name)
		}
	}
	if !strings.Contains(spec.Document, `"issues"`) {
		t.Error("document missing response schema")
	}
}

func TestBuildPrompt_DisabledCategoryOmitted(t *testing.T) {
	svc := NewRuleEngineService()

	cfg := &config.ReviewConfig{
		Categories: map[string]config.CategoryConfig{
			CategoryVideoQuality: {Enabled: boolPtr(false)},
		},
	}

	spec, err := svc.BuildPrompt(cfg)
	if err != nil {
		t.Fatalf("BuildPrompt failed: %v", err)
	}

	if strings.Contains(spec.Document, "category: "+CategoryVideoQuality) {
		t.Error("disabled category must not appear in the prompt")
	}
	for _, c := range spec.Categories {
		if c == CategoryVideoQuality {
			t.Error("disabled category listed as enabled")
		}
	}
	if len(spec.Categories) != 2 {
		t.Errorf("expected 2 enabled categories, got %d", len(spec.Categories))
	}
}

func TestBuildPrompt_UnknownCategoryFails(t *testing.T) {
	svc := NewRuleEngineService()

	cfg := &config.ReviewConfig{
		Categories: map[string]config.CategoryConfig{
			"sound_quality": {},
		},
	}

	_, err := svc.BuildPrompt(cfg)
	if err == nil {
		t.Fatal("expected error for unknown category")
	}
	if !IsKind(err, ErrKindConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestBuildPrompt_AllDisabledFails(t *testing.T) {
	svc := NewRuleEngineService()

	cfg := &config.ReviewConfig{
		Categories: map[string]config.CategoryConfig{
			CategoryContentCompliance: {Enabled: boolPtr(false)},
			CategoryBrandRelevance:    {Enabled: boolPtr(false)},
			CategoryVideoQuality:      {Enabled: boolPtr(false)},
		},
	}

	_, err := svc.BuildPrompt(cfg)
	if !IsKind(err, ErrKindConfiguration) {
		t.Errorf("expected configuration error when every category is disabled, got %v", err)
	}
}

func TestBuildPrompt_CustomPromptAppendedVerbatim(t *testing.T) {
	svc := NewRuleEngineService()

	custom := "Treat {{anything}} literally, including ${weird} markers."
	cfg := &config.ReviewConfig{
		Categories: map[string]config.CategoryConfig{
			CategoryBrandRelevance: {CustomPrompt: custom},
		},
		CustomPrompt: "Global requirement: the promo code must be visible.",
	}

	spec, err := svc.BuildPrompt(cfg)
	if err != nil {
		t.Fatalf("BuildPrompt failed: %v", err)
	}

	if !strings.Contains(spec.Document, custom) {
		t.Error("per-category custom prompt not appended verbatim")
	}
	if !strings.Contains(spec.Document, cfg.CustomPrompt) {
		t.Error("global custom prompt not appended")
	}
}

func TestBuildPrompt_CheckItemsReplaceDefaults(t *testing.T) {
	svc := NewRuleEngineService()

	cfg := &config.ReviewConfig{
		Categories: map[string]config.CategoryConfig{
			CategoryContentCompliance: {CheckItems: []string{"No references to Widgetsmith or iScreen"}},
		},
	}

	spec, err := svc.BuildPrompt(cfg)
	if err != nil {
		t.Fatalf("BuildPrompt failed: %v", err)
	}

	if !strings.Contains(spec.Document, "No references to Widgetsmith or iScreen") {
		t.Error("configured check items missing from prompt")
	}
	if strings.Contains(spec.Document, defaultCheckItems[CategoryContentCompliance][0]) {
		t.Error("default check items should be replaced, not merged")
	}
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	svc := NewRuleEngineService()

	cfg := &config.ReviewConfig{
		Categories: map[string]config.CategoryConfig{
			CategoryVideoQuality:      {CustomPrompt: "Ignore letterboxing."},
			CategoryContentCompliance: {},
			CategoryBrandRelevance:    {},
		},
	}

	first, err := svc.BuildPrompt(cfg)
	if err != nil {
		t.Fatalf("BuildPrompt failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := svc.BuildPrompt(cfg)
		if err != nil {
			t.Fatalf("BuildPrompt failed on iteration %d: %v", i, err)
		}
		if again.Document != first.Document {
			t.Fatal("same config must render an identical document")
		}
	}

	// Canonical ordering regardless of map iteration order.
	ccIdx := strings.Index(first.Document, "category: "+CategoryContentCompliance)
	brIdx := strings.Index(first.Document, "category: "+CategoryBrandRelevance)
	vqIdx := strings.Index(first.Document, "category: "+CategoryVideoQuality)
	if !(ccIdx < brIdx && brIdx < vqIdx) {
		t.Errorf("sections out of canonical order: %d, %d, %d", ccIdx, brIdx, vqIdx)
	}
}

func TestEffectiveRules(t *testing.T) {
	svc := NewRuleEngineService()

	cfg := &config.ReviewConfig{
		Categories: map[string]config.CategoryConfig{
			CategoryVideoQuality: {Enabled: boolPtr(false)},
		},
	}

	rules, err := svc.EffectiveRules(cfg)
	if err != nil {
		t.Fatalf("EffectiveRules failed: %v", err)
	}
	if len(rules) != 3 {
		t.Fatalf("expected all 3 categories listed, got %d", len(rules))
	}

	byName := map[string]EffectiveRule{}
	for _, r := range rules {
		byName[r.Category] = r
	}
	if byName[CategoryVideoQuality].Enabled {
		t.Error("video_quality should be reported as disabled")
	}
	if !byName[CategoryContentCompliance].Enabled {
		t.Error("content_compliance should default to enabled")
	}
	if len(byName[CategoryBrandRelevance].CheckItems) == 0 {
		t.Error("default check items should be resolved for display")
	}
}

func TestIsKnownCategory(t *testing.T) {
	if !IsKnownCategory(CategoryContentCompliance) {
		t.Error("content_compliance should be known")
	}
	if IsKnownCategory("other") {
		t.Error("'other' must not be a known category")
	}
}
