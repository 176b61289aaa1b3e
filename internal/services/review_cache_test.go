package services

import "testing"

func TestComputeRuleFingerprint(t *testing.T) {
	spec := &PromptSpec{
		Version:    PromptVersion,
		Document:   "## Review Categories\n- check one\n",
		Categories: []string{CategoryContentCompliance},
	}

	base := ComputeRuleFingerprint(spec, "gemini", "gemini-2.0-flash")
	if len(base) != 64 {
		t.Fatalf("fingerprint length = %d, want 64 hex chars", len(base))
	}
	if again := ComputeRuleFingerprint(spec, "gemini", "gemini-2.0-flash"); again != base {
		t.Error("same inputs should produce the same fingerprint")
	}

	tests := []struct {
		name     string
		spec     *PromptSpec
		provider string
		model    string
	}{
		{"different document", &PromptSpec{Version: spec.Version, Document: "## Review Categories\n- check two\n"}, "gemini", "gemini-2.0-flash"},
		{"different version", &PromptSpec{Version: "v3", Document: spec.Document}, "gemini", "gemini-2.0-flash"},
		{"different provider", spec, "openai", "gemini-2.0-flash"},
		{"different model", spec, "gemini", "gemini-1.5-pro"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeRuleFingerprint(tt.spec, tt.provider, tt.model); got == base {
				t.Error("changed input should change the fingerprint")
			}
		})
	}
}
