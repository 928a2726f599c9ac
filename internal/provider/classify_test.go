package provider

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		model string
		want  Kind
	}{
		{"claude-3-5-sonnet-20241022", KindAnthropic},
		{"Claude-3-Opus", KindAnthropic},
		{"CLAUDE", KindAnthropic},
		{"claud", KindOpenAI},
		{"gpt-4o", KindOpenAI},
		{"o1-mini", KindOpenAI},
		{"my-claude-finetune", KindOpenAI},
		{"", KindOpenAI},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			if got := Classify(tt.model); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.model, got, tt.want)
			}
		})
	}
}

func TestCapabilitiesFor(t *testing.T) {
	tests := []struct {
		name  string
		kind  Kind
		model string
		want  Capabilities
	}{
		{"gpt-4o", KindOpenAI, "gpt-4o", Capabilities{SupportsTemperature: true, SupportsTools: true}},
		{"o1", KindOpenAI, "o1-preview", Capabilities{SupportsTemperature: false, SupportsTools: false}},
		{"o3", KindOpenAI, "o3-mini", Capabilities{SupportsTemperature: false, SupportsTools: false}},
		{"gpt-5", KindOpenAI, "gpt-5-nano", Capabilities{SupportsTemperature: false, SupportsTools: true}},
		{"capability prefixes are case-sensitive", KindOpenAI, "O1-preview", Capabilities{SupportsTemperature: true, SupportsTools: true}},
		{"o4 is not special", KindOpenAI, "o4-mini", Capabilities{SupportsTemperature: true, SupportsTools: true}},
		{"anthropic", KindAnthropic, "claude-3-haiku", Capabilities{SupportsTemperature: false, SupportsTools: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CapabilitiesFor(tt.kind, tt.model); got != tt.want {
				t.Errorf("CapabilitiesFor(%q, %q) = %+v, want %+v", tt.kind, tt.model, got, tt.want)
			}
		})
	}
}
