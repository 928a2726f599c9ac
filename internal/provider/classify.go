package provider

import "strings"

// Kind identifies an upstream provider family.
type Kind string

const (
	KindAnthropic Kind = "anthropic"
	KindOpenAI    Kind = "openai"
)

// Classify selects the provider for a model name.
// Models whose name starts with "claude" (any case) go to Anthropic; everything else to OpenAI.
func Classify(model string) Kind {
	if hasPrefixFold(model, "claude") {
		return KindAnthropic
	}
	return KindOpenAI
}

// Capabilities are the request parameters a model family accepts.
type Capabilities struct {
	SupportsTemperature bool
	SupportsTools       bool
}

// CapabilitiesFor returns the parameter support for model on the given provider.
// These are fixed rules keyed on model-name prefixes, not negotiated with the upstream.
func CapabilitiesFor(kind Kind, model string) Capabilities {
	switch kind {
	case KindAnthropic:
		// Temperature is deliberately not forwarded to Anthropic.
		return Capabilities{SupportsTemperature: false, SupportsTools: true}
	default:
		reasoning := strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3")
		gpt5 := strings.HasPrefix(model, "gpt-5")
		return Capabilities{
			SupportsTemperature: !reasoning && !gpt5,
			SupportsTools:       !reasoning,
		}
	}
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
