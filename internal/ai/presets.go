package ai

// DefaultModel returns the model used when none is configured for a provider.
func DefaultModel(provider string) string {
	m, _ := RecommendModel(provider, "cheap")
	return m
}

// RecommendModel returns a recommended model name for a given tier and provider.
// If provider is empty, defaults to groq. Tiers: cheap|balanced.
func RecommendModel(provider, tier string) (string, bool) {
	if provider == "" {
		provider = ProviderGroq
	}
	picks := map[string][2]string{
		ProviderGroq:       {"llama-3.1-8b-instant", "llama-3.3-70b-versatile"},
		ProviderOpenRouter: {"meta-llama/llama-3.1-8b-instruct", "openai/gpt-4o-mini"},
		ProviderOpenAI:     {"gpt-4o-mini", "gpt-4o"},
		ProviderAnthropic:  {"claude-3-5-haiku-latest", "claude-3-5-sonnet-latest"},
		ProviderOllama:     {"llama3.1:8b", "qwen2.5:7b"},
	}
	p, ok := picks[provider]
	if !ok {
		return "", false
	}
	switch tier {
	case "cheap":
		return p[0], true
	case "balanced":
		return p[1], true
	}
	return "", false
}

// ContextBudget returns the prompt token budget for a model: its context
// window minus the completion reserve, or fallback when unknown.
func ContextBudget(model string, reserve, fallback int) int {
	mi, ok := LookupModel(model)
	if !ok || mi.ContextTokens <= reserve {
		return fallback
	}
	return mi.ContextTokens - reserve
}
