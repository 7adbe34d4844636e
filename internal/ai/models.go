package ai

import (
	"encoding/json"
	"os"
	"sort"
)

// ModelInfo is catalog metadata used to size prompts and show cost hints.
// Prices are illustrative.
type ModelInfo struct {
	Name          string
	Provider      string
	ContextTokens int     // approximate context window
	InputPerK     float64 // USD per 1K input tokens
	OutputPerK    float64 // USD per 1K output tokens
}

var models = map[string]ModelInfo{
	"llama-3.1-8b-instant":    {Name: "llama-3.1-8b-instant", Provider: ProviderGroq, ContextTokens: 131072, InputPerK: 0.00005, OutputPerK: 0.00008},
	"llama-3.3-70b-versatile": {Name: "llama-3.3-70b-versatile", Provider: ProviderGroq, ContextTokens: 131072, InputPerK: 0.00059, OutputPerK: 0.00079},
	"gemma2-9b-it":            {Name: "gemma2-9b-it", Provider: ProviderGroq, ContextTokens: 8192, InputPerK: 0.0002, OutputPerK: 0.0002},

	"meta-llama/llama-3.1-8b-instruct": {Name: "meta-llama/llama-3.1-8b-instruct", Provider: ProviderOpenRouter, ContextTokens: 131072},
	"deepseek/deepseek-r1:free":        {Name: "deepseek/deepseek-r1:free", Provider: ProviderOpenRouter, ContextTokens: 128000},
	"openai/gpt-4o-mini":               {Name: "openai/gpt-4o-mini", Provider: ProviderOpenRouter, ContextTokens: 128000, InputPerK: 0.00015, OutputPerK: 0.0006},

	"gpt-4o-mini": {Name: "gpt-4o-mini", Provider: ProviderOpenAI, ContextTokens: 128000, InputPerK: 0.00015, OutputPerK: 0.0006},
	"gpt-4o":      {Name: "gpt-4o", Provider: ProviderOpenAI, ContextTokens: 128000, InputPerK: 0.0025, OutputPerK: 0.01},

	"claude-3-5-haiku-latest":  {Name: "claude-3-5-haiku-latest", Provider: ProviderAnthropic, ContextTokens: 200000, InputPerK: 0.0008, OutputPerK: 0.004},
	"claude-3-5-sonnet-latest": {Name: "claude-3-5-sonnet-latest", Provider: ProviderAnthropic, ContextTokens: 200000, InputPerK: 0.003, OutputPerK: 0.015},

	"llama3.1:8b":  {Name: "llama3.1:8b", Provider: ProviderOllama, ContextTokens: 8192},
	"mistral:7b":   {Name: "mistral:7b", Provider: ProviderOllama, ContextTokens: 8192},
	"qwen2.5:7b":   {Name: "qwen2.5:7b", Provider: ProviderOllama, ContextTokens: 32768},
	"phi3:mini-4k": {Name: "phi3:mini-4k", Provider: ProviderOllama, ContextTokens: 4096},
}

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	mi, ok := models[name]
	return mi, ok
}

// EstimateCostUSD estimates total cost in USD for given tokens using model pricing.
// If the model is unknown, returns 0 and ok=false.
func EstimateCostUSD(model string, promptTokens, completionTokens int) (float64, bool) {
	mi, ok := LookupModel(model)
	if !ok {
		return 0, false
	}
	inCost := (float64(promptTokens) / 1000.0) * mi.InputPerK
	outCost := (float64(completionTokens) / 1000.0) * mi.OutputPerK
	return inCost + outCost, true
}

// ModelsFor returns the catalog entries for a provider sorted by name.
// An empty provider returns every entry.
func ModelsFor(provider string) []ModelInfo {
	var out []ModelInfo
	for _, m := range models {
		if provider == "" || m.Provider == provider {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// LoadCatalogFromJSON loads a JSON object map[string]ModelInfo from a file path.
func LoadCatalogFromJSON(path string) (map[string]ModelInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var m map[string]ModelInfo
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

// MergeCatalog merges/overrides entries in the in-memory catalog.
func MergeCatalog(m map[string]ModelInfo) {
	for k, v := range m {
		if v.Name == "" {
			v.Name = k
		}
		models[k] = v
	}
}
