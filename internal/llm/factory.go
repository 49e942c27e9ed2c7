package llm

import (
	"fmt"
	"strings"
)

// NewProvider returns the provider named by config.Provider, matched
// case-insensitively. "claude" is accepted for anthropic. An empty name
// means generation is off: the result is a nil Provider and no error, and
// the pipeline then serves empty suggestions and fallback case text.
func NewProvider(config Config) (Provider, error) {
	switch name := strings.ToLower(strings.TrimSpace(config.Provider)); name {
	case "":
		return nil, nil
	case "openai":
		return NewOpenAIProvider(config)
	case "anthropic", "claude":
		return NewAnthropicProvider(config)
	case "ollama":
		return NewOllamaProvider(config)
	default:
		return nil, fmt.Errorf("unknown provider %q: want openai, anthropic or ollama", config.Provider)
	}
}
