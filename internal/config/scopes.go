package config

// ScopeConfig describes where a named file-discovery scope looks
type ScopeConfig struct {
	// Roots are directories relative to the project root
	Roots []string `json:"roots" mapstructure:"roots" yaml:"roots"`

	// Pattern is a regular expression matched against the file's base name
	Pattern string `json:"pattern" mapstructure:"pattern" yaml:"pattern"`

	// MaxDepth limits traversal below each root (1 = root entries only)
	MaxDepth int `json:"max_depth" mapstructure:"max_depth" yaml:"max_depth"`
}

// Scope names
const (
	ScopeFrontend    = "frontend"
	ScopeBackend     = "backend"
	ScopeDocs        = "docs"
	ScopeConfigFiles = "config"
	ScopeTooling     = "tooling"
	ScopeAll         = "all"
)

const (
	sourcePattern = `\.(js|jsx|ts|tsx|mjs|cjs|mts|cts|vue|svelte|py|go)$`
	configPattern = `(\.(json|ya?ml|toml|ini|cfg)$)|(^\.[a-z]+rc(\.(js|cjs|json|ya?ml))?$)|(\.config\.(js|cjs|mjs|ts)$)`
)

// DefaultScopes returns the scope-to-directory table.
// This is the single definition shared by every discovery path.
func DefaultScopes() map[string]ScopeConfig {
	return map[string]ScopeConfig{
		ScopeFrontend: {
			Roots:    []string{"src", "components", "pages", "app", "public"},
			Pattern:  `\.(js|jsx|ts|tsx|mjs|cjs|vue|svelte|css|scss|html)$`,
			MaxDepth: 10,
		},
		ScopeBackend: {
			Roots:    []string{"backend", "api", "server", "services"},
			Pattern:  `\.(py|go|js|ts|mjs|cjs|rb|java)$`,
			MaxDepth: 10,
		},
		ScopeDocs: {
			Roots:    []string{"docs", "."},
			Pattern:  `\.(md|mdx|rst|txt)$`,
			MaxDepth: 3,
		},
		ScopeConfigFiles: {
			Roots:    []string{"."},
			Pattern:  configPattern,
			MaxDepth: 1,
		},
		ScopeTooling: {
			Roots:    []string{"scripts", "tools", ".github"},
			Pattern:  `\.(sh|bash|js|mjs|ts|py|ya?ml)$`,
			MaxDepth: 5,
		},
		ScopeAll: {
			Roots:    []string{"."},
			Pattern:  sourcePattern,
			MaxDepth: 10,
		},
	}
}

// DefaultDiscovery is used when a tool has neither files nor a scope:
// source roots plus config files at the project root.
func DefaultDiscovery() []ScopeConfig {
	return []ScopeConfig{
		{
			Roots:    []string{"src", "components", "backend", "api"},
			Pattern:  sourcePattern,
			MaxDepth: 10,
		},
		{
			Roots:    []string{"."},
			Pattern:  configPattern,
			MaxDepth: 1,
		},
	}
}

// DefaultExcludeDirs returns directory names never traversed during discovery
func DefaultExcludeDirs() []string {
	return []string{
		"node_modules",
		".venv",
		"venv",
		"__pycache__",
		".git",
		"dist",
		"build",
		"coverage",
		".pytest_cache",
		".next",
		".nuxt",
		"out",
		".qarun",
		"reports",
		".eslintcache",
		"htmlcov",
	}
}
