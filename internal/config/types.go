package config

// Config is the top-level physbook configuration, corresponding to .physbook.yml.
type Config struct {
	// BookID keys the reading-history records for this book.
	BookID string `yaml:"book_id" koanf:"book_id"`

	// Manifest is the path to the book manifest (book.yml).
	Manifest string `yaml:"manifest" koanf:"manifest"`

	// SourceDir holds the Markdown chapter sources consumed by render.
	SourceDir string `yaml:"source_dir" koanf:"source_dir"`

	// ContentDir is where rendered HTML fragments live and are served from.
	ContentDir string `yaml:"content_dir" koanf:"content_dir"`

	// DataDir holds the settings blob and the history database.
	DataDir string `yaml:"data_dir" koanf:"data_dir"`

	Port     int  `yaml:"port" koanf:"port"`
	AllowAll bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`

	Include []string `yaml:"include" koanf:"include"`
	Exclude []string `yaml:"exclude" koanf:"exclude"`

	// LockMillis overrides the navigation lock duration when positive.
	LockMillis int `yaml:"lock_ms" koanf:"lock_ms"`
}

// DefaultExcludes are source patterns skipped by the render pipeline.
var DefaultExcludes = []string{
	".git/**",
	"node_modules/**",
	"**/*.draft.md",
	"**/_*.md",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BookID:     "physbook",
		Manifest:   "book.yml",
		SourceDir:  "chapters",
		ContentDir: "content",
		DataDir:    ".physbook",
		Port:       8080,
		Include:    []string{"**/*.md"},
		Exclude:    DefaultExcludes,
	}
}
