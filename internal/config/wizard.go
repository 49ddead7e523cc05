package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"

	"physbook/internal/book"
)

// RunWizard runs an interactive setup wizard and returns the resulting
// config together with a starter manifest carrying the essential sections.
func RunWizard() (*Config, *book.Manifest, error) {
	fmt.Println("Welcome to physbook! Let's set up your book.")
	fmt.Println()

	titlePrompt := promptui.Prompt{
		Label:   "Book title",
		Default: "Interactive Physics",
	}
	title, err := titlePrompt.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("book title: %w", err)
	}

	idPrompt := promptui.Prompt{
		Label:   "Book id (used for history records)",
		Default: slugify(title),
	}
	bookID, err := idPrompt.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("book id: %w", err)
	}

	sourcePrompt := promptui.Prompt{
		Label:   "Markdown source directory",
		Default: "chapters",
	}
	sourceDir, err := sourcePrompt.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("source dir: %w", err)
	}

	contentPrompt := promptui.Prompt{
		Label:   "Rendered fragment directory",
		Default: "content",
	}
	contentDir, err := contentPrompt.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("content dir: %w", err)
	}

	portPrompt := promptui.Prompt{
		Label:   "Server port",
		Default: "8080",
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 65535 {
				return fmt.Errorf("enter a port between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("port: %w", err)
	}
	port, _ := strconv.Atoi(portStr)

	cfg := DefaultConfig()
	cfg.BookID = bookID
	cfg.SourceDir = sourceDir
	cfg.ContentDir = contentDir
	cfg.Port = port

	// Sources are URL paths under the server's /content/ mount, independent
	// of where the rendered files live on disk.
	manifest := &book.Manifest{
		Title: title,
		Sections: []book.Section{
			{ID: "cover", Title: title, Source: "content/cover.html"},
			{ID: "about", Title: "About", Source: "content/about.html"},
			{ID: "chapters", Title: "Chapters", Source: "content/chapters.html"},
		},
	}

	return cfg, manifest, nil
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastDash := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
