// Package render turns Markdown chapter sources into the HTML fragments
// the content lifecycle fetches at read time.
package render

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer converts a tree of Markdown sources into fragment HTML files.
type Renderer struct {
	SourceDir string
	OutputDir string
	Include   []string
	Exclude   []string
	Reporter  Reporter
}

// NewRenderer creates a renderer with the given directories and patterns.
func NewRenderer(sourceDir, outputDir string, include, exclude []string) *Renderer {
	return &Renderer{
		SourceDir: sourceDir,
		OutputDir: outputDir,
		Include:   include,
		Exclude:   exclude,
		Reporter:  NewReporter(),
	}
}

// Render walks the source tree and writes one fragment per Markdown file,
// mirroring the relative layout with an .html extension. It returns the
// number of fragments written.
func (r *Renderer) Render() (int, error) {
	paths, err := r.collectSources()
	if err != nil {
		return 0, err
	}
	if len(paths) == 0 {
		return 0, fmt.Errorf("no markdown sources found in %s", r.SourceDir)
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
		),
	)

	if r.Reporter != nil {
		r.Reporter.Start(len(paths))
	}

	count := 0
	for i, relPath := range paths {
		if r.Reporter != nil {
			r.Reporter.Update(i+1, relPath)
		}

		source, err := os.ReadFile(filepath.Join(r.SourceDir, relPath))
		if err != nil {
			return count, fmt.Errorf("reading %s: %w", relPath, err)
		}

		var buf bytes.Buffer
		if err := md.Convert(source, &buf); err != nil {
			return count, fmt.Errorf("rendering %s: %w", relPath, err)
		}

		outPath := filepath.Join(r.OutputDir, fragmentName(relPath))
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return count, fmt.Errorf("creating output dir: %w", err)
		}
		if err := os.WriteFile(outPath, wrapFragment(buf.Bytes()), 0o644); err != nil {
			return count, fmt.Errorf("writing %s: %w", outPath, err)
		}
		count++
	}

	if r.Reporter != nil {
		r.Reporter.Finish()
	}
	return count, nil
}

// collectSources returns the relative paths of all matching Markdown files.
func (r *Renderer) collectSources() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(r.SourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(r.SourceDir, path)
		if err != nil {
			return err
		}
		if !MatchesInclude(rel, r.Include) || MatchesExclude(rel, r.Exclude) {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", r.SourceDir, err)
	}
	return paths, nil
}

// fragmentName maps a source path to its fragment path.
func fragmentName(relPath string) string {
	return strings.TrimSuffix(relPath, filepath.Ext(relPath)) + ".html"
}

// wrapFragment wraps rendered body HTML in the fragment container the
// shell splices into a section slot.
func wrapFragment(body []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(`<div class="fragment">` + "\n")
	buf.Write(body)
	buf.WriteString("</div>\n")
	return buf.Bytes()
}
