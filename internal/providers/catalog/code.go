package catalog

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
)

// codeRenderer turns code samples into highlighted HTML blocks
type codeRenderer struct {
	md goldmark.Markdown
}

func newCodeRenderer() *codeRenderer {
	return &codeRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(
				highlighting.NewHighlighting(
					highlighting.WithStyle("github"),
				),
			),
		),
	}
}

// Render highlights code as language. An unknown language falls back to
// plain preformatted text.
func (r *codeRenderer) Render(language, code string) (string, error) {
	fence := fenceFor(code)

	var src strings.Builder
	src.WriteString(fence)
	src.WriteString(language)
	src.WriteString("\n")
	src.WriteString(strings.TrimRight(code, "\n"))
	src.WriteString("\n")
	src.WriteString(fence)
	src.WriteString("\n")

	var out bytes.Buffer
	if err := r.md.Convert([]byte(src.String()), &out); err != nil {
		return "", fmt.Errorf("failed to render code: %w", err)
	}
	return out.String(), nil
}

// fenceFor returns a backtick fence longer than any run inside code
func fenceFor(code string) string {
	longest, run := 0, 0
	for _, r := range code {
		if r == '`' {
			run++
			if run > longest {
				longest = run
			}
			continue
		}
		run = 0
	}
	if longest < 3 {
		return "```"
	}
	return strings.Repeat("`", longest+1)
}
