package sandbox

import (
	"html"
	"strings"
)

// ErrorBlockClass marks the visible error block appended on script failure
const ErrorBlockClass = "sandbox-error"

const errorBlockStyle = "color: red; padding: 10px; background: #ffe6e6; margin: 10px; border-radius: 4px;"

const documentHead = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<style>
`

// reportFunc is the hidden global the guard calls with the caught message,
// so the runner learns about failures without reading them back from markup
const reportFunc = "__sandboxReport"

// guardOpen and guardClose wrap the user script. The catch clause runs inside
// the sandbox and renders the visible block itself.
const guardOpen = `<script ` + guardAttr + `>
try {
`

const guardClose = `
} catch (error) {
    console.error('JavaScript Error:', error);
    if (typeof ` + reportFunc + ` === 'function') {
        ` + reportFunc + `(error && error.message !== undefined ? error.message : error);
    }
    document.body.innerHTML += '<div class="` + ErrorBlockClass + `" style="` + errorBlockStyle + `">JavaScript Error: ' +
        String(error && error.message !== undefined ? error.message : error)
            .replace(/&/g, '&amp;').replace(/</g, '&lt;').replace(/>/g, '&gt;') +
        '</div>';
}
</script>
`

// Assemble builds one standalone document from a bundle. Style and markup are
// copied verbatim; the script is wrapped in a guarded block placed after the
// markup so structure and styles are in place before it executes.
func Assemble(b SourceBundle) string {
	var sb strings.Builder
	sb.Grow(len(documentHead) + len(b.Style) + len(b.Markup) + len(b.Script) + len(guardOpen) + len(guardClose) + 64)

	sb.WriteString(documentHead)
	sb.WriteString(b.Style)
	sb.WriteString("\n</style>\n</head>\n<body>\n")
	sb.WriteString(b.Markup)
	sb.WriteString("\n")
	sb.WriteString(guardOpen)
	sb.WriteString(b.Script)
	sb.WriteString(guardClose)
	sb.WriteString("</body>\n</html>\n")

	return sb.String()
}

// ErrorBlock renders the visible error block for message. The runner uses it
// for failures that escape the in-document guard (syntax errors, timeouts).
func ErrorBlock(message string) string {
	return `<div class="` + ErrorBlockClass + `" style="` + errorBlockStyle + `">JavaScript Error: ` +
		html.EscapeString(message) + `</div>`
}
