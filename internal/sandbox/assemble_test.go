package sandbox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleKeepsSourcesVerbatim(t *testing.T) {
	b := SourceBundle{
		Markup: "<div id='x'>unclosed <b>tags",
		Style:  "p { color: red } /* } */",
		Script: "var s = '</div>'; console.log(s)",
	}
	doc := Assemble(b)

	assert.Contains(t, doc, b.Markup)
	assert.Contains(t, doc, b.Style)
	assert.Contains(t, doc, b.Script)
	assert.True(t, strings.HasPrefix(doc, "<!DOCTYPE html>"))

	// Style comes before markup, markup before the guarded script
	styleAt := strings.Index(doc, b.Style)
	markupAt := strings.Index(doc, b.Markup)
	scriptAt := strings.Index(doc, b.Script)
	assert.Less(t, styleAt, markupAt)
	assert.Less(t, markupAt, scriptAt)
	assert.Less(t, strings.Index(doc, "try {"), scriptAt)
	assert.Greater(t, strings.Index(doc, "catch (error)"), scriptAt)
}

func TestAssembleEmptyBundle(t *testing.T) {
	dom, err := ParseDOM(Assemble(SourceBundle{}))
	require.NoError(t, err)
	assert.NotNil(t, dom.Body())
	assert.Len(t, dom.Scripts(), 1)
}

func TestErrorBlockEscapes(t *testing.T) {
	block := ErrorBlock("<img src=x onerror=alert(1)> & more")
	assert.Contains(t, block, "JavaScript Error: &lt;img src=x onerror=alert(1)&gt; &amp; more")
	assert.Contains(t, block, `class="`+ErrorBlockClass+`"`)
	assert.Equal(t, []string{"JavaScript Error: <img src=x onerror=alert(1)> & more"}, ErrorBlocks("<body>"+block+"</body>"))
}

func TestExposeBlockFunctions(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		contains []string
		same     bool
	}{
		{
			name:     "declarations in try",
			src:      "try {\nfunction a() {}\nvar x = 1;\nfunction b() {}\n} catch (e) {}",
			contains: []string{"{ this.a = a; this.b = b;", "function a() {}"},
		},
		{
			name: "nested functions stay local",
			src:  "try {\nif (true) { function inner() {} }\n} catch (e) {}",
			same: true,
		},
		{
			name: "no try statement",
			src:  "function top() {}",
			same: true,
		},
		{
			name: "syntax error",
			src:  "try { function ( } catch (e) {}",
			same: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := exposeBlockFunctions(tt.src)
			if tt.same {
				assert.Equal(t, tt.src, out)
				return
			}
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
		})
	}
}
