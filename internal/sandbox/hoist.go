package sandbox

import (
	"strings"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"
)

// exposeBlockFunctions makes function declarations at the top level of the
// guard's try block visible as globals, the way browsers treat block-level
// functions in sloppy scripts. Inline handlers such as onclick="showAlert()"
// depend on this. src is returned untouched when it does not parse or
// declares nothing.
func exposeBlockFunctions(src string) string {
	program, err := parser.ParseFile(nil, "", src, 0)
	if err != nil {
		return src
	}

	for _, stmt := range program.Body {
		try, ok := stmt.(*ast.TryStatement)
		if !ok || try.Body == nil {
			continue
		}

		var assigns strings.Builder
		for _, inner := range try.Body.List {
			decl, ok := inner.(*ast.FunctionDeclaration)
			if !ok || decl.Function == nil || decl.Function.Name == nil {
				continue
			}
			name := decl.Function.Name.Name.String()
			assigns.WriteString(" this." + name + " = " + name + ";")
		}
		if assigns.Len() == 0 {
			return src
		}

		// Idx is 1-based; insert just after the opening brace
		at := int(try.Body.LeftBrace)
		if at <= 0 || at > len(src) {
			return src
		}
		return src[:at] + assigns.String() + src[at:]
	}
	return src
}
