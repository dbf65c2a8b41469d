package render

import (
	"bytes"
	"html/template"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Highlight renders code as syntax-highlighted HTML via chroma. Unknown
// languages and formatter failures fall back to an escaped <pre> block so a
// highlighting problem never loses the code itself.
func Highlight(code, lang string, lineNumbers bool) template.HTML {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	style := styles.Get("github")
	if style == nil {
		style = styles.Fallback
	}
	formatter := chromahtml.New(
		chromahtml.WithClasses(true),
		chromahtml.WithLineNumbers(lineNumbers),
	)
	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return plainCode(code)
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return plainCode(code)
	}
	return template.HTML(buf.String())
}

func plainCode(code string) template.HTML {
	return template.HTML("<pre><code>" + template.HTMLEscapeString(code) + "</code></pre>")
}
