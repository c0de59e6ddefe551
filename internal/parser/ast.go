package parser

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// CodeBlock is a fenced code block of a markdown document.
type CodeBlock struct {
	// Hint is the text of the paragraph or heading right before the block.
	Hint string
	// Lang is the first word of the info string, e.g. "go" or "diff".
	Lang    string
	Content string
}

// ExtractCodeBlocks walks the markdown AST of source and returns its fenced code blocks in document order.
func ExtractCodeBlocks(source []byte) ([]CodeBlock, error) {
	var blocks []CodeBlock
	root := goldmark.DefaultParser().Parse(text.NewReader(source))

	err := ast.Walk(root, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fenced, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		block := CodeBlock{
			Lang:    string(fenced.Language(source)),
			Content: rawText(fenced, source),
		}
		switch prev := fenced.PreviousSibling().(type) {
		case *ast.Paragraph, *ast.Heading:
			block.Hint = strings.TrimSpace(rawText(prev, source))
		}

		blocks = append(blocks, block)
		return ast.WalkSkipChildren, nil
	})
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

// rawText returns the source lines of a block node. Inline markup such as code span backticks is kept.
func rawText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return buf.String()
}
