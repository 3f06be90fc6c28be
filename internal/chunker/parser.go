package chunker

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// Parser wraps a tree-sitter parser and converts its result into our own
// detached Node tree.
type Parser struct {
	parser   *sitter.Parser
	registry *Registry
}

func NewParser() *Parser {
	return &Parser{parser: sitter.NewParser(), registry: DefaultRegistry()}
}

// Parse parses source as the given language, returning a detached Tree.
func (p *Parser) Parse(ctx context.Context, source []byte, language string) (*Tree, error) {
	tsLang, ok := p.registry.TreeSitterLanguage(language)
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s", language)
	}
	p.parser.SetLanguage(tsLang)

	tsTree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse source: %w", err)
	}
	if tsTree == nil {
		return nil, fmt.Errorf("parse source: nil tree")
	}

	return &Tree{Root: convertNode(tsTree.RootNode()), Source: source, Language: language}, nil
}

func (p *Parser) Close() {
	if p.parser != nil {
		p.parser.Close()
	}
}

func convertNode(tsNode *sitter.Node) *Node {
	if tsNode == nil {
		return nil
	}
	node := &Node{
		Type:       tsNode.Type(),
		StartByte:  tsNode.StartByte(),
		EndByte:    tsNode.EndByte(),
		StartPoint: Point{Row: tsNode.StartPoint().Row, Column: tsNode.StartPoint().Column},
		EndPoint:   Point{Row: tsNode.EndPoint().Row, Column: tsNode.EndPoint().Column},
		HasError:   tsNode.HasError(),
		Children:   make([]*Node, 0, tsNode.ChildCount()),
	}
	for i := uint32(0); i < tsNode.ChildCount(); i++ {
		if child := tsNode.Child(int(i)); child != nil {
			node.Children = append(node.Children, convertNode(child))
		}
	}
	return node
}
