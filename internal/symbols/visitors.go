package symbols

import (
	"github.com/repoctx/repoctx/internal/chunker"
	"github.com/repoctx/repoctx/internal/domain"
)

type emitFunc func(symbol string, kind domain.UsageKind)
type visitorFunc func(root *chunker.Node, source []byte, emit emitFunc)

func languageVisitor(language string) visitorFunc {
	switch language {
	case "go":
		return visitGo
	case "python":
		return visitPython
	case "rust":
		return visitRust
	case "javascript", "jsx":
		return visitJSOrTS
	case "typescript", "tsx":
		return visitJSOrTS
	default:
		return nil
	}
}

func visitGo(root *chunker.Node, source []byte, emit emitFunc) {
	root.Walk(func(n *chunker.Node) bool {
		switch n.Type {
		case "call_expression":
			if fn := n.FindChildByType("identifier"); fn != nil {
				emit(fn.GetContent(source), domain.UsageCall)
			}
			if fn := n.FindChildByType("selector_expression"); fn != nil {
				emit(lastIdentifierText(fn, source), domain.UsageCall)
			}
		case "import_spec", "import_declaration":
			if path := firstLeafText(n, source); path != "" {
				emit(path, domain.UsageImport)
			}
		}
		return true
	})
}

func visitPython(root *chunker.Node, source []byte, emit emitFunc) {
	root.Walk(func(n *chunker.Node) bool {
		switch n.Type {
		case "call":
			if fn := n.FindChildByType("identifier"); fn != nil {
				emit(fn.GetContent(source), domain.UsageCall)
			}
		case "import_statement", "import_from_statement":
			emit(n.GetContent(source), domain.UsageImport)
		case "class_definition":
			emit(n.GetContent(source), domain.UsageInherit)
		}
		return true
	})
}

func visitRust(root *chunker.Node, source []byte, emit emitFunc) {
	root.Walk(func(n *chunker.Node) bool {
		switch n.Type {
		case "use_declaration":
			emit(n.GetContent(source), domain.UsageImport)
		case "call_expression":
			if fn := n.FindChildByType("identifier"); fn != nil {
				emit(fn.GetContent(source), domain.UsageCall)
			}
			if fn := n.FindChildByType("scoped_identifier"); fn != nil {
				emit(fn.GetContent(source), domain.UsageCall)
			}
		case "type_identifier":
			emit(n.GetContent(source), domain.UsageTypeUse)
		}
		return true
	})
}

func visitJSOrTS(root *chunker.Node, source []byte, emit emitFunc) {
	root.Walk(func(n *chunker.Node) bool {
		switch n.Type {
		case "call_expression":
			if fn := n.FindChildByType("identifier"); fn != nil {
				emit(fn.GetContent(source), domain.UsageCall)
			}
		case "import_statement", "import_declaration":
			emit(n.GetContent(source), domain.UsageImport)
		case "class_heritage":
			emit(n.GetContent(source), domain.UsageInherit)
		case "type_identifier":
			emit(n.GetContent(source), domain.UsageTypeUse)
		}
		return true
	})
}

func lastIdentifierText(n *chunker.Node, source []byte) string {
	if len(n.Children) == 0 {
		return n.GetContent(source)
	}
	return n.Children[len(n.Children)-1].GetContent(source)
}

func firstLeafText(n *chunker.Node, source []byte) string {
	if len(n.Children) == 0 {
		return n.GetContent(source)
	}
	for _, c := range n.Children {
		if c.Type == "interpreted_string_literal" {
			return c.GetContent(source)
		}
	}
	return n.Children[0].GetContent(source)
}
