package chunker

// Point is a (row, column) position in a source file, 0-indexed.
type Point struct {
	Row    uint32
	Column uint32
}

// Node is our own copy of a tree-sitter parse node, detached from the
// tree-sitter C tree so it can outlive Parser.Close().
type Node struct {
	Type       string
	StartByte  uint32
	EndByte    uint32
	StartPoint Point
	EndPoint   Point
	HasError   bool
	Children   []*Node
}

// GetContent slices source by this node's byte range.
func (n *Node) GetContent(source []byte) string {
	if n.StartByte >= n.EndByte || int(n.EndByte) > len(source) {
		return ""
	}
	return string(source[n.StartByte:n.EndByte])
}

// FindChildByType returns the first direct child of the given type.
func (n *Node) FindChildByType(nodeType string) *Node {
	for _, c := range n.Children {
		if c.Type == nodeType {
			return c
		}
	}
	return nil
}

// Walk visits n and its descendants depth-first; fn returning false stops
// recursion into that subtree.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Tree is a parsed file: its root node plus the source it was parsed from.
type Tree struct {
	Root     *Node
	Source   []byte
	Language string
}

// LanguageConfig names the node kinds that count as a "declaration"
// boundary for a language, per spec.md §4.3's AST-boundary strategy.
type LanguageConfig struct {
	Name            string
	Extensions      []string
	DeclarationKinds []string // node types that start a chunk boundary
	NameField       string    // child field holding the declared name
}
