package render

import (
	"sort"
	"strings"
)

type treeNode struct {
	name     string
	children map[string]*treeNode
	isFile   bool
	marked   bool
}

func newTreeNode() *treeNode {
	return &treeNode{children: make(map[string]*treeNode)}
}

// GenerateTree renders a textual directory tree over repo-relative,
// forward-slash-separated paths, truncated to maxDepth directory
// levels (0 means unlimited). Paths in highlight (set membership) are
// marked with a trailing "*" — used for high-priority files (priority
// >= 0.8) so a reader scanning the tree can spot what mattered most.
func GenerateTree(paths []string, maxDepth int, highlight map[string]bool) string {
	root := newTreeNode()
	for _, p := range paths {
		parts := strings.Split(p, "/")
		node := root
		for i, part := range parts {
			child, ok := node.children[part]
			if !ok {
				child = newTreeNode()
				child.name = part
				node.children[part] = child
			}
			if i == len(parts)-1 {
				child.isFile = true
				child.marked = highlight[p]
			}
			node = child
		}
	}

	var b strings.Builder
	renderNode(&b, root, "", 0, maxDepth)
	return strings.TrimRight(b.String(), "\n")
}

func renderNode(b *strings.Builder, node *treeNode, prefix string, depth int, maxDepth int) {
	names := make([]string, 0, len(node.children))
	for name := range node.children {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		child := node.children[name]
		last := i == len(names)-1
		connector := "├── "
		nextPrefix := prefix + "│   "
		if last {
			connector = "└── "
			nextPrefix = prefix + "    "
		}

		b.WriteString(prefix)
		b.WriteString(connector)
		b.WriteString(name)
		if child.marked {
			b.WriteString(" *")
		}
		b.WriteString("\n")

		if !child.isFile && (maxDepth <= 0 || depth+1 < maxDepth) {
			renderNode(b, child, nextPrefix, depth+1, maxDepth)
		}
	}
}
