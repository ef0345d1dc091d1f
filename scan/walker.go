package scan

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// VisitChildren is the "skip children" signal a Visitor returns from Visit.
type VisitChildren int

const (
	VisitChildrenYes VisitChildren = iota
	VisitChildrenNo
)

// Visitor is the language-specific traversal contract. Visit is called
// pre-order on every node not pruned by a prior No; Leave is called exactly
// once per visited node, after all of its visited descendants, regardless of
// what Visit returned.
type Visitor interface {
	Visit(ctx *FileScanContext, n *sitter.Node) VisitChildren
	Leave(ctx *FileScanContext, n *sitter.Node)
}

// Walk drives visitor over the tree rooted at root using a cursor-based
// pre-order traversal: siblings are visited in source order, Leave runs once
// per visited node after its visited descendants, and a No return from Visit
// prunes the subtree without skipping that node's own Leave call.
func Walk(ctx *FileScanContext, root *sitter.Node, visitor Visitor) {
	cursor := sitter.NewTreeCursor(root)
	defer cursor.Close()

	visitedAll := false
	for {
		n := cursor.CurrentNode()
		if !visitedAll {
			result := visitor.Visit(ctx, n)
			if result == VisitChildrenNo || !cursor.GoToFirstChild() {
				visitedAll = true
			}
			continue
		}

		if cursor.GoToNextSibling() {
			visitedAll = false
			visitor.Leave(ctx, n)
			continue
		}

		visitor.Leave(ctx, n)
		if !cursor.GoToParent() {
			return
		}
	}
}
