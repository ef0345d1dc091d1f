package scan

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/hounddogai/scan-engine/catalog"
	"github.com/hounddogai/scan-engine/internal/logger"
)

// TypescriptVisitor implements the TS/JS frontend's visit rules, grounded on
// original_source/src/scanner/languages/typescript.rs. leave is a no-op.
type TypescriptVisitor struct{}

// flattenMemberExpression exposes the identifier leaves of a dotted access
// chain: a member_expression node expands to [n, n.property] without
// descending into its object; any other node expands to the concatenated
// expansions of its named children, or to itself when it has none.
func flattenMemberExpression(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	if n.Type() != "member_expression" {
		var out []*sitter.Node
		for _, child := range namedChildren(n) {
			out = append(out, flattenMemberExpression(child)...)
		}
		if len(out) == 0 {
			return []*sitter.Node{n}
		}
		return out
	}
	out := []*sitter.Node{n}
	if prop := n.ChildByFieldName("property"); prop != nil {
		out = append(out, prop)
	}
	return out
}

func (v *TypescriptVisitor) Visit(ctx *FileScanContext, n *sitter.Node) VisitChildren {
	switch n.Type() {
	case "identifier", "property_identifier":
		text := ctx.NodeText(n)
		if element := ctx.FindDataElement(text); element != nil {
			if err := ctx.PutOccurrence(n, element); err != nil {
				logger.Warn(fmt.Sprintf("recording occurrence in %s: %v", ctx.RelativeFilePath, err))
			}
			return VisitChildrenNo
		}

	case "variable_declarator":
		v.visitVariableDeclarator(ctx, n)

	case "assignment_expression":
		v.visitAssignmentExpression(ctx, n)

	case "call_expression":
		v.visitCallExpression(ctx, n)
	}

	return VisitChildrenYes
}

// visitVariableDeclarator registers declared_name -> element_id for any
// property-identifier under the value child that resolves to a data element.
func (v *TypescriptVisitor) visitVariableDeclarator(ctx *FileScanContext, n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	valueNode := n.ChildByFieldName("value")
	if nameNode == nil || valueNode == nil {
		return
	}
	declaredName := ctx.NodeText(nameNode)

	for _, leaf := range flattenMemberExpression(valueNode) {
		if leaf.Type() != "property_identifier" {
			continue
		}
		if element := ctx.FindDataElement(ctx.NodeText(leaf)); element != nil {
			ctx.PutDataElementAlias(declaredName, element.ID)
		}
	}
}

// visitAssignmentExpression registers left_name -> right_text, and also
// left_name -> element_id when the right-hand text itself resolves to an
// element.
func (v *TypescriptVisitor) visitAssignmentExpression(ctx *FileScanContext, n *sitter.Node) {
	leftNode := n.ChildByFieldName("left")
	rightNode := n.ChildByFieldName("right")
	if leftNode == nil || rightNode == nil {
		return
	}
	leftName := ctx.NodeText(leftNode)

	for _, leaf := range flattenMemberExpression(rightNode) {
		if leaf.Type() != "identifier" && leaf.Type() != "property_identifier" {
			continue
		}
		rightText := ctx.NodeText(leaf)
		ctx.PutDataElementAlias(leftName, rightText)
		if element := ctx.FindDataElement(rightText); element != nil {
			ctx.PutDataElementAlias(leftName, element.ID)
		}
	}
}

// visitCallExpression resolves the function child's text as a sink; on hit,
// collects element hits among flattened arguments directly, falling back to
// the local data-element alias table to recover indirect participants.
func (v *TypescriptVisitor) visitCallExpression(ctx *FileScanContext, n *sitter.Node) {
	funcNode := n.ChildByFieldName("function")
	if funcNode == nil {
		return
	}
	funcName := ctx.NodeText(funcNode)
	sink := ctx.FindDataSink(funcName)
	if sink == nil {
		return
	}

	argsNode := n.ChildByFieldName("arguments")
	if argsNode == nil {
		return
	}

	seen := make(map[string]struct{})
	var elements []*catalog.DataElement
	addElement := func(e *catalog.DataElement) {
		if e == nil {
			return
		}
		if _, dup := seen[e.ID]; dup {
			return
		}
		seen[e.ID] = struct{}{}
		elements = append(elements, e)
	}

	var argLeaves []*sitter.Node
	for _, arg := range namedChildren(argsNode) {
		argLeaves = append(argLeaves, flattenMemberExpression(arg)...)
	}

	directHit := false
	for _, leaf := range argLeaves {
		if leaf.Type() != "identifier" && leaf.Type() != "property_identifier" {
			continue
		}
		if element := ctx.FindDataElement(ctx.NodeText(leaf)); element != nil {
			addElement(element)
			directHit = true
		}
	}

	if !directHit {
		for _, leaf := range argLeaves {
			if leaf.Type() != "identifier" {
				continue
			}
			aliasValue, ok := ctx.ResolveDataElementAlias(ctx.NodeText(leaf))
			if !ok {
				continue
			}
			if element, present := ctx.ElementByID(aliasValue); present {
				addElement(element)
			} else if element := ctx.FindDataElement(aliasValue); element != nil {
				addElement(element)
			}
		}
	}

	if len(elements) > 0 {
		if err := ctx.PutVulnerability(n, sink, elements); err != nil {
			logger.Warn(fmt.Sprintf("recording vulnerability in %s: %v", ctx.RelativeFilePath, err))
		}
	}
}

func (v *TypescriptVisitor) Leave(ctx *FileScanContext, n *sitter.Node) {
	// No-op for TypeScript.
}
