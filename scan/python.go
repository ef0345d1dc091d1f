package scan

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/hounddogai/scan-engine/catalog"
	"github.com/hounddogai/scan-engine/internal/logger"
)

// PythonVisitor implements the Python frontend's visit/leave rules, grounded
// on original_source/src/scanner/languages/python.rs.
type PythonVisitor struct{}

func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}

func (v *PythonVisitor) Visit(ctx *FileScanContext, n *sitter.Node) VisitChildren {
	switch n.Type() {
	case "module":
		ctx.Scopes.EnterGlobal()

	case "class_definition":
		name, err := ctx.NodeName(n)
		if err != nil {
			name = ctx.NodeText(n)
		}
		ctx.Scopes.EnterClass(name)

	case "function_definition":
		name, err := ctx.NodeName(n)
		if err != nil {
			name = ctx.NodeText(n)
		}
		ctx.Scopes.EnterFunction(name)

	case "lambda", "list_comprehension", "generator_expression":
		ctx.Scopes.EnterAnonymous(ctx.NodeText(n))

	case "import_statement":
		v.visitImportStatement(ctx, n)

	case "import_from_statement":
		v.visitImportFromStatement(ctx, n)

	case "attribute", "identifier":
		text := ctx.NodeText(n)
		if len(text) > 1 {
			if element := ctx.FindDataElement(text); element != nil {
				if err := ctx.PutOccurrence(n, element); err != nil {
					logger.Warn(fmt.Sprintf("recording occurrence in %s: %v", ctx.RelativeFilePath, err))
				}
				return VisitChildrenNo
			}
		}

	case "call":
		v.visitCall(ctx, n)

	case "assignment":
		// Reserved for future alias propagation; currently no effect.
	}

	return VisitChildrenYes
}

// visitImportStatement handles "import foo.bar as baz" style statements: for
// each aliased_import child, record alias alias_text -> dotted_module_name.
func (v *PythonVisitor) visitImportStatement(ctx *FileScanContext, n *sitter.Node) {
	for _, child := range namedChildren(n) {
		if child.Type() != "aliased_import" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		aliasNode := child.ChildByFieldName("alias")
		if nameNode == nil || aliasNode == nil {
			continue
		}
		ctx.PutAlias(ctx.NodeText(aliasNode), ctx.NodeText(nameNode))
	}
}

// visitImportFromStatement handles "from module import name [as alias]":
// for dotted_name children, alias name -> module.name; for aliased_import
// children, alias alias -> module.orig_name.
func (v *PythonVisitor) visitImportFromStatement(ctx *FileScanContext, n *sitter.Node) {
	moduleNode := n.ChildByFieldName("module_name")
	if moduleNode == nil {
		return
	}
	module := ctx.NodeText(moduleNode)

	for _, child := range namedChildren(n) {
		switch child.Type() {
		case "dotted_name":
			if child == moduleNode {
				continue
			}
			name := ctx.NodeText(child)
			ctx.PutAlias(name, module+"."+name)
		case "aliased_import":
			nameNode := child.ChildByFieldName("name")
			aliasNode := child.ChildByFieldName("alias")
			if nameNode == nil || aliasNode == nil {
				continue
			}
			origName := ctx.NodeText(nameNode)
			ctx.PutAlias(ctx.NodeText(aliasNode), module+"."+origName)
		}
	}
}

// visitCall resolves the function child's text as a sink; on hit, collects
// distinct element hits among the arguments' identifier children and, if
// non-empty, records a Vulnerability.
func (v *PythonVisitor) visitCall(ctx *FileScanContext, n *sitter.Node) {
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
	for _, arg := range namedChildren(argsNode) {
		if arg.Type() != "identifier" {
			continue
		}
		element := ctx.FindDataElement(ctx.NodeText(arg))
		if element == nil {
			continue
		}
		if _, dup := seen[element.ID]; dup {
			continue
		}
		seen[element.ID] = struct{}{}
		elements = append(elements, element)
	}

	if len(elements) > 0 {
		if err := ctx.PutVulnerability(n, sink, elements); err != nil {
			logger.Warn(fmt.Sprintf("recording vulnerability in %s: %v", ctx.RelativeFilePath, err))
		}
	}
}

func (v *PythonVisitor) Leave(ctx *FileScanContext, n *sitter.Node) {
	switch n.Type() {
	case "class_definition", "function_definition", "lambda", "list_comprehension", "generator_expression":
		ctx.Scopes.ExitCurrent()
	}
}
