package scan

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/hounddogai/scan-engine/catalog"
	"github.com/hounddogai/scan-engine/findings"
)

// URLLinker builds the source-host link attached to a finding, using
// each provider's own permalink format.
type URLLinker interface {
	Link(relativeFilePath string, lineStart, lineEnd uint) string
}

// FileScanContext is the per-file state a Visitor operates against: source
// bytes, path views, the language tag, the scope stack, the two memoized
// rule-matching caches, the flat data-element alias table TypescriptVisitor
// uses for one-hop propagation, and owning references to the shared catalog
// and the scan-wide finding store.
type FileScanContext struct {
	Source           []byte
	AbsoluteFilePath string
	RelativeFilePath string
	Language         catalog.Language

	Scopes ScopeStack

	catalog *catalog.RuleCatalog
	store   findings.Store
	hasher  findings.IdentityHasher
	linker  URLLinker

	elementCache map[string]*catalog.DataElement
	sinkCache    map[string]*catalog.DataSink

	// dataElementAliases is the flat, unscoped left_name -> (element id or
	// right-hand text) table TypescriptVisitor populates on
	// variable_declarator/assignment_expression to recover indirect
	// vulnerability participants, kept distinct from the
	// per-scope alias maps ScopeStack uses for import-alias sink resolution.
	dataElementAliases map[string]string
}

// NewFileScanContext constructs the per-file context for one source file.
func NewFileScanContext(
	source []byte,
	absolutePath, relativePath string,
	language catalog.Language,
	cat *catalog.RuleCatalog,
	store findings.Store,
	hasher findings.IdentityHasher,
	linker URLLinker,
) *FileScanContext {
	return &FileScanContext{
		Source:             source,
		AbsoluteFilePath:   absolutePath,
		RelativeFilePath:   relativePath,
		Language:           language,
		catalog:            cat,
		store:              store,
		hasher:             hasher,
		linker:             linker,
		elementCache:       make(map[string]*catalog.DataElement),
		sinkCache:          make(map[string]*catalog.DataSink),
		dataElementAliases: make(map[string]string),
	}
}

// NodeText returns the UTF-8 slice of the source bytes covered by n.
func (c *FileScanContext) NodeText(n *sitter.Node) string {
	return string(c.Source[n.StartByte():n.EndByte()])
}

// NodeName returns the text of n's "name" field child. A missing name field
// is a programming error and is surfaced as an error rather than silently
// recovered.
func (c *FileScanContext) NodeName(n *sitter.Node) (string, error) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return "", fmt.Errorf("node %q has no \"name\" field child", n.Type())
	}
	return c.NodeText(nameNode), nil
}

// Positions returns the 1-based (lineStart, lineEnd, colStart, colEnd) for n.
// Tree-sitter end positions are exclusive; this reproduces the reference
// implementation's convention of applying +1 to the end position too, so
// that hash and URL-link construction stay bit-for-bit compatible.
func (c *FileScanContext) Positions(n *sitter.Node) (lineStart, lineEnd, colStart, colEnd uint) {
	start := n.StartPoint()
	end := n.EndPoint()
	return uint(start.Row) + 1, uint(end.Row) + 1, uint(start.Column) + 1, uint(end.Column) + 1
}

// CodeLine extracts the single source line containing n, trimmed of leading
// and trailing whitespace, commas, and semicolons.
func (c *FileScanContext) CodeLine(n *sitter.Node) string {
	start := int(n.StartByte())
	end := int(n.EndByte())

	for start > 0 && c.Source[start-1] != '\n' {
		start--
	}
	for end < len(c.Source) && c.Source[end] != '\n' {
		end++
	}
	line := string(c.Source[start:end])
	return strings.Trim(line, " \t\r,;")
}

// CodeBlock produces a dedented multi-line view of n's text suitable for a
// Markdown fenced block: pad the first line with n's starting
// column of spaces, split on newlines, compute the minimum leading-whitespace
// count across non-blank lines, strip that many columns from every line, and
// rejoin.
func (c *FileScanContext) CodeBlock(n *sitter.Node) string {
	text := c.NodeText(n)
	padding := strings.Repeat(" ", int(n.StartPoint().Column))
	lines := strings.Split(padding+text, "\n")

	minIndent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := 0
		for indent < len(line) && (line[indent] == ' ' || line[indent] == '\t') {
			indent++
		}
		if minIndent == -1 || indent < minIndent {
			minIndent = indent
		}
	}
	if minIndent <= 0 {
		return strings.Join(lines, "\n")
	}
	for i, line := range lines {
		if len(line) >= minIndent {
			lines[i] = line[minIndent:]
		} else {
			lines[i] = strings.TrimLeft(line, " \t")
		}
	}
	return strings.Join(lines, "\n")
}

// PutAlias records local_name -> qualified_name in the innermost lexical
// scope (used for import-alias sink resolution).
func (c *FileScanContext) PutAlias(localName, qualifiedName string) {
	c.Scopes.PutAlias(localName, qualifiedName)
}

// PutDataElementAlias records the flat left_name -> (element id | text)
// association TypescriptVisitor uses for indirect participant recovery.
func (c *FileScanContext) PutDataElementAlias(leftName, value string) {
	c.dataElementAliases[leftName] = value
}

// ResolveDataElementAlias looks up the flat data-element alias table.
func (c *FileScanContext) ResolveDataElementAlias(name string) (string, bool) {
	v, ok := c.dataElementAliases[name]
	return v, ok
}

// ElementByID looks up a data element directly by its catalog id, used to
// resolve a data-element alias whose recorded value is already an element id
// rather than raw text.
func (c *FileScanContext) ElementByID(id string) (*catalog.DataElement, bool) {
	e, ok := c.catalog.Elements[id]
	return e, ok
}

// FindDataElement resolves name to a data element, memoizing both hits and
// misses for the lifetime of the file scan.
func (c *FileScanContext) FindDataElement(name string) *catalog.DataElement {
	if cached, ok := c.elementCache[name]; ok {
		return cached
	}
	normalized := strings.ReplaceAll(name, ".", "_")
	var match *catalog.DataElement
	for _, e := range c.catalog.OrderedElements() {
		if e.Matches(normalized) {
			match = e
			break
		}
	}
	c.elementCache[name] = match
	return match
}

// FindDataSink resolves name through the scope-stack alias chain to its
// original name, then looks up the first matching sink for the file's
// language, memoizing the result keyed by the original name.
func (c *FileScanContext) FindDataSink(name string) *catalog.DataSink {
	if cached, ok := c.sinkCache[name]; ok {
		return cached
	}
	origName := name
	if resolved, ok := c.Scopes.ResolveAlias(name); ok {
		origName = resolved
	}

	var match *catalog.DataSink
	for _, s := range c.catalog.OrderedSinks(c.Language) {
		if s.Matches(origName) {
			match = s
			break
		}
	}
	c.sinkCache[name] = match
	return match
}

// URLLink builds the source-host link for a finding spanning [lineStart,
// lineEnd] in this file.
func (c *FileScanContext) URLLink(lineStart, lineEnd uint) string {
	if c.linker == nil {
		return ""
	}
	return c.linker.Link(c.RelativeFilePath, lineStart, lineEnd)
}

// PutOccurrence constructs the finding's hash and hands it to the store,
// which silently drops it if the hash is in the configured skip set.
func (c *FileScanContext) PutOccurrence(n *sitter.Node, element *catalog.DataElement) error {
	lineStart, lineEnd, colStart, colEnd := c.Positions(n)
	triggerText := c.NodeText(n)
	o := findings.Occurrence{
		DataElementID:    element.ID,
		DataElementName:  element.Name,
		Hash:             c.hasher.Hash(element.ID, c.RelativeFilePath, triggerText),
		Sensitivity:      element.Sensitivity,
		Language:         c.Language,
		CodeSegment:      c.CodeLine(n),
		AbsoluteFilePath: c.AbsoluteFilePath,
		RelativeFilePath: c.RelativeFilePath,
		LineStart:        lineStart,
		LineEnd:          lineEnd,
		ColumnStart:      colStart,
		ColumnEnd:        colEnd,
		URLLink:          c.URLLink(lineStart, lineEnd),
		Source:           element.Source,
		Tags:             element.Tags,
	}
	return c.store.PutOccurrence(o)
}

// PutVulnerability constructs a vulnerability from a call-site node, a
// matched sink, and its participating elements, deriving severity from the
// most sensitive participant.
func (c *FileScanContext) PutVulnerability(n *sitter.Node, sink *catalog.DataSink, elements []*catalog.DataElement) error {
	lineStart, lineEnd, colStart, colEnd := c.Positions(n)
	triggerText := strings.TrimSpace(c.NodeText(n))

	ids := make([]string, 0, len(elements))
	names := make([]string, 0, len(elements))
	sensitivities := make([]catalog.Sensitivity, 0, len(elements))
	for _, e := range elements {
		ids = append(ids, e.ID)
		names = append(names, e.Name)
		sensitivities = append(sensitivities, e.Sensitivity)
	}

	v := findings.Vulnerability{
		DataSinkID:       sink.ID,
		DataElementIDs:   ids,
		DataElementNames: names,
		Hash:             c.hasher.Hash(sink.ID, c.RelativeFilePath, triggerText),
		Description:      sink.Description,
		Remediation:      sink.Remediation,
		Severity:         catalog.DeriveSeverity(sensitivities),
		Language:         c.Language,
		CodeSegment:      c.CodeBlock(n),
		AbsoluteFilePath: c.AbsoluteFilePath,
		RelativeFilePath: c.RelativeFilePath,
		LineStart:        lineStart,
		LineEnd:          lineEnd,
		ColumnStart:      colStart,
		ColumnEnd:        colEnd,
		URLLink:          c.URLLink(lineStart, lineEnd),
		CWE:              sink.CWE,
		OWASP:            sink.OWASP,
	}
	return c.store.PutVulnerability(v)
}
