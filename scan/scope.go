package scan

// ScopeType is the kind of lexical region a CodeScope represents.
type ScopeType int

const (
	ScopeGlobal ScopeType = iota
	ScopeAnonymous
	ScopeClass
	ScopeFunction
)

func (t ScopeType) String() string {
	switch t {
	case ScopeGlobal:
		return "global"
	case ScopeAnonymous:
		return "anonymous"
	case ScopeClass:
		return "class"
	case ScopeFunction:
		return "function"
	default:
		return "unknown"
	}
}

// CodeScope is a lexical region carrying a name→fully-qualified-name alias map
// used to resolve sink names.
type CodeScope struct {
	Type    ScopeType
	Name    string
	aliases map[string]string
}

func newScope(t ScopeType, name string) *CodeScope {
	return &CodeScope{Type: t, Name: name, aliases: make(map[string]string)}
}

// ScopeStack is a stack of CodeScopes; it is never empty between
// EnterGlobal and the end of file traversal.
type ScopeStack struct {
	scopes []*CodeScope
}

// EnterGlobal pushes a Global scope named "global".
func (s *ScopeStack) EnterGlobal() {
	s.scopes = append(s.scopes, newScope(ScopeGlobal, "global"))
}

// EnterClass pushes a Class scope with the given name.
func (s *ScopeStack) EnterClass(name string) {
	s.scopes = append(s.scopes, newScope(ScopeClass, name))
}

// EnterFunction pushes a Function scope with the given name.
func (s *ScopeStack) EnterFunction(name string) {
	s.scopes = append(s.scopes, newScope(ScopeFunction, name))
}

// EnterAnonymous pushes an Anonymous scope named with the raw node text.
func (s *ScopeStack) EnterAnonymous(rawText string) {
	s.scopes = append(s.scopes, newScope(ScopeAnonymous, rawText))
}

// ExitCurrent pops the top scope. It is a no-op if the stack is empty, which
// only happens if callers pop more than they pushed; this should never occur
// between EnterGlobal and the end of traversal.
func (s *ScopeStack) ExitCurrent() {
	if len(s.scopes) == 0 {
		return
	}
	s.scopes = s.scopes[:len(s.scopes)-1]
}

// Current returns the innermost scope, or nil if the stack is empty.
func (s *ScopeStack) Current() *CodeScope {
	if len(s.scopes) == 0 {
		return nil
	}
	return s.scopes[len(s.scopes)-1]
}

// PutAlias inserts local_name -> qualified_name into the top scope's map.
func (s *ScopeStack) PutAlias(localName, qualifiedName string) {
	cur := s.Current()
	if cur == nil {
		return
	}
	cur.aliases[localName] = qualifiedName
}

// ResolveAlias searches scopes from innermost to outermost for name, returning
// the first hit's qualified name. If no alias exists, ok is false and callers
// should use the original name.
func (s *ScopeStack) ResolveAlias(name string) (string, bool) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if qualified, ok := s.scopes[i].aliases[name]; ok {
			return qualified, true
		}
	}
	return "", false
}
