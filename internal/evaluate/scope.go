package evaluate

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jscodegen/go-codegen/internal/syntax"
)

// binding finds the nearest declaration of name visible from n. declared reports
// whether any declaration was found; init is set only when that declaration is a
// const with an initializer, the one kind of binding whose value is known statically.
func (e *Evaluator) binding(n *sitter.Node, name string) (init *sitter.Node, declared bool) {
	for scope := n.Parent(); scope != nil; scope = scope.Parent() {
		switch scope.Type() {
		case syntax.NodeProgram:
			if init, declared := e.declaredIn(syntax.Statements(scope), name); declared {
				return init, true
			}
			return nil, e.hoistsVar(scope, name)
		case syntax.NodeStatementBlock, syntax.NodeClassStaticBlock:
			if init, declared := e.declaredIn(syntax.Statements(scope), name); declared {
				return init, true
			}
		case syntax.NodeSwitchBody:
			for _, c := range syntax.NamedChildren(scope) {
				if init, declared := e.declaredIn(syntax.Statements(c), name); declared {
					return init, true
				}
			}
		case syntax.NodeFunctionDeclaration, syntax.NodeFunction, syntax.NodeFunctionExpression,
			syntax.NodeGeneratorFunctionDeclaration, syntax.NodeGeneratorFunction,
			syntax.NodeArrowFunction, syntax.NodeMethodDefinition:
			if e.functionBinds(scope, name) {
				return nil, true
			}
		case syntax.NodeClass:
			if e.nameIs(scope.ChildByFieldName("name"), name) {
				return nil, true
			}
		case syntax.NodeCatchClause:
			if e.binds(scope.ChildByFieldName("parameter"), name) {
				return nil, true
			}
		case syntax.NodeForStatement:
			if _, declared := e.declares(scope.ChildByFieldName("initializer"), name); declared {
				return nil, true
			}
		case syntax.NodeForInStatement:
			if e.binds(scope.ChildByFieldName("left"), name) {
				return nil, true
			}
		}
	}
	return nil, false
}

// declaredIn looks for name among the declarations of a statement list.
func (e *Evaluator) declaredIn(stmts []*sitter.Node, name string) (*sitter.Node, bool) {
	for _, stmt := range stmts {
		if init, declared := e.declares(stmt, name); declared {
			return init, true
		}
	}
	return nil, false
}

// declares reports whether stmt declares name, returning the initializer of a const.
func (e *Evaluator) declares(stmt *sitter.Node, name string) (*sitter.Node, bool) {
	if stmt == nil {
		return nil, false
	}
	switch stmt.Type() {
	case syntax.NodeLexicalDeclaration, syntax.NodeVariableDeclaration:
		isConst := stmt.ChildCount() > 0 && stmt.Child(0).Type() == "const"
		for _, decl := range syntax.NamedChildren(stmt) {
			if decl.Type() != syntax.NodeVariableDeclarator {
				continue
			}
			id := decl.ChildByFieldName("name")
			if !e.binds(id, name) {
				continue
			}
			if isConst && id.Type() == syntax.NodeIdentifier {
				return decl.ChildByFieldName("value"), true
			}
			return nil, true
		}
	case syntax.NodeFunctionDeclaration, syntax.NodeGeneratorFunctionDeclaration, syntax.NodeClassDeclaration:
		return nil, e.nameIs(stmt.ChildByFieldName("name"), name)
	case syntax.NodeExportStatement:
		return e.declares(stmt.ChildByFieldName("declaration"), name)
	case syntax.NodeImportStatement:
		return nil, e.imports(stmt, name)
	}
	return nil, false
}

// functionBinds reports whether a function's own name or parameters bind name, or a
// var anywhere in its body does.
func (e *Evaluator) functionBinds(fn *sitter.Node, name string) bool {
	if t := fn.Type(); t == syntax.NodeFunction || t == syntax.NodeFunctionExpression || t == syntax.NodeGeneratorFunction {
		if e.nameIs(fn.ChildByFieldName("name"), name) {
			return true
		}
	}
	if e.binds(fn.ChildByFieldName("parameters"), name) || e.binds(fn.ChildByFieldName("parameter"), name) {
		return true
	}
	return e.hoistsVar(fn.ChildByFieldName("body"), name)
}

// hoistsVar reports whether a var declaration of name sits inside body without a
// function boundary in between.
func (e *Evaluator) hoistsVar(body *sitter.Node, name string) bool {
	if body == nil {
		return false
	}
	var found bool
	syntax.Walk(body, func(n *sitter.Node) bool {
		if found {
			return false
		}
		switch n.Type() {
		case syntax.NodeFunctionDeclaration, syntax.NodeFunction, syntax.NodeFunctionExpression,
			syntax.NodeGeneratorFunctionDeclaration, syntax.NodeGeneratorFunction,
			syntax.NodeArrowFunction, syntax.NodeMethodDefinition:
			return n == body
		case syntax.NodeVariableDeclaration:
			_, found = e.declares(n, name)
			return false
		}
		return true
	})
	return found
}

// binds reports whether the binding pattern p introduces name. Default values inside
// a pattern are references, not bindings.
func (e *Evaluator) binds(p *sitter.Node, name string) bool {
	if p == nil {
		return false
	}
	switch p.Type() {
	case syntax.NodeIdentifier, syntax.NodeShorthandPropertyPattern:
		return p.Content(e.src) == name
	case syntax.NodeAssignmentPattern, syntax.NodeObjectAssignmentPattern:
		return e.binds(p.ChildByFieldName("left"), name)
	case syntax.NodePairPattern:
		return e.binds(p.ChildByFieldName("value"), name)
	case syntax.NodeRequiredParameter, syntax.NodeOptionalParameter:
		return e.binds(p.ChildByFieldName("pattern"), name)
	case syntax.NodeObjectPattern, syntax.NodeArrayPattern, syntax.NodeRestPattern, syntax.NodeFormalParameters,
		syntax.NodeLexicalDeclaration, syntax.NodeVariableDeclaration:
		for _, c := range syntax.NamedChildren(p) {
			if e.binds(c, name) {
				return true
			}
		}
	case syntax.NodeVariableDeclarator:
		return e.binds(p.ChildByFieldName("name"), name)
	}
	return false
}

// imports reports whether an import statement binds name locally.
func (e *Evaluator) imports(stmt *sitter.Node, name string) bool {
	var found bool
	for _, c := range syntax.NamedChildren(stmt) {
		if c.Type() != syntax.NodeImportClause {
			continue
		}
		syntax.Walk(c, func(n *sitter.Node) bool {
			switch n.Type() {
			case syntax.NodeImportSpecifier:
				local := n.ChildByFieldName("alias")
				if local == nil {
					local = n.ChildByFieldName("name")
				}
				found = found || e.nameIs(local, name)
				return false
			case syntax.NodeIdentifier:
				found = found || n.Content(e.src) == name
			}
			return true
		})
	}
	return found
}

func (e *Evaluator) nameIs(n *sitter.Node, name string) bool {
	return n != nil && n.Content(e.src) == name
}
