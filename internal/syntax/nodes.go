package syntax

import (
	"fmt"
	"slices"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Node types of the tree-sitter JavaScript and TypeScript grammars used by the engine.
const (
	NodeProgram              = "program"
	NodeComment              = "comment"
	NodeHashBang             = "hash_bang_line"
	NodeIdentifier           = "identifier"
	NodePropertyIdentifier   = "property_identifier"
	NodeCallExpression       = "call_expression"
	NodeMemberExpression     = "member_expression"
	NodeArguments            = "arguments"
	NodeTemplateString       = "template_string"
	NodeTemplateSubstitution = "template_substitution"
	NodeString               = "string"
	NodeNumber               = "number"
	NodeTrue                 = "true"
	NodeFalse                = "false"
	NodeNull                 = "null"
	NodeUndefined            = "undefined"
	NodeParenthesized        = "parenthesized_expression"
	NodeUnary                = "unary_expression"
	NodeBinary               = "binary_expression"
	NodeArray                = "array"
	NodeObject               = "object"
	NodePair                 = "pair"
	NodeShorthandProperty    = "shorthand_property_identifier"
	NodeComputedProperty     = "computed_property_name"
	NodeImportStatement      = "import_statement"
	NodeExpressionStatement  = "expression_statement"
	NodeLexicalDeclaration   = "lexical_declaration"
	NodeVariableDeclarator   = "variable_declarator"
	NodeStatementBlock       = "statement_block"
	NodeJSXElement           = "jsx_element"
	NodeJSXOpeningElement    = "jsx_opening_element"
	NodeJSXClosingElement    = "jsx_closing_element"
	NodeJSXSelfClosing       = "jsx_self_closing_element"
	NodeJSXExpression        = "jsx_expression"
	NodeJSXText              = "jsx_text"
	NodeSequenceExpression   = "sequence_expression"

	NodeVariableDeclaration          = "variable_declaration"
	NodeFunctionDeclaration          = "function_declaration"
	NodeFunction                     = "function"
	NodeFunctionExpression           = "function_expression"
	NodeGeneratorFunctionDeclaration = "generator_function_declaration"
	NodeGeneratorFunction            = "generator_function"
	NodeArrowFunction                = "arrow_function"
	NodeMethodDefinition             = "method_definition"
	NodeClassDeclaration             = "class_declaration"
	NodeClass                        = "class"
	NodeClassStaticBlock             = "class_static_block"
	NodeCatchClause                  = "catch_clause"
	NodeForStatement                 = "for_statement"
	NodeForInStatement               = "for_in_statement"
	NodeSwitchBody                   = "switch_body"
	NodeExportStatement              = "export_statement"
	NodeImportClause                 = "import_clause"
	NodeImportSpecifier              = "import_specifier"
	NodeFormalParameters             = "formal_parameters"
	NodeRequiredParameter            = "required_parameter"
	NodeOptionalParameter            = "optional_parameter"
	NodeObjectPattern                = "object_pattern"
	NodeArrayPattern                 = "array_pattern"
	NodeAssignmentPattern            = "assignment_pattern"
	NodeObjectAssignmentPattern      = "object_assignment_pattern"
	NodePairPattern                  = "pair_pattern"
	NodeRestPattern                  = "rest_pattern"
	NodeShorthandPropertyPattern     = "shorthand_property_identifier_pattern"
)

// Walk visits n and its named descendants in document order. Returning false from fn
// skips the visited node's children.
func Walk(n *sitter.Node, fn func(*sitter.Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		Walk(n.NamedChild(i), fn)
	}
}

// NamedChildren returns n's named children, comments included.
func NamedChildren(n *sitter.Node) []*sitter.Node {
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}

// IsComment reports whether n is a comment node.
func IsComment(n *sitter.Node) bool {
	return n != nil && n.Type() == NodeComment
}

// Statements returns the statements of a program or block, skipping comments.
func Statements(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for _, c := range NamedChildren(n) {
		switch c.Type() {
		case NodeComment, NodeHashBang:
			continue
		}
		out = append(out, c)
	}
	return out
}

// Expressions returns the named, non-comment children of n, for example the values
// inside an arguments list.
func Expressions(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	var out []*sitter.Node
	for _, c := range NamedChildren(n) {
		if IsComment(c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// LeadingComments returns the comments directly preceding n, in source order.
func LeadingComments(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for p := n.PrevSibling(); p != nil && IsComment(p); p = p.PrevSibling() {
		out = append(out, p)
	}
	slices.Reverse(out)
	return out
}

// CommentValue strips the comment delimiters from raw comment text.
func CommentValue(raw string) string {
	switch {
	case strings.HasPrefix(raw, "//"):
		return raw[2:]
	case strings.HasPrefix(raw, "/*"):
		return strings.TrimSuffix(raw[2:], "*/")
	default:
		return raw
	}
}

// ParentIs reports whether n's parent has type typ.
func ParentIs(n *sitter.Node, typ string) bool {
	p := n.Parent()
	return p != nil && p.Type() == typ
}

// Edit replaces source bytes [Start, End) with Text.
type Edit struct {
	Start int
	End   int
	Text  string
}

// Replace returns an Edit that replaces n.
func Replace(n *sitter.Node, text string) Edit {
	return Edit{Start: Start(n), End: End(n), Text: text}
}

// Apply returns src with edits applied. Edits must not overlap.
func Apply(src []byte, edits []Edit) ([]byte, error) {
	sorted := slices.Clone(edits)
	slices.SortStableFunc(sorted, func(a, b Edit) int {
		return a.Start - b.Start
	})

	out := make([]byte, 0, len(src))
	pos := 0
	for _, e := range sorted {
		if e.Start < pos || e.End < e.Start || e.End > len(src) {
			return nil, fmt.Errorf("edit [%d,%d) overlaps or exceeds source", e.Start, e.End)
		}
		out = append(out, src[pos:e.Start]...)
		out = append(out, e.Text...)
		pos = e.End
	}
	out = append(out, src[pos:]...)
	return out, nil
}
