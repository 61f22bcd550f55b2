package lang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/ruby"

	"github.com/tosin2013/docdrift/internal/model"
)

func init() {
	Languages["ruby"] = &Language{
		Name:         "ruby",
		Extensions:   []string{".rb"},
		lang:         ruby.GetLanguage(),
		Declarations: rubyDeclarations,
		Imports:      rubyImports,
		ExportList:   func(*sitter.Node, []byte) []string { return nil },
		CallTarget:   rubyCallTarget,
		IsBranch:     rubyIsBranch,
	}
}

func rubyDeclarations(node *sitter.Node, source []byte) []Decl {
	switch node.Type() {
	case "method", "singleton_method":
		return []Decl{rubyMethod(node, source)}
	case "class", "module":
		return []Decl{rubyClass(node, source)}
	}
	return nil
}

func rubyMethod(node *sitter.Node, source []byte) Decl {
	name := FieldText(node, "name", source)
	paramsNode := node.ChildByFieldName("parameters")

	var params []model.Param
	for _, p := range namedChildren(paramsNode) {
		switch p.Type() {
		case "identifier":
			params = append(params, model.Param{Name: NodeText(p, source)})
		case "optional_parameter", "keyword_parameter":
			optional := p.Type() == "optional_parameter" || p.ChildByFieldName("value") != nil
			params = append(params, model.Param{Name: FieldText(p, "name", source), Optional: optional})
		case "splat_parameter", "hash_splat_parameter", "block_parameter":
			params = append(params, model.Param{Name: NodeText(p, source), Optional: true})
		}
	}

	sig := name
	if paramsNode != nil {
		sig += CollapseWhitespace(NodeText(paramsNode, source))
	}
	return Decl{
		Kind:      model.Function,
		Name:      name,
		Signature: sig,
		Params:    params,
		Exported:  true,
		HasDocs:   precededByComment(node, source, ""),
		Line:      Line(node),
		Body:      node,
	}
}

// rubyClassName extracts the name from a class or module node.
func rubyClassName(node *sitter.Node, source []byte) string {
	return FieldText(node, "name", source)
}

func rubyClass(node *sitter.Node, source []byte) Decl {
	name := rubyClassName(node, source)
	var bases []string
	if sc := node.ChildByFieldName("superclass"); sc != nil {
		for _, c := range namedChildren(sc) {
			if c.Type() == "constant" || c.Type() == "scope_resolution" {
				bases = append(bases, NodeText(c, source))
			}
		}
	}

	var methods []string
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		for _, c := range namedChildren(n) {
			switch c.Type() {
			case "method", "singleton_method":
				methods = append(methods, rubyMethod(c, source).Signature)
			case "body_statement":
				visit(c)
			}
		}
	}
	visit(node)

	sig := node.Type() + " " + name
	if len(bases) > 0 {
		sig += " < " + strings.Join(bases, ", ")
	}
	return Decl{
		Kind:      model.Class,
		Name:      name,
		Signature: sig,
		Methods:   methods,
		Bases:     bases,
		Exported:  true,
		HasDocs:   precededByComment(node, source, ""),
		Line:      Line(node),
		Body:      node,
	}
}

func rubyImports(node *sitter.Node, source []byte) []model.ImportInfo {
	if node.Type() != "call" {
		return nil
	}
	method := FieldText(node, "method", source)
	if method != "require" && method != "require_relative" {
		return nil
	}
	args := node.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return nil
	}
	src := unquote(NodeText(args.NamedChild(0), source))
	return []model.ImportInfo{{Source: src, Relative: method == "require_relative"}}
}

func rubyCallTarget(node *sitter.Node, source []byte) string {
	if node.Type() != "call" {
		return ""
	}
	method := FieldText(node, "method", source)
	recv := node.ChildByFieldName("receiver")
	if recv == nil {
		if method == "require" || method == "require_relative" {
			return ""
		}
		return method
	}
	if recv.Type() == "constant" || recv.Type() == "scope_resolution" {
		if method == "new" {
			return NodeText(recv, source)
		}
		return NodeText(recv, source) + "." + method
	}
	return method
}

func rubyIsBranch(node *sitter.Node, source []byte) bool {
	switch node.Type() {
	case "if", "unless", "elsif", "while", "until", "for", "when", "rescue",
		"conditional", "if_modifier", "unless_modifier", "while_modifier", "until_modifier":
		return true
	case "binary":
		return operatorIn(node, source, "&&", "||", "and", "or")
	}
	return false
}
