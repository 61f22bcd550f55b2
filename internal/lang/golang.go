package lang

import (
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/tosin2013/docdrift/internal/model"
)

func init() {
	Languages["go"] = &Language{
		Name:         "go",
		Extensions:   []string{".go"},
		lang:         golang.GetLanguage(),
		Declarations: goDeclarations,
		Imports:      goImports,
		ExportList:   func(*sitter.Node, []byte) []string { return nil },
		CallTarget:   goCallTarget,
		IsBranch:     goIsBranch,
	}
}

func goDeclarations(node *sitter.Node, source []byte) []Decl {
	switch node.Type() {
	case "function_declaration":
		d := goFunc(node, source, "")
		return []Decl{d}
	case "method_declaration":
		recv := goFindReceiverType(node, source)
		d := goFunc(node, source, recv)
		return []Decl{d}
	case "type_declaration":
		var decls []Decl
		for _, spec := range namedChildren(node) {
			if spec.Type() != "type_spec" && spec.Type() != "type_alias" {
				continue
			}
			name := FieldText(spec, "name", source)
			if name == "" {
				continue
			}
			typeNode := spec.ChildByFieldName("type")
			kind := model.Type
			if typeNode != nil && typeNode.Type() == "struct_type" {
				kind = model.Class
			}
			decls = append(decls, Decl{
				Kind:      kind,
				Name:      name,
				Signature: "type " + name + " " + CollapseWhitespace(NodeText(typeNode, source)),
				Exported:  IsUpper(name),
				HasDocs:   precededByComment(node, source, ""),
				Line:      Line(spec),
				Body:      typeNode,
			})
		}
		return decls
	}
	return nil
}

// goFunc builds a declaration for a function or, when recv is set, a method
// named Recv.Name.
func goFunc(node *sitter.Node, source []byte, recv string) Decl {
	name := FieldText(node, "name", source)
	params := goParams(node.ChildByFieldName("parameters"), source)
	result := CollapseWhitespace(FieldText(node, "result", source))

	sig := name + CollapseWhitespace(FieldText(node, "parameters", source))
	if result != "" {
		sig += " " + result
	}

	exported := IsUpper(name)
	full := name
	if recv != "" {
		full = recv + "." + name
		exported = exported && IsUpper(recv)
	}

	return Decl{
		Kind:       model.Function,
		Name:       full,
		Signature:  sig,
		Params:     params,
		ReturnType: result,
		Exported:   exported,
		HasDocs:    precededByComment(node, source, ""),
		Line:       Line(node),
		Body:       node.ChildByFieldName("body"),
	}
}

// goParams expands a parameter_list so that `a, b int` yields two params.
func goParams(list *sitter.Node, source []byte) []model.Param {
	var params []model.Param
	for _, decl := range namedChildren(list) {
		typ := CollapseWhitespace(FieldText(decl, "type", source))
		switch decl.Type() {
		case "parameter_declaration":
			var names []string
			for i := 0; i < int(decl.NamedChildCount()); i++ {
				child := decl.NamedChild(i)
				if child.Type() == "identifier" {
					names = append(names, NodeText(child, source))
				}
			}
			if len(names) == 0 {
				params = append(params, model.Param{Type: typ})
			}
			for _, n := range names {
				params = append(params, model.Param{Name: n, Type: typ})
			}
		case "variadic_parameter_declaration":
			params = append(params, model.Param{
				Name:     FieldText(decl, "name", source),
				Type:     "..." + typ,
				Optional: true,
			})
		}
	}
	return params
}

// goFindReceiverType extracts the receiver type name from a method_declaration node.
// Navigates: method_declaration → parameter_list (receiver) → parameter_declaration → type.
func goFindReceiverType(node *sitter.Node, source []byte) string {
	recv := node.ChildByFieldName("receiver")
	for _, param := range namedChildren(recv) {
		if param.Type() == "parameter_declaration" {
			return goExtractTypeName(param.ChildByFieldName("type"), source)
		}
	}
	return ""
}

// goExtractTypeName unwraps pointer and generic types down to the type name.
func goExtractTypeName(typ *sitter.Node, source []byte) string {
	for typ != nil {
		switch typ.Type() {
		case "type_identifier":
			return NodeText(typ, source)
		case "pointer_type", "generic_type":
			typ = typ.NamedChild(0)
		default:
			return ""
		}
	}
	return ""
}

func goImports(node *sitter.Node, source []byte) []model.ImportInfo {
	if node.Type() != "import_declaration" {
		return nil
	}
	var specs []*sitter.Node
	for _, child := range namedChildren(node) {
		switch child.Type() {
		case "import_spec":
			specs = append(specs, child)
		case "import_spec_list":
			for _, spec := range namedChildren(child) {
				if spec.Type() == "import_spec" {
					specs = append(specs, spec)
				}
			}
		}
	}

	var imports []model.ImportInfo
	for _, spec := range specs {
		src := unquote(FieldText(spec, "path", source))
		if src == "" {
			continue
		}
		pkg := path.Base(src)
		imp := model.ImportInfo{Source: src}
		alias := FieldText(spec, "name", source)
		switch alias {
		case "", pkg, "_", ".":
			imp.Names = []string{pkg}
		default:
			imp.Aliases = map[string]string{alias: pkg}
		}
		imp.Relative = strings.HasPrefix(src, ".")
		imports = append(imports, imp)
	}
	return imports
}

func goCallTarget(node *sitter.Node, source []byte) string {
	switch node.Type() {
	case "call_expression":
		fn := node.ChildByFieldName("function")
		if fn == nil {
			return ""
		}
		switch fn.Type() {
		case "identifier":
			return NodeText(fn, source)
		case "selector_expression":
			operand := fn.ChildByFieldName("operand")
			field := FieldText(fn, "field", source)
			if operand != nil && operand.Type() == "identifier" {
				return NodeText(operand, source) + "." + field
			}
			return field
		}
	case "composite_literal":
		typ := node.ChildByFieldName("type")
		if typ == nil {
			return ""
		}
		switch typ.Type() {
		case "type_identifier", "qualified_type":
			return NodeText(typ, source)
		case "generic_type":
			return goExtractTypeName(typ, source)
		}
	}
	return ""
}

func goIsBranch(node *sitter.Node, source []byte) bool {
	switch node.Type() {
	case "if_statement", "for_statement", "expression_case", "type_case", "communication_case":
		return true
	case "binary_expression":
		return operatorIn(node, source, "&&", "||")
	}
	return false
}
