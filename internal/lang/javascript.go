package lang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/tosin2013/docdrift/internal/model"
)

func init() {
	Languages["javascript"] = newECMAScript("javascript", []string{".js", ".jsx", ".mjs", ".cjs"}, javascript.GetLanguage())
	Languages["typescript"] = newECMAScript("typescript", []string{".ts", ".mts", ".cts"}, typescript.GetLanguage())
	Languages["tsx"] = newECMAScript("tsx", []string{".tsx"}, tsx.GetLanguage())
}

func newECMAScript(name string, exts []string, l *sitter.Language) *Language {
	return &Language{
		Name:         name,
		Extensions:   exts,
		lang:         l,
		Declarations: jsDeclarations,
		Imports:      jsImports,
		ExportList:   jsExportClause,
		CallTarget:   jsCallTarget,
		IsBranch:     jsIsBranch,
	}
}

func jsDeclarations(node *sitter.Node, source []byte) []Decl {
	outer := node
	exported := false
	if node.Type() == "export_statement" {
		exported = true
		decl := node.ChildByFieldName("declaration")
		if decl == nil {
			// export default function () {} and friends
			decl = node.ChildByFieldName("value")
		}
		if decl == nil {
			return nil
		}
		node = decl
	}
	docs := precededByComment(outer, source, "/**")

	var decls []Decl
	switch node.Type() {
	case "function_declaration", "generator_function_declaration", "function_signature":
		decls = append(decls, jsFunc(node, FieldText(node, "name", source), source))
	case "class_declaration", "abstract_class_declaration", "class":
		if d, ok := jsClass(node, source); ok {
			decls = append(decls, d)
		}
	case "interface_declaration", "type_alias_declaration", "enum_declaration":
		name := FieldText(node, "name", source)
		body := node.ChildByFieldName("body")
		if body == nil {
			body = node.ChildByFieldName("value")
		}
		decls = append(decls, Decl{
			Kind:      model.Type,
			Name:      name,
			Signature: CollapseWhitespace(NodeText(node, source)),
			Line:      Line(node),
			Body:      body,
		})
	case "lexical_declaration", "variable_declaration":
		for _, declarator := range namedChildren(node) {
			if declarator.Type() != "variable_declarator" {
				continue
			}
			value := declarator.ChildByFieldName("value")
			if value == nil {
				continue
			}
			switch value.Type() {
			case "arrow_function", "function", "function_expression", "generator_function":
				decls = append(decls, jsFunc(value, FieldText(declarator, "name", source), source))
			}
		}
	}

	for i := range decls {
		decls[i].Exported = exported
		decls[i].HasDocs = docs
	}
	return decls
}

func jsFunc(node *sitter.Node, name string, source []byte) Decl {
	paramsNode := node.ChildByFieldName("parameters")
	var paramsText string
	if paramsNode != nil {
		paramsText = CollapseWhitespace(NodeText(paramsNode, source))
		if !strings.HasPrefix(paramsText, "(") {
			paramsText = "(" + paramsText + ")"
		}
	} else if p := node.ChildByFieldName("parameter"); p != nil {
		// x => x * 2
		paramsText = "(" + NodeText(p, source) + ")"
		paramsNode = p
	}

	returnType := strings.TrimSpace(strings.TrimPrefix(FieldText(node, "return_type", source), ":"))
	sig := name + paramsText
	if returnType != "" {
		sig += ": " + returnType
	}

	return Decl{
		Kind:       model.Function,
		Name:       name,
		Signature:  sig,
		Params:     jsParams(paramsNode, source),
		ReturnType: returnType,
		Line:       Line(node),
		Body:       node.ChildByFieldName("body"),
	}
}

func jsParams(list *sitter.Node, source []byte) []model.Param {
	if list == nil {
		return nil
	}
	if list.Type() == "identifier" {
		return []model.Param{{Name: NodeText(list, source)}}
	}
	var params []model.Param
	for _, p := range namedChildren(list) {
		switch p.Type() {
		case "identifier", "object_pattern", "array_pattern":
			params = append(params, model.Param{Name: NodeText(p, source)})
		case "assignment_pattern":
			params = append(params, model.Param{Name: FieldText(p, "left", source), Optional: true})
		case "rest_pattern":
			params = append(params, model.Param{Name: NodeText(p, source), Optional: true})
		case "required_parameter", "optional_parameter":
			param := model.Param{
				Name:     FieldText(p, "pattern", source),
				Type:     strings.TrimSpace(strings.TrimPrefix(FieldText(p, "type", source), ":")),
				Optional: p.Type() == "optional_parameter" || p.ChildByFieldName("value") != nil,
			}
			if strings.HasPrefix(param.Name, "...") {
				param.Optional = true
			}
			params = append(params, param)
		}
	}
	return params
}

func jsClass(node *sitter.Node, source []byte) (Decl, bool) {
	name := FieldText(node, "name", source)
	if name == "" {
		return Decl{}, false
	}

	var bases []string
	for _, c := range namedChildren(node) {
		if c.Type() != "class_heritage" {
			continue
		}
		for _, clause := range namedChildren(c) {
			switch clause.Type() {
			case "extends_clause", "implements_clause":
				for _, t := range namedChildren(clause) {
					bases = append(bases, NodeText(t, source))
				}
			default:
				// JavaScript: class_heritage holds the expression directly.
				bases = append(bases, NodeText(clause, source))
			}
		}
	}

	body := node.ChildByFieldName("body")
	var methods []string
	for _, member := range namedChildren(body) {
		if member.Type() != "method_definition" && member.Type() != "method_signature" {
			continue
		}
		mname := FieldText(member, "name", source)
		if strings.HasPrefix(mname, "#") || jsHasModifier(member, source, "private") {
			continue
		}
		methods = append(methods, jsFunc(member, mname, source).Signature)
	}

	sig := "class " + name
	if len(bases) > 0 {
		sig += " extends " + strings.Join(bases, ", ")
	}
	return Decl{
		Kind:      model.Class,
		Name:      name,
		Signature: sig,
		Methods:   methods,
		Bases:     bases,
		Line:      Line(node),
		Body:      body,
	}, true
}

func jsHasModifier(member *sitter.Node, source []byte, modifier string) bool {
	for _, c := range namedChildren(member) {
		if c.Type() == "accessibility_modifier" && NodeText(c, source) == modifier {
			return true
		}
	}
	return false
}

func jsImports(node *sitter.Node, source []byte) []model.ImportInfo {
	if node.Type() != "import_statement" {
		return nil
	}
	src := unquote(FieldText(node, "source", source))
	if src == "" {
		return nil
	}
	imp := importBuilder{model.ImportInfo{
		Source:   src,
		Relative: strings.HasPrefix(src, "."),
	}}
	for _, c := range namedChildren(node) {
		if c.Type() != "import_clause" {
			continue
		}
		for _, part := range namedChildren(c) {
			switch part.Type() {
			case "identifier":
				// default import binds the module's default export
				imp.addAlias(NodeText(part, source), "default")
			case "namespace_import":
				for _, id := range namedChildren(part) {
					if id.Type() == "identifier" {
						imp.addAlias(NodeText(id, source), "*")
					}
				}
			case "named_imports":
				for _, spec := range namedChildren(part) {
					if spec.Type() != "import_specifier" {
						continue
					}
					name := FieldText(spec, "name", source)
					if alias := FieldText(spec, "alias", source); alias != "" {
						imp.addAlias(alias, name)
					} else {
						imp.Names = append(imp.Names, name)
					}
				}
			}
		}
	}
	return []model.ImportInfo{imp.ImportInfo}
}

// jsExportClause reads `export { a, b as c }` and `export default name`.
func jsExportClause(node *sitter.Node, source []byte) []string {
	if node.Type() != "export_statement" || node.ChildByFieldName("declaration") != nil {
		return nil
	}
	var names []string
	for _, c := range namedChildren(node) {
		switch c.Type() {
		case "export_clause":
			for _, spec := range namedChildren(c) {
				if spec.Type() == "export_specifier" {
					names = append(names, FieldText(spec, "name", source))
				}
			}
		case "identifier":
			names = append(names, NodeText(c, source))
		}
	}
	return names
}

func jsCallTarget(node *sitter.Node, source []byte) string {
	var fn *sitter.Node
	switch node.Type() {
	case "call_expression":
		fn = node.ChildByFieldName("function")
	case "new_expression":
		fn = node.ChildByFieldName("constructor")
	default:
		return ""
	}
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "identifier":
		return NodeText(fn, source)
	case "member_expression":
		obj := fn.ChildByFieldName("object")
		prop := FieldText(fn, "property", source)
		if obj != nil && obj.Type() == "identifier" {
			return NodeText(obj, source) + "." + prop
		}
		return prop
	}
	return ""
}

func jsIsBranch(node *sitter.Node, source []byte) bool {
	switch node.Type() {
	case "if_statement", "for_statement", "for_in_statement", "while_statement",
		"do_statement", "switch_case", "catch_clause", "ternary_expression":
		return true
	case "binary_expression":
		return operatorIn(node, source, "&&", "||", "??")
	}
	return false
}

type importBuilder struct {
	model.ImportInfo
}

func (b *importBuilder) addAlias(local, imported string) {
	if b.Aliases == nil {
		b.Aliases = make(map[string]string)
	}
	b.Aliases[local] = imported
}
