package lang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/tosin2013/docdrift/internal/model"
)

func init() {
	Languages["python"] = &Language{
		Name:         "python",
		Extensions:   []string{".py", ".pyi"},
		lang:         python.GetLanguage(),
		Declarations: pythonDeclarations,
		Imports:      pythonImports,
		ExportList:   pythonAllList,
		CallTarget:   pythonCallTarget,
		IsBranch:     pythonIsBranch,
	}
}

func pythonDeclarations(node *sitter.Node, source []byte) []Decl {
	outer := node
	if node.Type() == "decorated_definition" {
		node = node.ChildByFieldName("definition")
		if node == nil {
			return nil
		}
	}
	switch node.Type() {
	case "function_definition":
		d := pythonFunc(node, source, false)
		d.HasDocs = d.HasDocs || precededByComment(outer, source, "")
		return []Decl{d}
	case "class_definition":
		return []Decl{pythonClass(outer, node, source)}
	}
	return nil
}

func pythonFunc(node *sitter.Node, source []byte, method bool) Decl {
	name := FieldText(node, "name", source)
	params := pythonParams(node.ChildByFieldName("parameters"), source, method)
	returnType := FieldText(node, "return_type", source)

	sig := name + CollapseWhitespace(FieldText(node, "parameters", source))
	if returnType != "" {
		sig += " -> " + returnType
	}

	body := node.ChildByFieldName("body")
	return Decl{
		Kind:       model.Function,
		Name:       name,
		Signature:  sig,
		Params:     params,
		ReturnType: returnType,
		Exported:   !strings.HasPrefix(name, "_"),
		HasDocs:    pythonHasDocstring(body),
		Line:       Line(node),
		Body:       body,
	}
}

func pythonClass(outer, node *sitter.Node, source []byte) Decl {
	name := FieldText(node, "name", source)
	var bases []string
	for _, arg := range namedChildren(node.ChildByFieldName("superclasses")) {
		if arg.Type() == "identifier" || arg.Type() == "attribute" {
			bases = append(bases, NodeText(arg, source))
		}
	}

	body := node.ChildByFieldName("body")
	var methods []string
	for _, stmt := range namedChildren(body) {
		def := stmt
		if def.Type() == "decorated_definition" {
			def = def.ChildByFieldName("definition")
		}
		if def == nil || def.Type() != "function_definition" {
			continue
		}
		m := pythonFunc(def, source, true)
		if strings.HasPrefix(m.Name, "_") && m.Name != "__init__" {
			continue
		}
		methods = append(methods, m.Signature)
	}

	sig := "class " + name
	if len(bases) > 0 {
		sig += "(" + strings.Join(bases, ", ") + ")"
	}
	return Decl{
		Kind:      model.Class,
		Name:      name,
		Signature: sig,
		Methods:   methods,
		Bases:     bases,
		Exported:  !strings.HasPrefix(name, "_"),
		HasDocs:   pythonHasDocstring(body) || precededByComment(outer, source, ""),
		Line:      Line(node),
		Body:      body,
	}
}

func pythonParams(list *sitter.Node, source []byte, method bool) []model.Param {
	var params []model.Param
	for i, p := range namedChildren(list) {
		var param model.Param
		switch p.Type() {
		case "identifier":
			param.Name = NodeText(p, source)
		case "typed_parameter":
			for _, c := range namedChildren(p) {
				if c.Type() == "identifier" {
					param.Name = NodeText(c, source)
					break
				}
			}
			param.Type = FieldText(p, "type", source)
		case "default_parameter":
			param.Name = FieldText(p, "name", source)
			param.Optional = true
		case "typed_default_parameter":
			param.Name = FieldText(p, "name", source)
			param.Type = FieldText(p, "type", source)
			param.Optional = true
		case "list_splat_pattern", "dictionary_splat_pattern":
			param.Name = NodeText(p, source)
			param.Optional = true
		default:
			continue
		}
		if method && i == 0 && (param.Name == "self" || param.Name == "cls") {
			continue
		}
		params = append(params, param)
	}
	return params
}

func pythonHasDocstring(body *sitter.Node) bool {
	if body == nil || body.NamedChildCount() == 0 {
		return false
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return false
	}
	return first.NamedChild(0).Type() == "string"
}

func pythonImports(node *sitter.Node, source []byte) []model.ImportInfo {
	switch node.Type() {
	case "import_statement":
		var imports []model.ImportInfo
		for _, c := range namedChildren(node) {
			switch c.Type() {
			case "dotted_name":
				mod := NodeText(c, source)
				imports = append(imports, model.ImportInfo{Source: mod, Names: []string{mod}})
			case "aliased_import":
				mod := FieldText(c, "name", source)
				alias := FieldText(c, "alias", source)
				imports = append(imports, model.ImportInfo{Source: mod, Aliases: map[string]string{alias: mod}})
			}
		}
		return imports
	case "import_from_statement":
		moduleNode := node.ChildByFieldName("module_name")
		imp := model.ImportInfo{Source: NodeText(moduleNode, source)}
		imp.Relative = strings.HasPrefix(imp.Source, ".")
		for _, c := range namedChildren(node) {
			if moduleNode != nil && c.StartByte() == moduleNode.StartByte() {
				continue
			}
			switch c.Type() {
			case "dotted_name":
				imp.Names = append(imp.Names, NodeText(c, source))
			case "aliased_import":
				if imp.Aliases == nil {
					imp.Aliases = make(map[string]string)
				}
				imp.Aliases[FieldText(c, "alias", source)] = FieldText(c, "name", source)
			}
		}
		return []model.ImportInfo{imp}
	}
	return nil
}

// pythonAllList reads `__all__ = [...]` at module level.
func pythonAllList(node *sitter.Node, source []byte) []string {
	if node.Type() != "expression_statement" || node.NamedChildCount() == 0 {
		return nil
	}
	assign := node.NamedChild(0)
	if assign.Type() != "assignment" || FieldText(assign, "left", source) != "__all__" {
		return nil
	}
	var names []string
	for _, item := range namedChildren(assign.ChildByFieldName("right")) {
		if item.Type() == "string" {
			names = append(names, unquote(NodeText(item, source)))
		}
	}
	return names
}

func pythonCallTarget(node *sitter.Node, source []byte) string {
	if node.Type() != "call" {
		return ""
	}
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "identifier":
		return NodeText(fn, source)
	case "attribute":
		obj := fn.ChildByFieldName("object")
		attr := FieldText(fn, "attribute", source)
		if obj != nil && obj.Type() == "identifier" && NodeText(obj, source) != "self" {
			return NodeText(obj, source) + "." + attr
		}
		return attr
	}
	return ""
}

func pythonIsBranch(node *sitter.Node, _ []byte) bool {
	switch node.Type() {
	case "if_statement", "elif_clause", "for_statement", "while_statement",
		"except_clause", "conditional_expression", "boolean_operator", "case_clause":
		return true
	}
	return false
}
