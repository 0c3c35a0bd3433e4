package parse

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/tsmodel/internal/program"
)

// modules runs the module query and records top-level imports and re-exports.
func (p *fileParser) modules(query *sitter.Query, root *sitter.Node) {
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(query, root)

	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}

		var stmt, source *sitter.Node
		var kind string
		for _, c := range match.Captures {
			switch name := query.CaptureNameForId(c.Index); name {
			case "import", "export":
				stmt, kind = c.Node, name
			case "import.source", "export.source":
				source = c.Node
			}
		}
		if stmt == nil || source == nil {
			continue
		}
		// Statements nested in namespaces or `declare module` blocks are not
		// part of this file's module surface.
		if parent := stmt.Parent(); parent == nil || parent.Type() != "program" {
			continue
		}

		spec := unquote(p.text(source))
		if kind == "import" {
			p.file.Imports = append(p.file.Imports, p.importStatement(stmt, spec))
		} else {
			p.file.Exports = append(p.file.Exports, p.reexport(stmt, spec))
		}
	}
}

func (p *fileParser) importStatement(n *sitter.Node, spec string) *program.Import {
	imp := &program.Import{Spec: spec, Pos: p.pos(n)}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "type", "typeof":
			imp.TypeOnly = imp.TypeOnly || !c.IsNamed()
		case "import_clause":
			p.importClause(c, imp)
		}
	}
	return imp
}

func (p *fileParser) importClause(n *sitter.Node, imp *program.Import) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "identifier":
			imp.Default = p.text(c)
		case "namespace_import":
			for j := 0; j < int(c.NamedChildCount()); j++ {
				if gc := c.NamedChild(j); gc.Type() == "identifier" {
					imp.Namespace = p.text(gc)
				}
			}
		case "named_imports":
			for j := 0; j < int(c.NamedChildCount()); j++ {
				spec := c.NamedChild(j)
				if spec.Type() != "import_specifier" {
					continue
				}
				imported, local := p.specifier(spec)
				if imported != "" {
					imp.Names = append(imp.Names, program.ImportName{Imported: imported, Local: local})
				}
			}
		}
	}
}

// specifier reads `a` or `a as b` from an import or export specifier.
func (p *fileParser) specifier(n *sitter.Node) (name, alias string) {
	if nn := n.ChildByFieldName("name"); nn != nil {
		name = unquote(p.text(nn))
		alias = name
		if an := n.ChildByFieldName("alias"); an != nil {
			alias = unquote(p.text(an))
		}
		return name, alias
	}
	var idents []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "identifier", "string", "type_identifier":
			idents = append(idents, unquote(p.text(c)))
		}
	}
	switch len(idents) {
	case 0:
		return "", ""
	case 1:
		return idents[0], idents[0]
	}
	return idents[0], idents[1]
}

func (p *fileParser) exportClause(n *sitter.Node) []program.ExportName {
	var names []program.ExportName
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "export_specifier" {
			continue
		}
		local, exported := p.specifier(c)
		if local != "" {
			names = append(names, program.ExportName{Local: local, Exported: exported})
		}
	}
	return names
}

func (p *fileParser) reexport(n *sitter.Node, spec string) *program.Export {
	exp := &program.Export{Spec: spec, Pos: p.pos(n)}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "*":
			exp.Star = true
		case "namespace_export":
			for j := 0; j < int(c.NamedChildCount()); j++ {
				if gc := c.NamedChild(j); gc.Type() == "identifier" || gc.Type() == "string" {
					exp.Namespace = unquote(p.text(gc))
				}
			}
		case "export_clause":
			exp.Names = p.exportClause(c)
		}
	}
	if exp.Namespace != "" {
		exp.Star = false
	}
	return exp
}
