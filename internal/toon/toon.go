// Package toon renders an IR model in TOON (Token-Oriented Object Notation),
// a compact tabular summary for reading the model without a JSON viewer.
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/tsmodel/internal/graph"
	"github.com/phobologic/tsmodel/internal/model"
	"github.com/phobologic/tsmodel/internal/typeref"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode converts a model into TOON. Classifiers and relations are listed in
// model order; endpoints are shown by qualified name.
func Encode(m *model.IrModel) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("schemaVersion: %s", encodeValue(m.SchemaVersion)))
	for _, tv := range m.TaggedValues {
		parts = append(parts, fmt.Sprintf("%s: %s", tv.Key, encodeValue(tv.Value)))
	}

	pkgNames := make(map[string]string, len(m.Packages))
	var pkgRows [][]string
	for _, p := range m.Packages {
		pkgNames[p.ID] = p.QualifiedName
	}
	for _, p := range m.Packages {
		pkgRows = append(pkgRows, []string{p.QualifiedName, pkgNames[p.ParentID]})
	}
	parts = append(parts, formatTabular("packages", []string{"name", "parent"}, pkgRows))

	names := make(map[string]string, len(m.Classifiers))
	for _, c := range m.Classifiers {
		names[c.ID] = c.QualifiedName
	}

	var classRows, attrRows, opRows [][]string
	for _, c := range m.Classifiers {
		file, line := "", ""
		if c.SourceRef != nil {
			file, line = c.SourceRef.File, strconv.Itoa(c.SourceRef.Line)
		}
		classRows = append(classRows, []string{
			c.QualifiedName,
			string(c.Kind),
			file,
			line,
			stereotypeNames(c.Stereotypes),
		})
		for _, a := range c.Attributes {
			attrRows = append(attrRows, []string{
				c.QualifiedName,
				a.Name,
				string(a.Visibility),
				typeref.String(a.Type),
			})
		}
		for _, o := range c.Operations {
			opRows = append(opRows, []string{
				c.QualifiedName,
				o.Name,
				string(o.Visibility),
				signature(o),
			})
		}
	}
	parts = append(parts, formatTabular("classifiers", []string{"name", "kind", "file", "line", "stereotypes"}, classRows))
	parts = append(parts, formatTabular("attributes", []string{"classifier", "name", "visibility", "type"}, attrRows))
	parts = append(parts, formatTabular("operations", []string{"classifier", "name", "visibility", "signature"}, opRows))

	var relRows [][]string
	for _, r := range m.Relations {
		role, _ := model.Lookup(r.TaggedValues, graph.RoleTag)
		if role == "" {
			role, _ = model.Lookup(r.TaggedValues, graph.MemberTag)
		}
		relRows = append(relRows, []string{
			string(r.Kind),
			names[r.SourceID],
			names[r.TargetID],
			role,
		})
	}
	parts = append(parts, formatTabular("relations", []string{"kind", "source", "target", "role"}, relRows))

	if len(m.StereotypeDefinitions) > 0 {
		var stRows [][]string
		for _, d := range m.StereotypeDefinitions {
			stRows = append(stRows, []string{d.ID, strings.Join(d.AppliesTo, " ")})
		}
		parts = append(parts, formatTabular("stereotypes", []string{"id", "appliesTo"}, stRows))
	}

	return strings.Join(parts, "\n")
}

func signature(o *model.Operation) string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range o.Parameters {
		if i > 0 {
			b.WriteString(", ")
		}
		if p.IsRest {
			b.WriteString("...")
		}
		b.WriteString(p.Name)
		if p.IsOptional {
			b.WriteByte('?')
		}
		b.WriteString(": ")
		b.WriteString(typeref.String(p.Type))
	}
	b.WriteByte(')')
	if o.ReturnType != nil {
		b.WriteString(" => ")
		b.WriteString(typeref.String(o.ReturnType))
	}
	return b.String()
}

func stereotypeNames(list []model.Stereotype) string {
	names := make([]string, len(list))
	for i, s := range list {
		names[i] = s.Name
	}
	return strings.Join(names, " ")
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
