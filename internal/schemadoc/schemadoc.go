// Package schemadoc turns a GraphQL schema into markdown reference pages.
// The generated pages carry normal front matter, so they flow through the
// same loading, rendering and link checking as authored content.
package schemadoc

// schemadoc.go loads the SDL and renders one reference page per type kind

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/gqldocs/gqldocs/internal/content"
)

// File is one generated markdown file, ready to be inserted into the
// content tree or written out next to the authored pages.
type File struct {
	Path string // slash path relative to the content dir, eg. reference/objects.md
	Raw  []byte
}

// Load reads one or more SDL files and parses them into a single schema.
// The standard prelude (built-in scalars and directives) is always included.
func Load(paths ...string) (*ast.Schema, error) {
	if len(paths) == 0 {
		return nil, errors.New("no schema files given")
	}
	sources := make([]*ast.Source, 0, len(paths))
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("%w reading schema %q", err, p)
		}
		sources = append(sources, &ast.Source{Name: filepath.Base(p), Input: string(raw)})
	}
	schema, gqlErr := gqlparser.LoadSchema(sources...)
	if gqlErr != nil {
		return nil, fmt.Errorf("%w loading schema", gqlErr)
	}
	return schema, nil
}

// group is one kind of definition with its own reference page.
type group struct {
	slug   string
	title  string
	blurb  string
	weight int
}

var groups = []group{
	{"objects", "Objects", "Object types and the fields they expose.", 10},
	{"inputs", "Inputs", "Input object types accepted by field arguments.", 20},
	{"enums", "Enums", "Enum types and their values.", 30},
	{"interfaces", "Interfaces", "Interface types and the objects that implement them.", 40},
	{"unions", "Unions", "Union types and their member objects.", 50},
	{"scalars", "Scalars", "Scalar types the schema declares beyond the built-in five.", 60},
	{"directives", "Directives", "Directives the schema declares.", 70},
}

func kindSlug(kind ast.DefinitionKind) string {
	switch kind {
	case ast.Object:
		return "objects"
	case ast.InputObject:
		return "inputs"
	case ast.Enum:
		return "enums"
	case ast.Interface:
		return "interfaces"
	case ast.Union:
		return "unions"
	case ast.Scalar:
		return "scalars"
	}
	return ""
}

// builtinDirectives come from the prelude and are not worth a page.
var builtinDirectives = map[string]bool{
	"include": true, "skip": true, "deprecated": true, "specifiedBy": true,
}

// Generate renders the reference pages for a schema under the given content
// section (usually "reference").  Kinds with no types are skipped; a section
// index page is always produced.  Output is deterministic: type names are
// sorted, with the root operation types leading the objects page.
func Generate(schema *ast.Schema, section string) ([]File, error) {
	if schema == nil {
		return nil, errors.New("nil schema")
	}
	secSlug := content.Slugify(section)
	if secSlug == "" {
		return nil, fmt.Errorf("section %q produces an empty URL slug", section)
	}

	byGroup := make(map[string][]*ast.Definition)
	for name, def := range schema.Types {
		if def.BuiltIn || strings.HasPrefix(name, "__") {
			continue
		}
		if slug := kindSlug(def.Kind); slug != "" {
			byGroup[slug] = append(byGroup[slug], def)
		}
	}
	for slug, defs := range byGroup {
		if slug == "objects" {
			sortObjects(defs, schema)
		} else {
			sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
		}
	}

	var directives []*ast.DirectiveDefinition
	for name, d := range schema.Directives {
		if builtinDirectives[name] {
			continue
		}
		directives = append(directives, d)
	}
	sort.Slice(directives, func(i, j int) bool { return directives[i].Name < directives[j].Name })

	// Every documented type gets an anchor link; anything else stays plain.
	links := make(map[string]string)
	for slug, defs := range byGroup {
		for _, def := range defs {
			links[def.Name] = "/" + secSlug + "/" + slug + "/#" + content.Slugify(def.Name)
		}
	}

	var files []File
	var emitted []group
	for _, g := range groups {
		var body string
		switch g.slug {
		case "directives":
			if len(directives) == 0 {
				continue
			}
			body = renderDirectives(directives, links)
		default:
			defs := byGroup[g.slug]
			if len(defs) == 0 {
				continue
			}
			body = renderDefinitions(g.slug, defs, schema, links)
		}
		files = append(files, File{
			Path: secSlug + "/" + g.slug + ".md",
			Raw:  pageFile(g.title, g.blurb, g.weight, body),
		})
		emitted = append(emitted, g)
	}

	files = append([]File{{
		Path: secSlug + "/_index.md",
		Raw:  indexFile(emitted, byGroup, len(directives)),
	}}, files...)
	return files, nil
}

// sortObjects puts Query, Mutation and Subscription first, then the rest by
// name, so the reference opens with the operations a reader starts from.
func sortObjects(defs []*ast.Definition, schema *ast.Schema) {
	rank := func(d *ast.Definition) int {
		switch {
		case schema.Query != nil && d.Name == schema.Query.Name:
			return 0
		case schema.Mutation != nil && d.Name == schema.Mutation.Name:
			return 1
		case schema.Subscription != nil && d.Name == schema.Subscription.Name:
			return 2
		}
		return 3
	}
	sort.Slice(defs, func(i, j int) bool {
		if ri, rj := rank(defs[i]), rank(defs[j]); ri != rj {
			return ri < rj
		}
		return defs[i].Name < defs[j].Name
	})
}

func pageFile(title, desc string, weight int, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "---\ntitle: %s\ndescription: %s\nweight: %d\n---\n\n", title, desc, weight)
	b.WriteString(body)
	return []byte(b.String())
}

func indexFile(emitted []group, byGroup map[string][]*ast.Definition, directiveCount int) []byte {
	var b strings.Builder
	b.WriteString("---\ntitle: Schema Reference\ndescription: Generated reference for every type the schema defines.\n---\n\n")
	b.WriteString("These pages are generated from the schema SDL. Each one covers a single\nkind of definition.\n\n")
	for _, g := range emitted {
		n := len(byGroup[g.slug])
		noun := "type"
		if g.slug == "directives" {
			n = directiveCount
			noun = "directive"
		}
		if n != 1 {
			noun += "s"
		}
		fmt.Fprintf(&b, "- [%s](%s/): %d %s\n", g.title, g.slug, n, noun)
	}
	return []byte(b.String())
}

// renderDefinitions writes the body for one kind page.  Each type gets a
// heading (which is also its link anchor), its SDL description verbatim, and
// a table of members where the kind has any.
func renderDefinitions(slug string, defs []*ast.Definition, schema *ast.Schema, links map[string]string) string {
	var b strings.Builder
	for i, def := range defs {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "## %s\n\n", def.Name)
		if d := strings.TrimSpace(def.Description); d != "" {
			b.WriteString(d + "\n\n")
		}
		switch slug {
		case "objects":
			if len(def.Interfaces) > 0 {
				b.WriteString("Implements " + nameLinks(def.Interfaces, links) + ".\n\n")
			}
			fieldsTable(&b, def.Fields, links)
		case "inputs":
			fieldsTable(&b, def.Fields, links)
		case "interfaces":
			fieldsTable(&b, def.Fields, links)
			if impls := implementers(schema, def.Name); len(impls) > 0 {
				b.WriteString("\nImplemented by " + nameLinks(impls, links) + ".\n")
			}
		case "enums":
			enumTable(&b, def.EnumValues)
		case "unions":
			b.WriteString("Members: " + nameLinks(def.Types, links) + "\n")
		case "scalars":
			// heading and description say it all
		}
	}
	return b.String()
}

func renderDirectives(directives []*ast.DirectiveDefinition, links map[string]string) string {
	var b strings.Builder
	for i, d := range directives {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "## @%s\n\n", d.Name)
		if desc := strings.TrimSpace(d.Description); desc != "" {
			b.WriteString(desc + "\n\n")
		}
		if d.IsRepeatable {
			b.WriteString("Repeatable: may be applied more than once at the same location.\n\n")
		}
		if len(d.Arguments) > 0 {
			argsTable(&b, d.Arguments, links)
			b.WriteString("\n")
		}
		locs := make([]string, len(d.Locations))
		for j, l := range d.Locations {
			locs[j] = "`" + string(l) + "`"
		}
		b.WriteString("Applies to " + strings.Join(locs, ", ") + ".\n")
	}
	return b.String()
}

func fieldsTable(b *strings.Builder, fields ast.FieldList, links map[string]string) {
	b.WriteString("| Field | Type | Description |\n")
	b.WriteString("| ----- | ---- | ----------- |\n")
	for _, f := range fields {
		if strings.HasPrefix(f.Name, "__") {
			continue
		}
		sig := f.Name + argSig(f.Arguments)
		if f.DefaultValue != nil { // input object fields carry defaults
			sig += " = " + f.DefaultValue.String()
		}
		fmt.Fprintf(b, "| `%s` | %s | %s |\n", sig, typeRef(f.Type, links), describe(f.Description, f.Directives))
	}
}

func argsTable(b *strings.Builder, args ast.ArgumentDefinitionList, links map[string]string) {
	b.WriteString("| Argument | Type | Description |\n")
	b.WriteString("| -------- | ---- | ----------- |\n")
	for _, a := range args {
		sig := a.Name
		if a.DefaultValue != nil {
			sig += " = " + a.DefaultValue.String()
		}
		fmt.Fprintf(b, "| `%s` | %s | %s |\n", sig, typeRef(a.Type, links), describe(a.Description, a.Directives))
	}
}

func enumTable(b *strings.Builder, values ast.EnumValueList) {
	b.WriteString("| Value | Description |\n")
	b.WriteString("| ----- | ----------- |\n")
	for _, v := range values {
		fmt.Fprintf(b, "| `%s` | %s |\n", v.Name, describe(v.Description, v.Directives))
	}
}

// argSig renders a field's argument list the way it reads in SDL, defaults
// included, eg. "(episode: Episode = NEWHOPE)".
func argSig(args ast.ArgumentDefinitionList) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, len(args))
	for i, a := range args {
		s := a.Name + ": " + a.Type.String()
		if a.DefaultValue != nil {
			s += " = " + a.DefaultValue.String()
		}
		parts[i] = s
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// typeRef renders a type reference such as "[Post!]!", linked when the named
// type has a reference page of its own.
func typeRef(t *ast.Type, links map[string]string) string {
	code := "`" + t.String() + "`"
	if route, ok := links[t.Name()]; ok {
		return "[" + code + "](" + route + ")"
	}
	return code
}

// nameLinks renders a list of type names, each linked when documented.
func nameLinks(names []string, links map[string]string) string {
	parts := make([]string, len(names))
	for i, n := range names {
		if route, ok := links[n]; ok {
			parts[i] = "[`" + n + "`](" + route + ")"
		} else {
			parts[i] = "`" + n + "`"
		}
	}
	return strings.Join(parts, ", ")
}

// implementers lists the object types implementing an interface, sorted.
func implementers(schema *ast.Schema, name string) []string {
	var names []string
	for _, d := range schema.PossibleTypes[name] {
		if d.Name != name {
			names = append(names, d.Name)
		}
	}
	sort.Strings(names)
	return names
}

// describe folds a description plus any deprecation notice into one table
// cell: single line, pipes escaped.
func describe(desc string, directives ast.DirectiveList) string {
	out := cell(desc)
	if reason, ok := deprecationOf(directives); ok {
		if out != "" {
			out += " "
		}
		out += "*(deprecated: " + cell(reason) + ")*"
	}
	return out
}

// deprecationOf returns the @deprecated reason when present.  An omitted
// reason gets the GraphQL default text.
func deprecationOf(list ast.DirectiveList) (string, bool) {
	d := list.ForName("deprecated")
	if d == nil {
		return "", false
	}
	reason := "No longer supported"
	if a := d.Arguments.ForName("reason"); a != nil && a.Value != nil && a.Value.Raw != "" {
		reason = a.Value.Raw
	}
	return reason, true
}

// cell makes text safe inside a markdown table cell.
func cell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "|", "\\|")
}
