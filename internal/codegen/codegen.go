// Package codegen emits Go source that declares existing database views as
// registered view definitions. It is the adoption path for databases whose
// views predate their declarations.
package codegen

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/dave/jennifer/jen"

	"github.com/pgview/pgview/ir"
)

const viewPackage = "github.com/pgview/pgview/view"

// Generate renders the catalog as a Go file in package pkgName. Each view
// becomes an exported package-level variable, and an init function registers
// them all with the default registry.
func Generate(catalog *ir.Catalog, pkgName string) ([]byte, error) {
	if pkgName == "" {
		pkgName = "views"
	}

	f := jen.NewFile(pkgName)
	f.HeaderComment("Code generated by pgview gen. DO NOT EDIT.")

	usedNames := make(map[string]string)
	var registerArgs []jen.Code

	for _, view := range catalog.SortedViews() {
		goName := exportedName(view.Name)
		if previous, taken := usedNames[goName]; taken {
			return nil, fmt.Errorf("views %q and %q map to the same Go identifier %s", previous, view.Name, goName)
		}
		usedNames[goName] = view.Name

		typeName := "View"
		if view.Materialized {
			typeName = "MaterializedView"
		}

		f.Var().Id(goName).Op("=").Op("&").Qual(viewPackage, typeName).Values(viewDict(view, catalog.Schema))
		f.Line()
		registerArgs = append(registerArgs, jen.Id(goName))
	}

	if len(registerArgs) > 0 {
		f.Func().Id("init").Params().Block(
			jen.Qual(viewPackage, "MustRegister").Call(registerArgs...),
		)
	}

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, fmt.Errorf("failed to render generated code: %w", err)
	}
	return buf.Bytes(), nil
}

func viewDict(view *ir.View, targetSchema string) jen.Dict {
	dict := jen.Dict{
		jen.Id("Name"):  jen.Lit(view.Name),
		jen.Id("Query"): jen.Lit(view.Definition),
	}
	// The target schema is supplied at plan time; only a deviating schema is
	// pinned into the declaration.
	if view.Schema != "" && view.Schema != targetSchema {
		dict[jen.Id("Schema")] = jen.Lit(view.Schema)
	}
	if view.Comment != "" {
		dict[jen.Id("Comment")] = jen.Lit(view.Comment)
	}
	if view.Materialized {
		if view.WithData {
			dict[jen.Id("WithData")] = jen.Lit(true)
		}
		if len(view.Indexes) > 0 {
			var elements []jen.Code
			for _, index := range view.SortedIndexes() {
				elements = append(elements, jen.Values(indexDict(index)))
			}
			dict[jen.Id("Indexes")] = jen.Index().Qual(viewPackage, "Index").Values(elements...)
		}
	}
	return dict
}

func indexDict(index *ir.Index) jen.Dict {
	var columns []jen.Code
	for _, column := range index.Columns {
		columns = append(columns, jen.Lit(column))
	}

	dict := jen.Dict{
		jen.Id("Name"):    jen.Lit(index.Name),
		jen.Id("Columns"): jen.Index().String().Values(columns...),
	}
	if index.Unique {
		dict[jen.Id("Unique")] = jen.Lit(true)
	}
	if index.Method != "" && index.Method != "btree" {
		dict[jen.Id("Method")] = jen.Lit(index.Method)
	}
	return dict
}

// exportedName converts a snake_case view name into an exported Go identifier
func exportedName(name string) string {
	var sb strings.Builder
	upperNext := true
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upperNext = true
			continue
		}
		if upperNext {
			sb.WriteRune(unicode.ToUpper(r))
			upperNext = false
		} else {
			sb.WriteRune(r)
		}
	}

	result := sb.String()
	if result == "" || unicode.IsDigit(rune(result[0])) {
		result = "View" + result
	}
	return result
}
