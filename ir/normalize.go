package ir

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// NormalizeDefinition maps a view's SELECT onto a canonical text so that a
// hand-written declaration compares equal to the stored form returned by
// pg_get_viewdef(). The stored form differs in more than layout: the rewriter
// turns IN lists into "= ANY (ARRAY[...])", wraps text comparisons in casts,
// and (on PostgreSQL 15) qualifies column references with the table name.
// The definition is parsed, those rewrites are undone on the AST, and the
// result is deparsed.
func NormalizeDefinition(definition string) string {
	def := strings.TrimSpace(definition)
	def = strings.TrimSuffix(def, ";")
	def = strings.TrimSpace(def)
	if def == "" {
		return def
	}

	result, err := pg_query.Parse(def)
	if err != nil || len(result.Stmts) != 1 {
		// If parsing fails, use the original definition
		return def
	}

	normalizeSelect(result.Stmts[0].Stmt.GetSelectStmt())

	deparsed, err := pg_query.Deparse(result)
	if err != nil {
		return def
	}

	return deparsed
}

// NormalizeCatalog normalizes all view definitions in the catalog and
// computes the relations each definition references.
func NormalizeCatalog(c *Catalog) {
	for _, view := range c.Views {
		normalizeView(view, c.Schema)
	}
}

func normalizeView(view *View, targetSchema string) {
	if view.Schema == "" {
		view.Schema = targetSchema
	}
	view.Definition = NormalizeDefinition(view.Definition)
	view.Dependencies = ExtractRelations(view.Definition, view.Schema)

	if !view.Materialized {
		view.WithData = false
		view.Indexes = nil
		return
	}

	for _, index := range view.Indexes {
		if index.Method == "" {
			index.Method = "btree"
		}
		index.Method = strings.ToLower(index.Method)
	}
}

// normalizeSelect undoes the stored-form rewrites within one SELECT scope.
// Set operation arms, CTEs and subqueries are scopes of their own.
func normalizeSelect(s *pg_query.SelectStmt) {
	if s == nil {
		return
	}

	if s.WithClause != nil {
		for _, cteNode := range s.WithClause.Ctes {
			if cte := cteNode.GetCommonTableExpr(); cte != nil {
				normalizeSelect(cte.Ctequery.GetSelectStmt())
			}
		}
	}

	r := &definitionRewriter{relation: soleRelation(s.FromClause)}
	r.rewriteNodes(s.FromClause)
	r.rewriteNodes(s.TargetList)
	r.rewriteNode(s.WhereClause)
	r.rewriteNode(s.HavingClause)
	r.rewriteNodes(s.GroupClause)
	r.rewriteNodes(s.SortClause)

	normalizeSelect(s.Larg)
	normalizeSelect(s.Rarg)
}

// soleRelation returns the alias or name of the only FROM entry, or "" when
// the FROM clause holds joins, subqueries or more than one relation. With
// several relations in scope a qualifier may be load-bearing and is kept.
func soleRelation(fromClause []*pg_query.Node) string {
	if len(fromClause) != 1 {
		return ""
	}
	rv := fromClause[0].GetRangeVar()
	if rv == nil {
		return ""
	}
	if rv.Alias != nil && rv.Alias.Aliasname != "" {
		return rv.Alias.Aliasname
	}
	return rv.Relname
}

type definitionRewriter struct {
	relation string
}

func (r *definitionRewriter) rewriteNode(n *pg_query.Node) {
	if n == nil {
		return
	}

	switch {
	case n.GetSelectStmt() != nil:
		normalizeSelect(n.GetSelectStmt())
	case n.GetColumnRef() != nil:
		r.stripQualifier(n.GetColumnRef())
	case n.GetAExpr() != nil:
		r.rewriteAExpr(n.GetAExpr())
	case n.GetBoolExpr() != nil:
		r.rewriteNodes(n.GetBoolExpr().Args)
	case n.GetFuncCall() != nil:
		r.rewriteNodes(n.GetFuncCall().Args)
	case n.GetResTarget() != nil:
		r.rewriteNode(n.GetResTarget().Val)
	case n.GetTypeCast() != nil:
		r.rewriteNode(n.GetTypeCast().Arg)
	case n.GetRangeSubselect() != nil:
		r.rewriteNode(n.GetRangeSubselect().Subquery)
	case n.GetSubLink() != nil:
		sub := n.GetSubLink()
		r.rewriteNode(sub.Testexpr)
		r.rewriteNode(sub.Subselect)
	case n.GetCaseExpr() != nil:
		caseExpr := n.GetCaseExpr()
		r.rewriteNode(caseExpr.Arg)
		r.rewriteNodes(caseExpr.Args)
		r.rewriteNode(caseExpr.Defresult)
	case n.GetCaseWhen() != nil:
		caseWhen := n.GetCaseWhen()
		r.rewriteNode(caseWhen.Expr)
		r.rewriteNode(caseWhen.Result)
	case n.GetCoalesceExpr() != nil:
		r.rewriteNodes(n.GetCoalesceExpr().Args)
	case n.GetNullTest() != nil:
		r.rewriteNode(n.GetNullTest().Arg)
	case n.GetRowExpr() != nil:
		r.rewriteNodes(n.GetRowExpr().Args)
	case n.GetSortBy() != nil:
		r.rewriteNode(n.GetSortBy().Node)
	case n.GetList() != nil:
		r.rewriteNodes(n.GetList().Items)
	}
}

func (r *definitionRewriter) rewriteNodes(nodes []*pg_query.Node) {
	for _, n := range nodes {
		r.rewriteNode(n)
	}
}

// rewriteAExpr folds the stored comparison forms back onto their declared
// shape: "= ANY (ARRAY[consts])" becomes IN, "<> ALL (ARRAY[consts])"
// becomes NOT IN, and text-family casts around comparison operands are
// dropped.
func (r *definitionRewriter) rewriteAExpr(expr *pg_query.A_Expr) {
	switch expr.Kind {
	case pg_query.A_Expr_Kind_AEXPR_OP_ANY:
		if operatorName(expr) == "=" {
			foldArrayComparison(expr)
		}
	case pg_query.A_Expr_Kind_AEXPR_OP_ALL:
		if operatorName(expr) == "<>" {
			foldArrayComparison(expr)
		}
	}

	if expr.Kind == pg_query.A_Expr_Kind_AEXPR_OP || expr.Kind == pg_query.A_Expr_Kind_AEXPR_IN {
		expr.Lexpr = stripTextCast(expr.Lexpr)
		expr.Rexpr = stripTextCast(expr.Rexpr)
	}

	r.rewriteNode(expr.Lexpr)
	r.rewriteNode(expr.Rexpr)
}

func operatorName(expr *pg_query.A_Expr) string {
	if len(expr.Name) != 1 {
		return ""
	}
	if s := expr.Name[0].GetString_(); s != nil {
		return s.Sval
	}
	return ""
}

// foldArrayComparison rewrites an ANY/ALL comparison over a constant array
// into the IN form. The operator name is kept: the parser represents
// "x NOT IN (...)" as AEXPR_IN with operator "<>". Arrays holding anything
// but constants stay as they are.
func foldArrayComparison(expr *pg_query.A_Expr) {
	arr := arrayLiteral(expr.Rexpr)
	if arr == nil || len(arr.Elements) == 0 {
		return
	}

	items := make([]*pg_query.Node, 0, len(arr.Elements))
	for _, element := range arr.Elements {
		element = stripConstCasts(element)
		if element.GetAConst() == nil {
			return
		}
		items = append(items, element)
	}

	expr.Kind = pg_query.A_Expr_Kind_AEXPR_IN
	expr.Rexpr = &pg_query.Node{Node: &pg_query.Node_List{List: &pg_query.List{Items: items}}}
}

// arrayLiteral unwraps an array literal, looking through the outer cast the
// rewriter puts around arrays of casted elements ("ARRAY[...]::text[]").
func arrayLiteral(n *pg_query.Node) *pg_query.A_ArrayExpr {
	if n == nil {
		return nil
	}
	if tc := n.GetTypeCast(); tc != nil {
		return arrayLiteral(tc.Arg)
	}
	return n.GetAArrayExpr()
}

// stripConstCasts unwraps every cast around an array element, e.g.
// 'paid'::character varying inside a rewritten IN list.
func stripConstCasts(n *pg_query.Node) *pg_query.Node {
	for {
		tc := n.GetTypeCast()
		if tc == nil || tc.Arg == nil {
			return n
		}
		n = tc.Arg
	}
}

// stripTextCast drops a text-family cast from a comparison operand when it
// wraps a plain column reference or constant. pg_get_viewdef() returns
// "status::text = 'active'::text" for a comparison declared as
// "status = 'active'" on a varchar column.
func stripTextCast(n *pg_query.Node) *pg_query.Node {
	if n == nil {
		return n
	}
	tc := n.GetTypeCast()
	if tc == nil || tc.Arg == nil || !isTextCast(tc.TypeName) {
		return n
	}
	if tc.Arg.GetColumnRef() == nil && tc.Arg.GetAConst() == nil {
		return n
	}
	return tc.Arg
}

func isTextCast(typeName *pg_query.TypeName) bool {
	if typeName == nil || len(typeName.Names) == 0 {
		return false
	}
	last := typeName.Names[len(typeName.Names)-1].GetString_()
	if last == nil {
		return false
	}
	switch last.Sval {
	case "text", "varchar", "bpchar":
		return true
	}
	return false
}

// stripQualifier removes the table qualifier from a column reference when
// the scope has exactly one relation and the qualifier names it.
// PostgreSQL 15 qualifies every column in pg_get_viewdef() output; 16 and
// later leave unambiguous references bare.
func (r *definitionRewriter) stripQualifier(ref *pg_query.ColumnRef) {
	if r.relation == "" || len(ref.Fields) != 2 {
		return
	}
	first := ref.Fields[0].GetString_()
	if first == nil || first.Sval != r.relation {
		return
	}
	ref.Fields = ref.Fields[1:]
}
