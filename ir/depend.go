package ir

import (
	"sort"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// ExtractRelations returns the qualified names of relations referenced by a
// SELECT query. Unqualified references are resolved against defaultSchema.
// The result is used to order view DDL among the managed set, so references
// hidden in constructs this walk does not reach merely fall back to name
// ordering.
func ExtractRelations(query string, defaultSchema string) []string {
	result, err := pg_query.Parse(query)
	if err != nil {
		return nil
	}

	w := &relationWalker{
		defaultSchema: defaultSchema,
		seen:          make(map[string]bool),
		cteNames:      make(map[string]bool),
	}
	for _, raw := range result.Stmts {
		w.walkNode(raw.Stmt)
	}

	relations := make([]string, 0, len(w.seen))
	for name := range w.seen {
		relations = append(relations, name)
	}
	sort.Strings(relations)
	return relations
}

type relationWalker struct {
	defaultSchema string
	seen          map[string]bool
	cteNames      map[string]bool
}

func (w *relationWalker) walkNode(n *pg_query.Node) {
	if n == nil {
		return
	}

	switch {
	case n.GetSelectStmt() != nil:
		w.walkSelect(n.GetSelectStmt())
	case n.GetRangeVar() != nil:
		w.addRelation(n.GetRangeVar())
	case n.GetJoinExpr() != nil:
		join := n.GetJoinExpr()
		w.walkNode(join.Larg)
		w.walkNode(join.Rarg)
		w.walkNode(join.Quals)
	case n.GetRangeSubselect() != nil:
		w.walkNode(n.GetRangeSubselect().Subquery)
	case n.GetRangeFunction() != nil:
		w.walkNodes(n.GetRangeFunction().Functions)
	case n.GetSubLink() != nil:
		sub := n.GetSubLink()
		w.walkNode(sub.Testexpr)
		w.walkNode(sub.Subselect)
	case n.GetBoolExpr() != nil:
		w.walkNodes(n.GetBoolExpr().Args)
	case n.GetAExpr() != nil:
		expr := n.GetAExpr()
		w.walkNode(expr.Lexpr)
		w.walkNode(expr.Rexpr)
	case n.GetFuncCall() != nil:
		w.walkNodes(n.GetFuncCall().Args)
	case n.GetResTarget() != nil:
		w.walkNode(n.GetResTarget().Val)
	case n.GetTypeCast() != nil:
		w.walkNode(n.GetTypeCast().Arg)
	case n.GetCaseExpr() != nil:
		caseExpr := n.GetCaseExpr()
		w.walkNode(caseExpr.Arg)
		w.walkNodes(caseExpr.Args)
		w.walkNode(caseExpr.Defresult)
	case n.GetCaseWhen() != nil:
		caseWhen := n.GetCaseWhen()
		w.walkNode(caseWhen.Expr)
		w.walkNode(caseWhen.Result)
	case n.GetCoalesceExpr() != nil:
		w.walkNodes(n.GetCoalesceExpr().Args)
	case n.GetNullTest() != nil:
		w.walkNode(n.GetNullTest().Arg)
	case n.GetRowExpr() != nil:
		w.walkNodes(n.GetRowExpr().Args)
	case n.GetSortBy() != nil:
		w.walkNode(n.GetSortBy().Node)
	case n.GetList() != nil:
		w.walkNodes(n.GetList().Items)
	}
}

func (w *relationWalker) walkNodes(nodes []*pg_query.Node) {
	for _, n := range nodes {
		w.walkNode(n)
	}
}

func (w *relationWalker) walkSelect(s *pg_query.SelectStmt) {
	if s == nil {
		return
	}

	// CTE names shadow real relations for the rest of the statement; record
	// them before walking so they are excluded from the result.
	if s.WithClause != nil {
		for _, cteNode := range s.WithClause.Ctes {
			cte := cteNode.GetCommonTableExpr()
			if cte == nil {
				continue
			}
			w.cteNames[cte.Ctename] = true
			w.walkNode(cte.Ctequery)
		}
	}

	w.walkNodes(s.FromClause)
	w.walkNodes(s.TargetList)
	w.walkNode(s.WhereClause)
	w.walkNode(s.HavingClause)
	w.walkNodes(s.GroupClause)
	w.walkNodes(s.SortClause)
	for _, values := range s.ValuesLists {
		w.walkNode(values)
	}

	// Set operations (UNION, INTERSECT, EXCEPT)
	if s.Larg != nil {
		w.walkSelect(s.Larg)
	}
	if s.Rarg != nil {
		w.walkSelect(s.Rarg)
	}
}

func (w *relationWalker) addRelation(rv *pg_query.RangeVar) {
	if rv == nil || rv.Relname == "" {
		return
	}
	// Unqualified references to a CTE are not table dependencies
	if rv.Schemaname == "" && w.cteNames[rv.Relname] {
		return
	}
	schema := rv.Schemaname
	if schema == "" {
		schema = w.defaultSchema
	}
	w.seen[schema+"."+rv.Relname] = true
}
