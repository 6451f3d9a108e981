package testutil

import (
	g "github.com/roach88/querysteps/internal/sqlgrammar"
	"github.com/roach88/querysteps/internal/tree"
)

// Query trees shared by the package tests. Each function returns a fresh
// value so callers may modify the result.

// CharakterAuftritt is
//
//	SELECT Charakter.Charakter_Name
//	FROM Charakter INNER JOIN Auftritt
//	  ON Auftritt.Charakter_ID = Charakter.Charakter_ID
func CharakterAuftritt() tree.NodeModel {
	return g.Query(
		g.Select(g.Column("Charakter", "Charakter_Name")),
		g.From(
			[]tree.NodeModel{g.Table("Charakter", "")},
			g.InnerJoinOn(
				g.Table("Auftritt", ""),
				g.Binary(g.Column("Auftritt", "Charakter_ID"), "=", g.Column("Charakter", "Charakter_ID")),
			),
		),
		g.Clauses{},
	)
}

// TagTermin is
//
//	SELECT tag.WOCHENTAG FROM tag, termin WHERE termin.TAG = tag.TAG
//
// The implicit FROM list is represented as a cross join.
func TagTermin() tree.NodeModel {
	where := g.Where(g.Binary(g.Column("termin", "TAG"), "=", g.Column("tag", "TAG")))
	return g.Query(
		g.Select(g.Column("tag", "WOCHENTAG")),
		g.From(
			[]tree.NodeModel{g.Table("tag", "")},
			g.CrossJoin(g.Table("termin", "")),
		),
		g.Clauses{Where: &where},
	)
}

// TwoJoins is
//
//	SELECT Charakter.Charakter_Name, Geschichte.Titel
//	FROM Charakter
//	  INNER JOIN Auftritt ON Auftritt.Charakter_ID = Charakter.Charakter_ID
//	  LEFT OUTER JOIN Geschichte USING (Geschichte_ID)
func TwoJoins() tree.NodeModel {
	return g.Query(
		g.Select(g.Column("Charakter", "Charakter_Name"), g.Column("Geschichte", "Titel")),
		g.From(
			[]tree.NodeModel{g.Table("Charakter", "")},
			g.InnerJoinOn(
				g.Table("Auftritt", ""),
				g.Binary(g.Column("Auftritt", "Charakter_ID"), "=", g.Column("Charakter", "Charakter_ID")),
			),
			g.OuterJoinUsing("left", g.Table("Geschichte", ""), g.Column("Geschichte", "Geschichte_ID")),
		),
		g.Clauses{},
	)
}

// Grouped is
//
//	SELECT termin.TAG, COUNT(termin.TAG)
//	FROM termin
//	WHERE termin.RAUM = 'A'
//	GROUP BY termin.TAG
//	ORDER BY termin.TAG DESC
func Grouped() tree.NodeModel {
	where := g.Where(g.Binary(g.Column("termin", "RAUM"), "=", g.Constant("'A'")))
	groupBy := g.GroupBy(g.Column("termin", "TAG"))
	orderBy := g.OrderBy(g.Sort(g.Column("termin", "TAG"), "DESC"))
	return g.Query(
		g.Select(g.Column("termin", "TAG"), g.Func("COUNT", g.Column("termin", "TAG"))),
		g.From([]tree.NodeModel{g.Table("termin", "")}),
		g.Clauses{Where: &where, GroupBy: &groupBy, OrderBy: &orderBy},
	)
}

// Minimal is SELECT * FROM tag.
func Minimal() tree.NodeModel {
	return g.Query(
		g.Select(g.Star()),
		g.From([]tree.NodeModel{g.Table("tag", "")}),
		g.Clauses{},
	)
}
