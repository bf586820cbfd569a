package dialect

// standardClauses open a clause in every dialect.
var standardClauses = []string{
	"SELECT", "FROM", "WHERE", "GROUP BY", "HAVING", "ORDER BY", "LIMIT", "OFFSET",
	"SET", "VALUES", "WITH",
	"INSERT INTO", "UPDATE", "DELETE FROM",
	"DROP TABLE", "DROP VIEW", "TRUNCATE TABLE", "ALTER TABLE",
	"CREATE VIEW", "CREATE INDEX", "CREATE UNIQUE INDEX",
	"UNION ALL", "UNION", "EXCEPT", "INTERSECT",
}

// standardKeywords are offered by completion in every dialect.
var standardKeywords = []string{
	"ALL", "AND", "AS", "ASC", "BETWEEN", "CASE", "CROSS JOIN", "DESC", "DISTINCT",
	"ELSE", "END", "EXISTS", "FULL JOIN", "IN", "INNER JOIN", "IS", "JOIN",
	"LEFT JOIN", "LIKE", "NOT", "NULL", "ON", "OR", "RIGHT JOIN", "THEN",
	"USING", "WHEN",
}

func standard(name string) *Builder {
	return NewDialect(name).
		Clauses(standardClauses...).
		CompletionKeywords(standardKeywords...)
}

func init() {
	Register(standard("sql").Build())

	Register(standard("mysql").
		IdentifierQuotes('`', '"').
		Clauses("INSERT IGNORE INTO", "REPLACE INTO").
		CompletionKeywords("STRAIGHT_JOIN", "REGEXP").
		Build())

	Register(standard("mariadb").
		IdentifierQuotes('`', '"').
		Clauses("INSERT IGNORE INTO", "REPLACE INTO", "RETURNING").
		CompletionKeywords("REGEXP").
		Build())

	Register(standard("postgresql").
		Aliases("postgres", "pg").
		Clauses("RETURNING").
		CompletionKeywords("ILIKE", "LATERAL").
		Build())

	Register(standard("plsql").
		Aliases("oracle").
		CompletionKeywords("CONNECT BY", "START WITH", "MINUS").
		Build())

	Register(standard("db2").
		CompletionKeywords("FETCH FIRST").
		Build())

	Register(standard("sqlite").
		IdentifierQuotes('"', '`', '[').
		Clauses("REPLACE INTO", "RETURNING").
		CompletionKeywords("GLOB").
		Build())

	Register(standard("duckdb").
		Clauses("RETURNING").
		CompletionKeywords("ILIKE", "QUALIFY", "ASOF JOIN").
		Build())
}
