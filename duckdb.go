package cql2

// This file documents the DuckDB SQL dialect implemented in sql.go.
// ToDuckDBSQL shares sqlEmitter with ToSQL; the dialect differs only in
// three places (per SPEC_FULL.md §4.8): LIKE prefers the `~~` operator
// when no case folding has been applied, accenti renders as
// strip_accents instead of unaccent, and array predicates (a_*)
// render through DuckDB's native list_* functions instead of bare
// function calls of the operator name. Everything else — placeholder
// binding, spatial/temporal function-call emission, geometry EWKT
// parameters — is identical between dialects.
