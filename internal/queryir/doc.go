// Package queryir provides a small query representation for looking up
// stored entities.
//
// Queries are built from CLI flags or code and compiled to SQL by the
// querysql package. Keeping the representation separate from SQL means
// the filter can be validated (known fields, matching literal types, sane
// ranges) before any statement is built.
//
// Query and Predicate are sealed interfaces using the marker method pattern,
// so backends can switch exhaustively:
//
//	switch p := pred.(type) {
//	case Equals:
//	case Prefix:
//	case Between:
//	case And:
//	}
//
// All literals are Text or Int. There are no NULLs, ORs or joins.
package queryir
