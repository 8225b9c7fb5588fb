package queryir

import (
	"fmt"

	"github.com/roach88/causeway/internal/ir"
)

// ValidationResult lists the problems found in a query.
type ValidationResult struct {
	// Valid is true when Problems is empty.
	Valid bool

	Problems []string
}

// Validate checks a query before compilation:
//  1. The session is set
//  2. Every field is a known entity column
//  3. Literal types match the field (Text for text, Int for integers)
//  4. Prefix applies to text fields, Between to integer fields with Min <= Max
//  5. Kind literals name a valid entity kind
//
// Validate is a pure function with no side effects.
func Validate(query Query) ValidationResult {
	v := &validator{problems: []string{}}
	v.validateQuery(query)

	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addProblem("nil query")
	case Select:
		v.validateSelect(query)
	case *Select:
		if query == nil {
			v.addProblem("nil query")
			return
		}
		v.validateSelect(*query)
	default:
		v.addProblem("unknown query type: %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	if sel.Session == "" {
		v.addProblem("session is required")
	}
	if sel.Filter != nil {
		v.validatePredicate(sel.Filter)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
	case Equals:
		v.validateEquals(pred)
	case *Equals:
		v.validateEquals(*pred)
	case Prefix:
		v.validatePrefix(pred)
	case *Prefix:
		v.validatePrefix(*pred)
	case Between:
		v.validateBetween(pred)
	case *Between:
		v.validateBetween(*pred)
	case And:
		v.validateAnd(pred)
	case *And:
		v.validateAnd(*pred)
	default:
		v.addProblem("unknown predicate type: %T", p)
	}
}

func (v *validator) knownField(f Field) bool {
	if !f.Known() {
		v.addProblem("unknown field %q", f)
		return false
	}
	return true
}

func (v *validator) validateEquals(eq Equals) {
	if !v.knownField(eq.Field) {
		return
	}
	switch val := eq.Value.(type) {
	case Text:
		if !eq.Field.IsText() {
			v.addProblem("field %q compares integers, got text %q", eq.Field, string(val))
			return
		}
		if eq.Field == FieldKind && !ir.ValidKinds[ir.Kind(val)] {
			v.addProblem("invalid kind %q (must be Actor, Process or Task)", string(val))
		}
	case Int:
		if !eq.Field.IsInt() {
			v.addProblem("field %q compares text, got integer %d", eq.Field, int64(val))
		}
	case nil:
		v.addProblem("field %q compared to nil", eq.Field)
	default:
		v.addProblem("unsupported value type %T for field %q", eq.Value, eq.Field)
	}
}

func (v *validator) validatePrefix(p Prefix) {
	if !v.knownField(p.Field) {
		return
	}
	if !p.Field.IsText() {
		v.addProblem("prefix needs a text field, %q holds integers", p.Field)
	}
}

func (v *validator) validateBetween(b Between) {
	if !v.knownField(b.Field) {
		return
	}
	if !b.Field.IsInt() {
		v.addProblem("range needs an integer field, %q holds text", b.Field)
	}
	if b.Min > b.Max {
		v.addProblem("empty range on %q: %d > %d", b.Field, b.Min, b.Max)
	}
}

func (v *validator) validateAnd(and And) {
	for _, sub := range and.Predicates {
		v.validatePredicate(sub)
	}
}
