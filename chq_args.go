package chq

import (
	"iter"
	r "reflect"

	"github.com/mitranim/refut"
)

/*
Positional raw arguments. Element N binds the Nth distinct placeholder name
and is inserted verbatim, without quoting or escaping. The caller is
responsible for the validity of the resulting SQL. Names beyond the length
of the slice are missing and render as `NULL`.
*/
type Strings []string

// Implement `Args`.
func (Strings) Family() Family { return FamilyRaw }

func (self Strings) resolve(_ []string, out []Resolved) {
	for ind := range min(len(self), len(out)) {
		out[ind] = Resolved{State: StateExplicit, Val: self[ind]}
	}
}

/*
Positional raw arguments with explicit nulls. A nil element renders as
lowercase `null`, a missing one as `NULL`. Otherwise same as `Strings`.
*/
type RawList []*string

// Implement `Args`.
func (RawList) Family() Family { return FamilyRaw }

func (self RawList) resolve(_ []string, out []Resolved) {
	for ind := range min(len(self), len(out)) {
		out[ind] = rawResolved(self[ind])
	}
}

/*
Lazy positional raw arguments. The sequence is consumed at most once per
render, and no more elements are pulled than the query has distinct names.
Otherwise same as `RawList`.
*/
type RawSeq iter.Seq[*string]

// Implement `Args`.
func (RawSeq) Family() Family { return FamilyRaw }

func (self RawSeq) resolve(_ []string, out []Resolved) {
	if self == nil || len(out) == 0 {
		return
	}

	ind := 0
	for val := range self {
		out[ind] = rawResolved(val)
		ind++
		if ind >= len(out) {
			break
		}
	}
}

// Returns a pointer to the given text, for use with `RawList`.
func Raw(val string) *string { return &val }

func rawResolved(val *string) Resolved {
	if val == nil {
		return Resolved{State: StateNull}
	}
	return Resolved{State: StateExplicit, Val: *val}
}

/*
Positional typed arguments. Element N binds the Nth distinct placeholder
name and is formatted by `AppendValue` with the name's template. Nil
elements, including typed nil pointers, render as `NULL`, as do names beyond
the length of the slice.
*/
type List []any

// Implement `Args`.
func (List) Family() Family { return FamilyTyped }

func (self List) resolve(_ []string, out []Resolved) {
	for ind := range min(len(self), len(out)) {
		out[ind] = resolvedOf(self[ind])
	}
}

/*
Named typed arguments. Keys bind placeholders with the same name. A key
mapped to nil and an absent key both render as `NULL`.
*/
type Dict map[string]any

// Implement `Args`.
func (Dict) Family() Family { return FamilyTyped }

func (self Dict) resolve(names []string, out []Resolved) {
	if len(self) == 0 {
		return
	}
	for ind, name := range names {
		val, ok := self[name]
		if ok {
			out[ind] = resolvedOf(val)
		}
	}
}

/*
Converts an arbitrary collection into typed arguments:

	* nil                   ->  no arguments
	* slice or array        ->  `List` of the elements
	* map with string keys  ->  `Dict`
	* anything else         ->  `List` with the value as the only element

Byte slices are values rather than collections, as are `Expr` values.
*/
func Collection(src any) Args {
	switch src := src.(type) {
	case nil:
		return List(nil)
	case List:
		return src
	case Dict:
		return src
	case []any:
		return List(src)
	case map[string]any:
		return Dict(src)
	case []byte, Expr:
		return List{src}
	}

	val := r.ValueOf(src)
	switch val.Kind() {
	case r.Slice, r.Array:
		if val.Type().Elem().Kind() == r.Uint8 {
			return List{src}
		}
		out := make(List, val.Len())
		for ind := range out {
			out[ind] = val.Index(ind).Interface()
		}
		return out

	case r.Map:
		if val.Type().Key().Kind() != r.String {
			return List{src}
		}
		out := make(Dict, val.Len())
		entries := val.MapRange()
		for entries.Next() {
			out[entries.Key().String()] = entries.Value().Interface()
		}
		return out

	default:
		return List{src}
	}
}

/*
Scans a struct, accumulating fields tagged with `db` into a `Dict`. The input
must be a struct or a struct pointer. A nil pointer is fine and produces an
empty non-nil dict. Panics on other inputs. Treats embedded structs as part
of enclosing structs. Fields tagged `db:"-"` and untagged fields are skipped.
*/
func StructDict(src any) Dict { return try1(structDict(src)) }

func structDict(src any) (Dict, error) {
	out := Dict{}
	err := traverseStructDbFields(src, func(name string, val any) {
		out[name] = val
	})
	return out, err
}

func traverseStructDbFields(src any, fun func(string, any)) error {
	if src == nil {
		return errNotStruct(nil)
	}

	rval := r.ValueOf(src)
	rtype := refut.RtypeDeref(rval.Type())
	if rtype.Kind() != r.Struct {
		return errNotStruct(rtype)
	}

	if refut.IsRvalNil(rval) {
		return nil
	}

	return refut.TraverseStructRval(rval, func(rval r.Value, sfield r.StructField, _ []int) error {
		if !isPublic(sfield.PkgPath) {
			return nil
		}
		name := refut.TagIdent(sfield.Tag.Get(`db`))
		if name == `` {
			return nil
		}
		fun(name, rval.Interface())
		return nil
	})
}

func errNotStruct(typ r.Type) error {
	return ErrInvalidInput.while(`traversing struct for DB fields`).because(
		errf(`expected struct, got %v`, typ),
	)
}
