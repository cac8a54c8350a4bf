package chq

/*
Short for "expression". Defines an arbitrary SQL expression that has already
been rendered to literal text. When a value implementing this interface is
bound to a placeholder or to an ordinal parameter of `Query.Append`, its text
is inserted verbatim, without quoting. Implemented by `Query`.
*/
type Expr interface {
	AppendExpr([]byte) []byte
}

/*
Appends a text repesentation. Sometimes allows better efficiency than
`fmt.Stringer`. When a bound value implements this interface but not `Expr`,
the formatter treats the output as the value's plain text form.
*/
type Appender interface {
	Append([]byte) []byte
}

/*
Optional interface for values that may represent SQL null without being Go
nil. Bound values that report `IsNull() == true` render as `NULL`.
*/
type Nullable interface {
	IsNull() bool
}

/*
Source of arguments for `(*Prep).Apply`. This is a closed set: the package
provides the positional raw variants `Strings`, `RawList` and `RawSeq`, the
positional typed variant `List`, and the named typed variants `Dict` and the
output of `StructDict`. The family decides how nulls and values are rendered,
see `Family`.
*/
type Args interface {
	Family() Family

	/**
	Resolves each name, by position in `names`, into `out`, which is
	pre-sized to `len(names)` and zeroed (all `StateMissing`).
	*/
	resolve(names []string, out []Resolved)
}

/*
Rendering family of an `Args` variant. Raw arguments are SQL text inserted
verbatim; an explicit null renders as lowercase `null` and a missing argument
as uppercase `NULL`. Typed arguments are Go values rendered by `AppendValue`
with the placeholder's template; null and missing both render as `NULL`.
*/
type Family byte

const (
	FamilyTyped Family = 0
	FamilyRaw   Family = 1
)

// Implement `fmt.Stringer` for debug purposes.
func (self Family) String() string {
	switch self {
	case FamilyRaw:
		return `raw`
	default:
		return `typed`
	}
}

/*
Tri-state outcome of resolving one placeholder name against an `Args`
source. The zero value is `StateMissing`.
*/
type Resolved struct {
	State State
	Val   any
}

// Part of `Resolved`.
type State byte

const (
	StateMissing  State = 0
	StateNull     State = 1
	StateExplicit State = 2
)

// Implement `fmt.Stringer` for debug purposes.
func (self State) String() string {
	switch self {
	case StateNull:
		return `null`
	case StateExplicit:
		return `explicit`
	default:
		return `missing`
	}
}

// Shortcut for making a `Resolved` from an argument that was found.
func resolvedOf(val any) Resolved {
	if isNil(val) {
		return Resolved{State: StateNull}
	}
	return Resolved{State: StateExplicit, Val: val}
}
