package chq

import (
	"fmt"
	"slices"

	"github.com/mitranim/sqlp"
)

/*
If true (default), unused arguments cause panics in `Query.Append` and
`Query.AppendNamed`. If false, unused arguments are ok. Turning this off can
be convenient in development, when changing queries rapidly.
*/
var CheckUnused = true

/*
Tool for building ClickHouse queries from fragments. Unlike builders for
databases with server-side parameters, arguments are never sent separately:
they are formatted as literals by `AppendValue` and inlined into the text.

Fragments may use Postgres-style ordinal parameters `$1`, `$2` and so on,
counted from `$1` in each fragment, or named placeholders, see
`.AppendNamed`. A `Query` used as an argument is inlined verbatim, which
makes queries composable.

Implements `Expr`, so it can also be bound to a placeholder of a `Prep`.
*/
type Query struct {
	Text []byte
}

// Shortcut for making a query from one fragment. Panics like `Query.Append`.
func QueryOf(src string, args ...any) Query {
	var query Query
	query.Append(src, args...)
	return query
}

// Implement `fmt.Stringer`.
func (self Query) String() string {
	return bytesToMutableString(self.Text)
}

// Implement `Expr`, inlining the text verbatim.
func (self Query) AppendExpr(text []byte) []byte {
	return append(text, self.Text...)
}

/*
Appends a fragment, replacing ordinal parameters with the formatted literals
of the corresponding arguments. Separates fragments with a space when
needed.

For example, this:

	var query Query
	query.Append(`select * from events`)
	query.Append(`where kind = $1 and ts > $2`, `click`, time.Unix(0, 0).UTC())

	text := query.String()

Is equivalent to this:

	text := `select * from events where kind = click and ts > '1970-01-01 00:00:00'`

Note that strings are not quoted without a template. Use `Quote` or a typed
placeholder via `.AppendNamed` for string literals.

Panics when: the code is malformed; the code has named parameters; there are
more than 64 arguments; a parameter doesn't have a corresponding argument;
an argument doesn't have a corresponding parameter (see `CheckUnused`).
*/
func (self *Query) Append(src string, args ...any) {
	if len(args) > bitsetSize {
		panic(ErrTooManyArguments.while(`appending to query`).because(
			fmt.Errorf(`expected no more than %v args, got %v`, bitsetSize, len(args)),
		))
	}

	var used bitset
	self.Text = maybeAppendSpace(self.Text)

	tokenizer := Tokenizer{Source: src}
	start, pos := 0, 0

	for {
		tok := tokenizer.Next()
		if tok.IsInvalid() {
			break
		}
		if tok.Type == TokenTypeQuotedSingle {
			self.appendOrdinal(src[start:pos], args, &used)
			self.Text = append(self.Text, tok.Text...)
			start = pos + len(tok.Text)
		}
		pos += len(tok.Text)
	}
	self.appendOrdinal(src[start:], args, &used)

	if CheckUnused {
		for ind, arg := range args {
			if !used.has(ind) {
				panic(ErrUnusedArgument.while(`appending to query`).because(
					fmt.Errorf(`unused argument %#v at index %v`, arg, ind),
				))
			}
		}
	}
}

/*
Appends a fragment with named placeholders `:name` or `:name(Type)`,
rendered with the given arguments exactly like `(*Prep).ApplyDict`. The
fragment is parsed via `Preparse`. Empty fragments are ignored.

For example, this:

	var query Query
	query.AppendNamed(
		`select * from events where kind = :kind(String)`,
		map[string]any{"kind": "click"},
	)

	text := query.String()

Is equivalent to this:

	text := `select * from events where kind = 'click'`

When `CheckUnused` is true, panics on arguments without a placeholder.
*/
func (self *Query) AppendNamed(src string, args map[string]any) {
	if src == `` {
		return
	}

	prep := try1(Preparse(src))

	if CheckUnused {
		for key := range args {
			if !slices.Contains(prep.names, key) {
				panic(ErrUnusedArgument.while(`appending to query`).because(
					fmt.Errorf(`unused named argument %q`, key),
				))
			}
		}
	}

	self.Text = maybeAppendSpace(self.Text)
	self.Text = append(self.Text, prep.ApplyDict(args)...)
}

/*
Appends another expression, such as a query, verbatim, separated by a space
when needed. Nil is ignored.
*/
func (self *Query) AppendQuery(expr Expr) {
	if isNil(expr) {
		return
	}
	self.Text = maybeAppendSpace(self.Text)
	self.Text = expr.AppendExpr(self.Text)
}

/*
Substitutes ordinal parameters in a span of code without single-quoted
strings. Those are skipped by `Tokenizer`, which knows ClickHouse backslash
escapes, while `sqlp` expects Postgres quoting.
*/
func (self *Query) appendOrdinal(src string, args []any, used *bitset) {
	tokenizer := sqlp.Tokenizer{Source: src}

	for {
		node := tokenizer.Next()
		if node == nil {
			return
		}

		switch node := node.(type) {
		case sqlp.NodeOrdinalParam:
			index := node.Index()
			if index < 0 || index >= len(args) {
				panic(ErrOrdinalOutOfBounds.while(`appending to query`).because(
					fmt.Errorf(`ordinal parameter %v exceeds argument count %v`, node, len(args)),
				))
			}

			used.set(index)
			self.Text = AppendValue(self.Text, args[index], nil)

		case sqlp.NodeNamedParam:
			panic(ErrUnexpectedParameter.while(`appending to query`).because(
				fmt.Errorf(`expected only ordinal params, got named param %q`, string(node)),
			))

		default:
			node.Append(&self.Text)
		}
	}
}

// Variant of `.Append` that returns panics as errors.
func (self *Query) CatchAppend(src string, args ...any) (err error) {
	defer rec(&err)
	self.Append(src, args...)
	return
}

/*
"Zeroes" the query, keeping any already-allocated capacity. Similar to
`query = chq.Query{}`, but slightly clearer and marginally more efficient for
subsequent query building.
*/
func (self *Query) Clear() {
	self.Text = self.Text[:0]
}
