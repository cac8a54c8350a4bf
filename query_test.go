package chq

import (
	"errors"
	"testing"
	"time"
)

func TestQueryAppend(t *testing.T) {
	t.Run("without_nested", func(t *testing.T) {
		var query Query
		query.Append(`one = $1 and two = $2`, 10, 20)
		query.Append(`and three = $1 and four = $1`, 30)
		query.Append(`and five = $1 and six = $2`, 40.5, nil)

		strExpected := `one = 10 and two = 20 and three = 30 and four = 30 and five = 40.5 and six = NULL`
		strActual := query.String()
		if strExpected != strActual {
			t.Fatalf("expected query:\n%q\ngot:\n%q", strExpected, strActual)
		}
	})

	t.Run("with_nested", func(t *testing.T) {
		var sub0 Query
		sub0.Append(`two = $1 and three = $2`, 20, 30)

		var sub1 Query
		sub1.Append(`five = $1 and six = $2`, 50, 60)

		var query Query
		query.Append(`one = $1 and $2 and $2 and four = $3 and $4 and seven = $5`, 10, sub0, 40, sub1, 70)

		strExpected := `one = 10 and two = 20 and three = 30 and two = 20 and three = 30 and four = 40 and five = 50 and six = 60 and seven = 70`
		strActual := query.String()
		if strExpected != strActual {
			t.Fatalf("expected query:\n%q\ngot:\n%q", strExpected, strActual)
		}
	})

	t.Run("with_values", func(t *testing.T) {
		var query Query
		query.Append(
			`select * from events where ts >= $1 and id in $2 and kind = $3 and name = $4`,
			time.Unix(0, 0).UTC(), []int{1, 2}, Quote(`it's`), Char('a'),
		)

		strExpected := `select * from events where ts >= '1970-01-01 00:00:00' and id in (1,2) and kind = 'it\'s' and name = 97`
		strActual := query.String()
		if strExpected != strActual {
			t.Fatalf("expected query:\n%q\ngot:\n%q", strExpected, strActual)
		}
	})

	t.Run("with_casts_and_strings", func(t *testing.T) {
		var query Query
		query.Append(`select $1::String, '$2', $2`, 10, 20)

		strExpected := `select 10::String, '$2', 20`
		strActual := query.String()
		if strExpected != strActual {
			t.Fatalf("expected query:\n%q\ngot:\n%q", strExpected, strActual)
		}
	})

	t.Run("with_backslash_escape", func(t *testing.T) {
		var query Query
		query.Append(`select 'it\'s $1' as a, $1 as b, '\\' as c, $2::String`, 10, 20)
		eq(t, `select 'it\'s $1' as a, 10 as b, '\\' as c, 20::String`, query.String())
	})

	t.Run("with_unterminated_string", func(t *testing.T) {
		var query Query
		query.Append(`select $1, 'it\'s $2`, 10)
		eq(t, `select 10, 'it\'s $2`, query.String())
	})

	t.Run("spacing", func(t *testing.T) {
		var query Query
		query.Append(`select (`)
		query.Append(`1`)
		query.Append(`)`)
		eq(t, `select (1 )`, query.String())
	})
}

func TestQueryAppend_errors(t *testing.T) {
	test := func(exp error, src string, args ...any) {
		t.Helper()
		var query Query
		err := query.CatchAppend(src, args...)
		if !errors.Is(err, exp) {
			t.Fatalf("expected error %v, got %v", exp, err)
		}
	}

	test(ErrOrdinalOutOfBounds, `one = $1`)
	test(ErrOrdinalOutOfBounds, `one = $1 and two = $2`, 10)
	test(ErrUnexpectedParameter, `one = :one`)
	test(ErrUnusedArgument, `one = $1`, 10, 20)
	test(ErrUnusedArgument, `one`, 10)
	test(ErrTooManyArguments, `one`, make([]any, bitsetSize+1)...)

	panics(t, `unused argument`, func() { QueryOf(`one`, 10) })
}

func TestQueryAppend_CheckUnused(t *testing.T) {
	defer func(prev bool) { CheckUnused = prev }(CheckUnused)
	CheckUnused = false

	var query Query
	query.Append(`one = $2`, 10, 20)
	query.AppendNamed(`and two = :two`, Dict{"two": 2, "three": 3})
	eq(t, `one = 20 and two = 2`, query.String())
}

func TestQueryAppendNamed(t *testing.T) {
	t.Run("without_nested", func(t *testing.T) {
		var query Query
		query.AppendNamed(`one = :one::String and two = :two(String)`, Dict{"one": 10, "two": 20})
		query.AppendNamed(`and three = :three and four = :three`, Dict{"three": 30})
		query.AppendNamed(`and five = :five and six = :six`, Dict{"five": 40})

		strExpected := `one = 10::String and two = '20' and three = 30 and four = 30 and five = 40 and six = NULL`
		strActual := query.String()
		if strExpected != strActual {
			t.Fatalf("expected query:\n%q\ngot:\n%q", strExpected, strActual)
		}
	})

	t.Run("with_nested", func(t *testing.T) {
		var sub0 Query
		sub0.AppendNamed(`two = :two and three = :three`, Dict{"two": 20, "three": 30})

		var sub1 Query
		sub1.AppendNamed(`five = :five and six = :six`, Dict{"five": 50, "six": 60})

		var query Query
		query.AppendNamed(
			`one = :one and :sub0 and :sub0 and four = :four and :sub1 and seven = :seven`,
			Dict{"one": 10, "sub0": sub0, "four": 40, "sub1": sub1, "seven": 70},
		)

		strExpected := `one = 10 and two = 20 and three = 30 and two = 20 and three = 30 and four = 40 and five = 50 and six = 60 and seven = 70`
		strActual := query.String()
		if strExpected != strActual {
			t.Fatalf("expected query:\n%q\ngot:\n%q", strExpected, strActual)
		}
	})

	t.Run("empty", func(t *testing.T) {
		var query Query
		query.AppendNamed(``, nil)
		eq(t, ``, query.String())
	})

	t.Run("unused", func(t *testing.T) {
		panics(t, `unused named argument "three"`, func() {
			var query Query
			query.AppendNamed(`one = :one`, Dict{"one": 1, "three": 3})
		})
	})
}

func TestQueryAppendQuery(t *testing.T) {
	var query Query
	query.Append(`select * from events`)
	query.AppendQuery(nil)
	query.AppendQuery(QueryOf(`where kind = $1`, Quote(`click`)))
	query.AppendQuery((*Query)(nil))
	eq(t, `select * from events where kind = 'click'`, query.String())
}

func TestQueryOf(t *testing.T) {
	query := QueryOf(`select $1`, 10)
	eq(t, `select 10`, query.String())
	eq(t, `prefix select 10`, string(query.AppendExpr([]byte(`prefix `))))
}

func TestQueryClear(t *testing.T) {
	query := QueryOf(`select 1`)
	capacity := cap(query.Text)

	query.Clear()
	eq(t, ``, query.String())
	eq(t, capacity, cap(query.Text))
}
