/*
ClickHouse query templating: client-side rendering of queries with named
placeholders into literal SQL. Oriented towards text and writing PLAIN SQL.
Doesn't connect to anything, doesn't execute anything.

Key Features

• Placeholders `:name` and `:name(Type)` where `Type` is a ClickHouse type such
as `String`, `Decimal64(3)` or `DateTime64(6, 'UTC')`.

• Single parsing pass with awareness of quoted strings and the `::` cast
operator. Parse once, render many times. See `Parse`, `Preparse`.

• Type annotations direct formatting: quoting, decimal truncation, timestamp
precision and time zone, arrays, tuples, maps. See `TemplateOf`.

• Positional and named arguments, raw or typed, with a defined rendering for
every combination of missing, null and extra arguments. Rendering never fails.
See `(*Prep).Apply`.

• Value formatting for numbers, times, UUIDs, ULIDs, collections, maps,
`driver.Valuer`, `fmt.Stringer` and more. See `AppendValue`.

• Query builder with Postgres-style ordinal parameters inlined as literals.
See `Query.Append`.

Examples

	prep := chq.MustParse(`select * from events where id in (:ids) and ts > :ts(DateTime)`)

	text := prep.ApplyDict(map[string]any{
		`ids`: []int{10, 20},
		`ts`:  time.Date(2024, 1, 2, 3, 4, 5, 678, time.UTC),
	})

	// select * from events where id in ((10,20)) and ts > '2024-01-02 03:04:05'

See `(*Prep).Apply`, `ApplyNamed`, `Query.Append` for more.
*/
package chq
