package chq

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Default capacity of the cache used by `Preparse`.
const DefaultPreparseCacheSize = 1024

var prepCache = try1(lru.New[string, *Prep](DefaultPreparseCacheSize))

/*
Returns a parsed `Prep` for the given source text, parsing it only once.
Parsed queries are kept in a bounded LRU cache shared by the whole process,
see `SetPreparseCacheSize`. Failures are not cached.

Susceptible to "thundering herd": concurrent first calls with the same text
may parse it more than once. Only one result is retained.
*/
func Preparse(src string) (*Prep, error) {
	prep, ok := prepCache.Get(src)
	if ok {
		return prep, nil
	}

	prep, err := Parse(src)
	if err != nil {
		return nil, err
	}

	prepCache.Add(src, prep)
	return prep, nil
}

/*
Changes the capacity of the `Preparse` cache, evicting the least recently
used entries if needed. The size must be positive.
*/
func SetPreparseCacheSize(size int) error {
	if size <= 0 {
		return ErrInvalidInput.while(`resizing preparse cache`).because(
			errf(`expected positive size, got %v`, size),
		)
	}
	prepCache.Resize(size)
	return nil
}

/*
Parses the query via `Preparse` and renders it with the given named typed
arguments. Equivalent to `Parse(src)` followed by `.ApplyDict(args)`. The only
error is `ErrInvalidQuery` for empty text.
*/
func ApplyNamed(src string, args map[string]any) (string, error) {
	prep, err := Preparse(src)
	if err != nil {
		return ``, err
	}
	return prep.ApplyDict(args), nil
}
