package chq

import (
	"strconv"
	"strings"
)

/*
Parsed ClickHouse type descriptor, such as `String`, `DateTime64(3, 'UTC')` or
`Array(Nullable(Decimal(18, 4)))`. Parameters are kept as raw text, trimmed of
surrounding whitespace. Use `Type.Args` to parse parameters that are types
themselves.

Only the structure is validated: a name followed by an optional
parenthesized, comma-separated parameter list. Whether the name denotes a type
known to the server is not checked.
*/
type Type struct {
	Text   string
	Name   string
	Params []string
}

/*
Parses a type descriptor. Returns an error wrapping `ErrInvalidType` when the
text is empty, doesn't begin with an identifier, has unbalanced parentheses,
has an empty parameter, or has trailing text after the parameter list.
*/
func ParseType(src string) (Type, error) {
	scan := typeScanner{source: src}
	typ, err := scan.parse()
	if err != nil {
		return Type{}, ErrInvalidType.while(`parsing type`).because(err)
	}
	return typ, nil
}

// Variant of `ParseType` that panics on error.
func MustParseType(src string) Type { return try1(ParseType(src)) }

// Implement `fmt.Stringer`. Returns the trimmed source text.
func (self Type) String() string { return self.Text }

// True if the type has a name. The zero value is not a valid type.
func (self Type) IsValid() bool { return self.Name != `` }

// Returns the raw text of the parameter at the given index, or "".
func (self Type) Param(ind int) string {
	if ind >= 0 && ind < len(self.Params) {
		return self.Params[ind]
	}
	return ``
}

/*
Returns the parameter at the given index parsed as a non-negative integer.
The boolean is false when the parameter is missing or not an integer.
*/
func (self Type) IntParam(ind int) (int, bool) {
	val, err := strconv.Atoi(self.Param(ind))
	if err != nil || val < 0 {
		return 0, false
	}
	return val, true
}

/*
Returns the parameter at the given index as an unquoted string, for example
the time zone in `DateTime('Europe/Berlin')`. The boolean is false when the
parameter is missing or not a single-quoted string.
*/
func (self Type) StringParam(ind int) (string, bool) {
	return unquoteSingle(self.Param(ind))
}

/*
Parses every parameter as a type. Tuple elements may be named, as in
`Tuple(id UInt64, name String)`; the name is dropped. Parameters that are not
types, such as numbers or quoted strings, are skipped.
*/
func (self Type) Args() []Type {
	if len(self.Params) == 0 {
		return nil
	}

	out := make([]Type, 0, len(self.Params))
	for _, val := range self.Params {
		typ, ok := paramType(val)
		if ok {
			out = append(out, typ)
		}
	}
	return out
}

/*
Removes wrappers which don't affect literal formatting: `Nullable(T)` and
`LowCardinality(T)`, possibly nested.
*/
func (self Type) Unwrap() Type {
	for self.Name == `Nullable` || self.Name == `LowCardinality` {
		args := self.Args()
		if len(args) != 1 {
			break
		}
		self = args[0]
	}
	return self
}

func paramType(src string) (Type, bool) {
	typ, err := ParseType(src)
	if err == nil {
		return typ, true
	}

	// Named tuple element: "name Type".
	scan := typeScanner{source: strings.TrimSpace(src)}
	if !scan.skippedIdent() || !scan.skippedWhitespace() {
		return Type{}, false
	}
	typ, err = ParseType(scan.rest())
	return typ, err == nil
}

func unquoteSingle(src string) (string, bool) {
	if len(src) < 2 || src[0] != quoteSingle || src[len(src)-1] != quoteSingle {
		return ``, false
	}

	src = src[1 : len(src)-1]
	if strings.IndexByte(src, backslash) < 0 {
		return src, true
	}

	var buf strings.Builder
	buf.Grow(len(src))
	for ind := 0; ind < len(src); ind++ {
		char := src[ind]
		if char == backslash && ind+1 < len(src) {
			ind++
			char = src[ind]
		}
		buf.WriteByte(char)
	}
	return buf.String(), true
}

/*
Scanner used by `ParseType`. Shares the byte-level conventions of `Tokenizer`:
a cursor over the source and `skippedX` helpers that advance only on success.
*/
type typeScanner struct {
	source string
	cursor int
}

func (self *typeScanner) parse() (Type, error) {
	self.source = strings.TrimSpace(self.source)
	if self.source == `` {
		return Type{}, errf(`expected type name, got empty text`)
	}

	start := self.cursor
	if !self.skippedIdent() {
		return Type{}, errf(`expected type name at the start of %q`, self.source)
	}
	typ := Type{Text: self.source, Name: self.source[start:self.cursor]}

	self.skippedWhitespace()
	if !self.more() {
		return typ, nil
	}

	if !self.skippedByte(parenOpen) {
		return Type{}, errf(`unexpected %q after type name %q`, self.rest(), typ.Name)
	}

	params, err := self.params()
	if err != nil {
		return Type{}, err
	}
	typ.Params = params

	self.skippedWhitespace()
	if self.more() {
		return Type{}, errf(`unexpected %q after parameters of %q`, self.rest(), typ.Name)
	}
	return typ, nil
}

// Must be called after the opening paren. Consumes the closing paren.
func (self *typeScanner) params() ([]string, error) {
	var out []string
	depth := 0
	start := self.cursor

	for self.more() {
		switch self.headByte() {
		case quoteSingle:
			if !self.skippedQuoted() {
				return nil, errf(`unterminated string in type parameters of %q`, self.source)
			}
			continue

		case parenOpen:
			depth++

		case parenClose:
			if depth > 0 {
				depth--
				break
			}

			param := strings.TrimSpace(self.source[start:self.cursor])
			self.cursor++

			if param == `` {
				if len(out) > 0 {
					return nil, errf(`empty parameter in %q`, self.source)
				}
				return out, nil
			}
			return append(out, param), nil

		case comma:
			if depth == 0 {
				param := strings.TrimSpace(self.source[start:self.cursor])
				if param == `` {
					return nil, errf(`empty parameter in %q`, self.source)
				}
				out = append(out, param)
				start = self.cursor + 1
			}
		}
		self.cursor++
	}

	return nil, errf(`expected closing %q in %q`, rune(parenClose), self.source)
}

func (self *typeScanner) skippedQuoted() bool {
	if !self.skippedByte(quoteSingle) {
		return false
	}
	for self.more() {
		char := self.headByte()
		if char == backslash {
			self.cursor = min(self.cursor+2, len(self.source))
			continue
		}
		self.cursor++
		if char == quoteSingle {
			return true
		}
	}
	return false
}

func (self *typeScanner) skippedIdent() bool {
	if !self.more() || !charsetIdentStart.has(self.headByte()) {
		return false
	}
	for self.more() && charsetIdent.has(self.headByte()) {
		self.cursor++
	}
	return true
}

func (self *typeScanner) skippedWhitespace() bool {
	start := self.cursor
	for self.more() && charsetWhitespace.has(self.headByte()) {
		self.cursor++
	}
	return self.cursor > start
}

func (self *typeScanner) skippedByte(val byte) bool {
	if self.more() && self.headByte() == val {
		self.cursor++
		return true
	}
	return false
}

func (self *typeScanner) more() bool { return self.cursor < len(self.source) }

func (self *typeScanner) headByte() byte { return self.source[self.cursor] }

func (self *typeScanner) rest() string { return self.source[self.cursor:] }
