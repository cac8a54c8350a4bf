package chq

import (
	"strings"
	"unicode/utf8"
)

/*
Partial SQL tokenizer used internally by `Parse` to locate named
placeholders such as `:name` and `:name(Type)` in ClickHouse queries.

Goals:

	* Correctly skip single-quoted strings (with backslash escapes) and the
	  `::` cast operator, so that colons inside them are never placeholders.

	* Decently fast and allocation-free tokenization.

Non-goals:

	* Full SQL parser. Comments, double-quoted and backtick-quoted
	  identifiers are plain text.

Notable behaviors:

	* An unterminated string runs to the end of the source without error.

	* A colon followed by anything other than a letter or underscore is plain
	  text, for example in the ternary `a?3:2`.

	* A parenthesized span directly after the name is the type annotation, if
	  its parentheses are balanced. Otherwise the `(` remains plain text.
*/
type Tokenizer struct {
	Source string
	cursor int
	next   Token
}

/*
Returns the next token if possible. When the tokenizer reaches the end, this
returns an empty `Token{}`. Call `Token.IsInvalid` to detect the end.
*/
func (self *Tokenizer) Next() Token {
	next := self.next
	if !next.IsInvalid() {
		self.next = Token{}
		return next
	}

	start := self.cursor

	for self.more() {
		mid := self.cursor
		if self.maybeQuotedSingle(); self.cursor > mid {
			return self.choose(start, mid, TokenTypeQuotedSingle)
		}
		if self.maybeDoubleColon(); self.cursor > mid {
			return self.choose(start, mid, TokenTypeDoubleColon)
		}
		if self.maybeNamedParam(); self.cursor > mid {
			return self.choose(start, mid, TokenTypeNamedParam)
		}
		self.skipChar()
	}

	if self.cursor > start {
		return Token{self.from(start), TokenTypeText}
	}
	return Token{}
}

func (self *Tokenizer) choose(start, mid int, typ TokenType) Token {
	tok := Token{self.from(mid), typ}
	if mid > start {
		self.setNext(tok)
		return Token{self.Source[start:mid], TokenTypeText}
	}
	return tok
}

func (self *Tokenizer) setNext(val Token) {
	if !self.next.IsInvalid() {
		panic(ErrInternal.while(`parsing SQL`).because(errf(
			`internal error: attempted to overwrite non-empty pending token %#v with %#v`,
			self.next, val,
		)))
	}
	self.next = val
}

func (self *Tokenizer) maybeQuotedSingle() {
	if !self.skippedByte(quoteSingle) {
		return
	}

	for self.more() {
		if self.skippedByte(backslash) {
			if self.more() {
				self.skipChar()
			}
			continue
		}
		if self.skippedByte(quoteSingle) {
			return
		}
		self.skipChar()
	}
}

func (self *Tokenizer) maybeDoubleColon() {
	self.maybeString(doubleColonPrefix)
}

func (self *Tokenizer) maybeNamedParam() {
	start := self.cursor
	if !self.skippedByte(namedParamPrefix) {
		return
	}
	if !self.skippedIdent() {
		self.cursor = start
		return
	}
	self.maybeAnnotation()
}

func (self *Tokenizer) maybeAnnotation() {
	start := self.cursor
	if !self.skippedByte(parenOpen) {
		return
	}

	depth := 1
	for self.more() {
		mid := self.cursor
		if self.maybeQuotedSingle(); self.cursor > mid {
			continue
		}
		if self.skippedByte(parenOpen) {
			depth++
			continue
		}
		if self.skippedByte(parenClose) {
			depth--
			if depth == 0 {
				return
			}
			continue
		}
		self.skipChar()
	}

	self.cursor = start
}

func (self *Tokenizer) maybeString(val string) {
	_ = self.skippedString(val)
}

func (self *Tokenizer) skipChar() {
	_, size := utf8.DecodeRuneInString(self.rest())
	self.skipBytes(size)
}

func (self *Tokenizer) skippedIdent() bool {
	start := self.cursor
	self.maybeIdent()
	return self.cursor > start
}

func (self *Tokenizer) maybeIdent() {
	if !self.skippedByteFromCharset(charsetIdentStart) {
		return
	}
	for self.more() && self.skippedByteFromCharset(charsetIdent) {
	}
}

func (self *Tokenizer) skipBytes(val int) {
	self.cursor += val
}

func (self *Tokenizer) more() bool {
	return self.cursor < len(self.Source)
}

func (self *Tokenizer) rest() string {
	return self.Source[self.cursor:]
}

func (self *Tokenizer) from(start int) string {
	return self.Source[start:self.cursor]
}

func (self *Tokenizer) headByte() byte {
	return self.Source[self.cursor]
}

func (self *Tokenizer) skippedByte(val byte) bool {
	if self.more() && self.headByte() == val {
		self.skipBytes(1)
		return true
	}
	return false
}

func (self *Tokenizer) skippedByteFromCharset(val *charset) bool {
	if self.more() && val.has(self.headByte()) {
		self.skipBytes(1)
		return true
	}
	return false
}

func (self *Tokenizer) skippedString(val string) bool {
	if strings.HasPrefix(self.rest(), val) {
		self.skipBytes(len(val))
		return true
	}
	return false
}

const (
	TokenTypeInvalid TokenType = iota
	TokenTypeText
	TokenTypeQuotedSingle
	TokenTypeDoubleColon
	TokenTypeNamedParam
)

// Part of `Token`.
type TokenType byte

// Represents an arbitrary chunk of SQL text parsed by `Tokenizer`.
type Token struct {
	Text string
	Type TokenType
}

/*
True if the token's type is `TokenTypeInvalid`. This is used to detect end of
iteration when calling `(*Tokenizer).Next`.
*/
func (self Token) IsInvalid() bool {
	return self.Type == TokenTypeInvalid
}

// Implement `fmt.Stringer` for debug purposes.
func (self Token) String() string { return self.Text }

/*
Assumes that the token has `TokenTypeNamedParam` and looks like a placeholder:
":one" or ":one(Type)". Returns the name without the leading ":" and the
annotation without the enclosing parentheses, which is empty when the
placeholder has none. Panics if the text had the wrong structure.
*/
func (self Token) ParseNamedParam() (name string, annot string) {
	rest, ok := strings.CutPrefix(self.Text, string(namedParamPrefix))
	if !ok || rest == `` {
		panic(ErrInvalidQuery.while(`parsing named parameter`).because(
			errf(`expected %q to begin with %q followed by a name`, self.Text, rune(namedParamPrefix)),
		))
	}

	ind := strings.IndexByte(rest, parenOpen)
	if ind < 0 {
		return rest, ``
	}
	if rest[len(rest)-1] != parenClose {
		panic(ErrInvalidQuery.while(`parsing named parameter`).because(
			errf(`expected %q to end with %q`, self.Text, rune(parenClose)),
		))
	}
	return rest[:ind], rest[ind+1 : len(rest)-1]
}
