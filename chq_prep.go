package chq

import "iter"

/*
Short for "preparsed" or "prepared". Parsed representation of a ClickHouse
query with named placeholders `:name` or `:name(Type)`, suited for rendering
the query many times with different arguments. Created by `Parse`, `MustParse`
or `Preparse`, immutable afterwards, and safe for concurrent use.

All occurrences of one name share one binding slot and one template. The
template comes from the first annotation of that name. For example, in the
following query, `:ts` occurs twice and both occurrences are truncated to
whole seconds:

	select :ts(DateTime32) as one, :ts as two

Rendering is done by `(*Prep).Apply` and its shortcuts.
*/
type Prep struct {
	source    string
	segments  []Segment
	slots     []int
	names     []string
	templates []*Template
}

/*
Part of `Prep`. Literal text immediately preceding one placeholder occurrence,
and the placeholder's name. The last segment has an empty name when there is
literal text after the last placeholder, or when the query has no
placeholders.
*/
type Segment struct {
	Text string
	Name string
}

/*
Parses a query. The only failure is empty input, reported as an error
wrapping `ErrInvalidQuery`. Annotations which are not valid types don't cause
errors. Their placeholders simply have no template.

Parsing is relatively slow. To avoid redundant work, either keep the
resulting `Prep` around, or use `Preparse` which caches it.
*/
func Parse(src string) (*Prep, error) {
	if src == `` {
		return nil, ErrInvalidQuery.while(`parsing query`).because(
			errf(`expected non-empty query text`),
		)
	}

	out := &Prep{source: src}
	out.parse()
	return out, nil
}

// Variant of `Parse` that panics on error.
func MustParse(src string) *Prep { return try1(Parse(src)) }

func (self *Prep) parse() {
	tokenizer := Tokenizer{Source: self.source}
	slotsByName := map[string]int{}
	start, pos := 0, 0

	for {
		tok := tokenizer.Next()
		if tok.IsInvalid() {
			break
		}

		pos += len(tok.Text)
		if tok.Type != TokenTypeNamedParam {
			continue
		}

		name, annot := tok.ParseNamedParam()
		self.segments = append(self.segments, Segment{
			Text: self.source[start : pos-len(tok.Text)],
			Name: name,
		})
		self.slots = append(self.slots, self.register(slotsByName, name, annot))
		start = pos
	}

	if start < len(self.source) || len(self.segments) == 0 {
		self.segments = append(self.segments, Segment{Text: self.source[start:]})
		self.slots = append(self.slots, -1)
	}
}

func (self *Prep) register(slotsByName map[string]int, name, annot string) int {
	slot, ok := slotsByName[name]
	if !ok {
		slot = len(self.names)
		slotsByName[name] = slot
		self.names = append(self.names, name)
		self.templates = append(self.templates, nil)
	}

	if annot != `` && self.templates[slot] == nil {
		self.templates[slot] = TemplateFor(annot)
	}
	return slot
}

// Returns the original query text.
func (self *Prep) Source() string { return self.source }

// Implement `fmt.Stringer` for debug purposes. Same as `.Source`.
func (self *Prep) String() string { return self.source }

// True if the query has at least one placeholder.
func (self *Prep) HasParams() bool { return len(self.names) > 0 }

/*
Returns the distinct placeholder names in the order of first occurrence. The
position of each name is its position in positional arguments such as
`List` or `Strings`. Returns a copy.
*/
func (self *Prep) Names() []string { return copySlice(self.names) }

/*
Returns the templates parallel to `.Names`. An element is nil when no
occurrence of that name had an annotation, or when the annotation was not a
valid type. Returns deep copies: modifying them doesn't affect the query.
*/
func (self *Prep) Templates() []*Template {
	if self.templates == nil {
		return nil
	}
	out := make([]*Template, len(self.templates))
	for ind, val := range self.templates {
		out[ind] = val.Clone()
	}
	return out
}

// Returns the segments of the query. See `Segment`. Returns a copy.
func (self *Prep) Segments() []Segment { return copySlice(self.segments) }

/*
Renders the query with the given arguments. Never fails. Missing, extra,
null and mismatched arguments all have a defined rendering:

	* Raw arguments (`Strings`, `RawList`, `RawSeq`): explicit text is
	  inserted verbatim, explicit null is `null`, missing is `NULL`.

	* Typed arguments (`List`, `Collection`, `Dict`, `StructDict`): explicit
	  values are formatted by `AppendValue` with the name's template, null and
	  missing are `NULL`.

When the query has no placeholders, returns `.Source` itself without copying,
ignoring the arguments. A nil `Args` makes every name missing.

Each name is rendered at most once per call, and the resulting text is reused
for every occurrence of that name.
*/
func (self *Prep) Apply(args Args) string {
	if !self.HasParams() {
		return self.source
	}

	vals := make([]Resolved, len(self.names))
	family := FamilyTyped
	if args != nil {
		args.resolve(self.names, vals)
		family = args.Family()
	}

	type span struct {
		start, end int
		ok         bool
	}

	spans := make([]span, len(self.names))
	buf := make([]byte, 0, len(self.source)+len(self.names)*8)

	for ind, seg := range self.segments {
		buf = append(buf, seg.Text...)

		slot := self.slots[ind]
		if slot < 0 {
			continue
		}

		prev := &spans[slot]
		if prev.ok {
			buf = append(buf, buf[prev.start:prev.end]...)
			continue
		}

		prev.start = len(buf)
		buf = appendResolved(buf, family, vals[slot], self.templates[slot])
		prev.end = len(buf)
		prev.ok = true
	}

	return bytesToMutableString(buf)
}

// Shortcut for `.Apply(Strings(vals))`.
func (self *Prep) ApplyStrings(vals ...string) string { return self.Apply(Strings(vals)) }

// Shortcut for `.Apply(RawList(vals))`. Nil pointers are explicit nulls.
func (self *Prep) ApplyRaw(vals ...*string) string { return self.Apply(RawList(vals)) }

// Shortcut for `.Apply(RawSeq(vals))`.
func (self *Prep) ApplySeq(vals iter.Seq[*string]) string { return self.Apply(RawSeq(vals)) }

// Shortcut for `.Apply(List(vals))`.
func (self *Prep) ApplyValues(vals ...any) string { return self.Apply(List(vals)) }

// Shortcut for `.Apply(Collection(val))`.
func (self *Prep) ApplyCollection(val any) string { return self.Apply(Collection(val)) }

// Shortcut for `.Apply(Dict(vals))`.
func (self *Prep) ApplyDict(vals map[string]any) string { return self.Apply(Dict(vals)) }

/*
Renders the query with the `db`-tagged fields of the given struct as named
arguments. Unlike `StructDict`, doesn't panic: a nil or non-struct input makes
every name missing.
*/
func (self *Prep) ApplyStruct(val any) string {
	dict, err := structDict(val)
	if err != nil {
		return self.Apply(nil)
	}
	return self.Apply(dict)
}

func appendResolved(buf []byte, family Family, val Resolved, tpl *Template) []byte {
	switch val.State {
	case StateExplicit:
		if family == FamilyRaw {
			text, _ := val.Val.(string)
			return append(buf, text...)
		}
		return AppendValue(buf, val.Val, tpl)

	case StateNull:
		if family == FamilyRaw {
			return append(buf, `null`...)
		}
		return append(buf, `NULL`...)

	default:
		return append(buf, `NULL`...)
	}
}

func copySlice[A any](src []A) []A {
	if src == nil {
		return nil
	}
	out := make([]A, len(src))
	copy(out, src)
	return out
}
