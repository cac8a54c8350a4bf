package chq

import (
	"strings"
	"time"
)

/*
Formatting category of a `Template`. Decides how explicit values bound to a
typed placeholder are rendered. See `TemplateOf`.
*/
type Shape byte

const (
	// No formatting rules; values use their own formatting.
	ShapeScalar Shape = iota

	// Quoted and escaped: String, FixedString, Enum, UUID, IPv4, IPv6.
	ShapeString

	// Numbers truncated to `Template.Scale` fraction digits.
	ShapeDecimal

	// Quoted timestamp with `Template.Scale` fraction digits.
	ShapeDateTime

	// Quoted date.
	ShapeDate

	// `[e1,e2]` with `Template.Elems[0]` for every element.
	ShapeArray

	// `(e1,e2)` with per-position `Template.Elems`.
	ShapeTuple

	// `map(k1,v1)` with `Template.Elems[0]` for keys and `[1]` for values.
	ShapeMap
)

// Implement `fmt.Stringer` for debug purposes.
func (self Shape) String() string {
	switch self {
	case ShapeString:
		return `string`
	case ShapeDecimal:
		return `decimal`
	case ShapeDateTime:
		return `datetime`
	case ShapeDate:
		return `date`
	case ShapeArray:
		return `array`
	case ShapeTuple:
		return `tuple`
	case ShapeMap:
		return `map`
	default:
		return `scalar`
	}
}

/*
Formatting metadata for one placeholder name, built from its type annotation
by `TemplateOf`. A template never renders by itself. It only modifies how
explicit values bound to the placeholder are formatted by `AppendValue`.
When a value doesn't match the template's shape, for example a string bound
to `DateTime`, the value is formatted as if there was no template.
*/
type Template struct {
	Type  Type
	Shape Shape

	// Fraction digits for `ShapeDecimal` and `ShapeDateTime`.
	Scale int

	// Time zone for `ShapeDateTime`, nil if the type has none.
	Loc *time.Location

	// Element templates for `ShapeArray`, `ShapeTuple`, `ShapeMap`.
	// May contain nils.
	Elems []*Template
}

// Maximum fraction digits of `Decimal256`, the widest decimal type.
const maxDecimalScale = 76

// Maximum fraction digits of `DateTime64`.
const maxTimeScale = 9

// Default precision of `DateTime64` without parameters.
const defaultTime64Scale = 3

/*
Builds a template from a parsed type. Returns nil only for the zero `Type`.
Wrappers `Nullable(T)` and `LowCardinality(T)` are removed first. Type names
are matched the way the server matches them: canonical names such as
`DateTime64` are case-sensitive, while SQL-compatibility aliases such as
`VARCHAR`, `TIMESTAMP` or `DECIMAL` are case-insensitive. Types without
formatting rules get `ShapeScalar`.

A time zone parameter is loaded with `time.LoadLocation`, which may read the
local tz database from disk. This is the only I/O done by `Parse`, and it
happens once per annotated placeholder, never during rendering. When the
zone is unknown, `Template.Loc` stays nil and times keep their own location.
*/
func TemplateOf(typ Type) *Template {
	if !typ.IsValid() {
		return nil
	}

	typ = typ.Unwrap()
	out := &Template{Type: typ, Shape: shapeOf(typ.Name)}

	switch out.Shape {
	case ShapeDecimal:
		out.Scale = decimalScale(typ)

	case ShapeDateTime:
		out.Scale, out.Loc = dateTimeParams(typ)

	case ShapeArray:
		out.Elems = templatesOf(typ.Args(), 1)

	case ShapeTuple:
		out.Elems = templatesOf(typ.Args(), -1)

	case ShapeMap:
		out.Elems = templatesOf(typ.Args(), 2)
	}
	return out
}

/*
Shortcut for `TemplateOf(ParseType(src))`. Returns nil when the text is not a
valid type.
*/
func TemplateFor(src string) *Template {
	typ, err := ParseType(src)
	if err != nil {
		return nil
	}
	return TemplateOf(typ)
}

// Implement `fmt.Stringer` for debug purposes.
func (self *Template) String() string {
	if self == nil {
		return ``
	}
	return self.Type.String()
}

/*
Returns a deep copy of the template, including its type parameters and
element templates. The location is shared, since `*time.Location` is
immutable. Nil-safe.
*/
func (self *Template) Clone() *Template {
	if self == nil {
		return nil
	}
	out := *self
	out.Type.Params = copySlice(self.Type.Params)
	if self.Elems != nil {
		out.Elems = make([]*Template, len(self.Elems))
		for ind, val := range self.Elems {
			out.Elems[ind] = val.Clone()
		}
	}
	return &out
}

// Returns the element template at the given index, or nil.
func (self *Template) Elem(ind int) *Template {
	if self != nil && ind >= 0 && ind < len(self.Elems) {
		return self.Elems[ind]
	}
	return nil
}

var shapesByName = map[string]Shape{
	`String`:      ShapeString,
	`FixedString`: ShapeString,
	`Enum`:        ShapeString,
	`Enum8`:       ShapeString,
	`Enum16`:      ShapeString,
	`UUID`:        ShapeString,
	`IPv4`:        ShapeString,
	`IPv6`:        ShapeString,
	`Decimal`:     ShapeDecimal,
	`Decimal32`:   ShapeDecimal,
	`Decimal64`:   ShapeDecimal,
	`Decimal128`:  ShapeDecimal,
	`Decimal256`:  ShapeDecimal,
	`DateTime`:    ShapeDateTime,
	`DateTime32`:  ShapeDateTime,
	`DateTime64`:  ShapeDateTime,
	`Date`:        ShapeDate,
	`Date32`:      ShapeDate,
	`Array`:       ShapeArray,
	`Tuple`:       ShapeTuple,
	`Map`:         ShapeMap,
}

// Lowercase keys.
var shapesByAlias = map[string]Shape{
	`char`:       ShapeString,
	`character`:  ShapeString,
	`varchar`:    ShapeString,
	`nvarchar`:   ShapeString,
	`text`:       ShapeString,
	`tinytext`:   ShapeString,
	`mediumtext`: ShapeString,
	`longtext`:   ShapeString,
	`blob`:       ShapeString,
	`binary`:     ShapeString,
	`varbinary`:  ShapeString,
	`decimal`:    ShapeDecimal,
	`dec`:        ShapeDecimal,
	`numeric`:    ShapeDecimal,
	`fixed`:      ShapeDecimal,
	`timestamp`:  ShapeDateTime,
	`datetime`:   ShapeDateTime,
	`date`:       ShapeDate,
}

func shapeOf(name string) Shape {
	shape, ok := shapesByName[name]
	if ok {
		return shape
	}
	return shapesByAlias[strings.ToLower(name)]
}

// `Decimal(P, S)` or `Decimal32(S)`. A missing scale means zero.
func decimalScale(typ Type) int {
	ind := 0
	if !strings.HasPrefix(typ.Name, `Decimal`) || typ.Name == `Decimal` {
		ind = 1
	}
	scale, _ := typ.IntParam(ind)
	return min(scale, maxDecimalScale)
}

/*
`DateTime([tz])`, `DateTime32([tz])` have whole seconds. `DateTime64(P, [tz])`
has P fraction digits, 3 by default.
*/
func dateTimeParams(typ Type) (int, *time.Location) {
	scale, tzInd := 0, 0

	if typ.Name == `DateTime64` {
		tzInd = 1
		val, ok := typ.IntParam(0)
		if ok {
			scale = min(val, maxTimeScale)
		} else {
			scale = defaultTime64Scale
		}
	}

	name, ok := typ.StringParam(tzInd)
	if !ok {
		return scale, nil
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return scale, nil
	}
	return scale, loc
}

// Negative count means "as many as there are".
func templatesOf(types []Type, count int) []*Template {
	if count < 0 {
		count = len(types)
	}
	if count == 0 {
		return nil
	}

	out := make([]*Template, count)
	for ind := range out {
		if ind < len(types) {
			out[ind] = TemplateOf(types[ind])
		}
	}
	return out
}
