package chq

import (
	"database/sql/driver"
	"encoding"
	"fmt"
	"math"
	"math/big"
	r "reflect"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

const (
	layoutDate     = `2006-01-02`
	layoutDateTime = `2006-01-02 15:04:05`
)

/*
Explicit character. Renders as its numeric code, the way ClickHouse receives
single characters. Go rune and byte literals are integers and render the
same way without this type. Under a `String` template, renders as a quoted
one-character string.
*/
type Char rune

/*
Timestamp with an explicit number of fraction digits, between 0 and 9. Plain
`time.Time` values render with 9 fraction digits when they have a sub-second
part and none otherwise. `DateTime` always renders exactly `Scale` digits,
truncating.
*/
type DateTime struct {
	Time  time.Time
	Scale int
}

// Implement `fmt.Stringer`. Returns the unquoted text.
func (self DateTime) String() string {
	return string(appendTimeText(nil, self.Time, clampTimeScale(self.Scale)))
}

/*
Closed set of value categories recognized by `AppendValue`. The zero value is
`KindText`, the fallback for anything not covered by another kind.
*/
type Kind byte

const (
	KindText Kind = iota
	KindNull
	KindChar
	KindNumber
	KindTime
	KindUUID
	KindULID
	KindList
	KindMap
	KindExpr
)

// Implement `fmt.Stringer` for debug purposes.
func (self Kind) String() string {
	switch self {
	case KindNull:
		return `null`
	case KindChar:
		return `char`
	case KindNumber:
		return `number`
	case KindTime:
		return `time`
	case KindUUID:
		return `uuid`
	case KindULID:
		return `ulid`
	case KindList:
		return `list`
	case KindMap:
		return `map`
	case KindExpr:
		return `expr`
	default:
		return `text`
	}
}

// Returns the category `AppendValue` would use for the given value.
func KindOf(val any) Kind {
	_, kind := classify(val)
	return kind
}

/*
Formats a value as a ClickHouse literal. Shortcut for `AppendValue` with an
empty buffer.
*/
func Format(val any, tpl *Template) string {
	return bytesToMutableString(AppendValue(nil, val, tpl))
}

/*
Appends a ClickHouse literal representing the given value, optionally
directed by a template built from the placeholder's type annotation. Never
panics on unusual inputs. Unrecognized values fall back to their plain text
form, unquoted.

Without a template:

	nil, typed nil, null `driver.Valuer`  ->  NULL
	Char('a')                             ->  97
	123, 1.5, big.NewInt(7)               ->  123, 1.5, 7
	time.Time                             ->  '2024-01-02 03:04:05.123456789'
	DateTime{t, 3}                        ->  '2024-01-02 03:04:05.123'
	uuid.UUID, ulid.ULID                  ->  quoted canonical text
	[]any{1, nil, "a"}                    ->  (1,NULL,a)
	map[string]int{"a": 1}                ->  map(a,1)
	Expr                                  ->  appended verbatim
	"text", []byte, bool, fmt.Stringer    ->  plain text

See `Shape` for the effects of templates.
*/
func AppendValue(buf []byte, val any, tpl *Template) []byte {
	val, kind := classify(val)

	if tpl != nil && kind != KindNull {
		out, ok := tpl.appendValue(buf, val, kind)
		if ok {
			return out
		}
	}

	switch kind {
	case KindNull:
		return append(buf, `NULL`...)

	case KindChar:
		return strconv.AppendInt(buf, int64(val.(Char)), 10)

	case KindNumber:
		return appendNumber(buf, val)

	case KindTime:
		tim, scale := timeOf(val)
		return appendTimeQuoted(buf, tim, scale)

	case KindUUID:
		return appendQuoted(buf, val.(uuid.UUID).String())

	case KindULID:
		return appendQuoted(buf, val.(ulid.ULID).String())

	case KindList:
		return appendList(buf, r.ValueOf(val), parenOpen, parenClose, nil)

	case KindMap:
		return appendMap(buf, r.ValueOf(val), nil)

	case KindExpr:
		return val.(Expr).AppendExpr(buf)

	default:
		return appendText(buf, val)
	}
}

func (self *Template) appendValue(buf []byte, val any, kind Kind) ([]byte, bool) {
	switch self.Shape {
	case ShapeString:
		if kind == KindList || kind == KindMap || kind == KindExpr {
			return buf, false
		}
		return appendQuoted(buf, string(appendPlain(nil, val, kind))), true

	case ShapeDecimal:
		return appendDecimal(buf, val, kind, self.Scale)

	case ShapeDateTime:
		if kind != KindTime {
			return buf, false
		}
		tim, _ := timeOf(val)
		if self.Loc != nil {
			tim = tim.In(self.Loc)
		}
		return appendTimeQuoted(buf, tim, self.Scale), true

	case ShapeDate:
		if kind != KindTime {
			return buf, false
		}
		tim, _ := timeOf(val)
		buf = append(buf, quoteSingle)
		buf = tim.AppendFormat(buf, layoutDate)
		return append(buf, quoteSingle), true

	case ShapeArray:
		if kind != KindList {
			return buf, false
		}
		return appendList(buf, r.ValueOf(val), '[', ']', self.arrayElem), true

	case ShapeTuple:
		if kind != KindList {
			return buf, false
		}
		return appendList(buf, r.ValueOf(val), parenOpen, parenClose, self.Elem), true

	case ShapeMap:
		if kind != KindMap {
			return buf, false
		}
		return appendMap(buf, r.ValueOf(val), self), true

	default:
		return buf, false
	}
}

func (self *Template) arrayElem(int) *Template { return self.Elem(0) }

/*
Reduces a value to one of the known kinds. For `KindNull` the returned value
is nil. `driver.Valuer` and pointers are unwrapped, so the returned value may
differ from the input. A pointer is formatted like its target, unless the
target is plain text and the pointer has its own text methods.
*/
func classify(val any) (any, Kind) {
	if val == nil {
		return nil, KindNull
	}

	rval := r.ValueOf(val)
	if isValueNil(rval) {
		return nil, KindNull
	}

	if impl, ok := val.(Expr); ok {
		return impl, KindExpr
	}

	if impl, ok := val.(Nullable); ok && impl.IsNull() {
		return nil, KindNull
	}

	switch val := val.(type) {
	case Char:
		return val, KindChar
	case DateTime, time.Time:
		return val, KindTime
	case uuid.UUID:
		return val, KindUUID
	case ulid.ULID:
		return val, KindULID
	case *big.Int, *big.Float, *big.Rat:
		return val, KindNumber
	case string, []byte, bool:
		return val, KindText
	}

	if rval.Kind() == r.Ptr {
		out, kind := classify(rval.Elem().Interface())
		if kind != KindText || !hasTextMethods(val) {
			return out, kind
		}
	}

	if impl, ok := val.(driver.Valuer); ok {
		return classifyValuer(impl)
	}

	if hasTextMethods(val) {
		return val, KindText
	}

	switch rval.Kind() {
	case r.Int, r.Int8, r.Int16, r.Int32, r.Int64,
		r.Uint, r.Uint8, r.Uint16, r.Uint32, r.Uint64, r.Uintptr,
		r.Float32, r.Float64:
		return val, KindNumber

	case r.Slice:
		if rval.Type().Elem().Kind() == r.Uint8 {
			return val, KindText
		}
		return val, KindList

	case r.Array:
		return val, KindList

	case r.Map:
		return val, KindMap

	default:
		return val, KindText
	}
}

func hasTextMethods(val any) bool {
	switch val.(type) {
	case driver.Valuer, Appender, encoding.TextMarshaler, fmt.Stringer:
		return true
	default:
		return false
	}
}

// A valuer that fails to produce a value is formatted as plain text.
func classifyValuer(val driver.Valuer) (any, Kind) {
	out, err := val.Value()
	if err != nil {
		return val, KindText
	}
	if out == nil {
		return nil, KindNull
	}
	return classify(out)
}

// Plain unquoted text of a scalar, used by string templates.
func appendPlain(buf []byte, val any, kind Kind) []byte {
	switch kind {
	case KindChar:
		return utf8.AppendRune(buf, rune(val.(Char)))
	case KindNumber:
		return appendNumber(buf, val)
	case KindTime:
		tim, scale := timeOf(val)
		return appendTimeText(buf, tim, scale)
	case KindUUID:
		return append(buf, val.(uuid.UUID).String()...)
	case KindULID:
		return append(buf, val.(ulid.ULID).String()...)
	default:
		return appendText(buf, val)
	}
}

func appendText(buf []byte, val any) []byte {
	switch val := val.(type) {
	case string:
		return append(buf, val...)
	case []byte:
		return append(buf, val...)
	case bool:
		return strconv.AppendBool(buf, val)
	case Appender:
		return val.Append(buf)
	case encoding.TextMarshaler:
		text, err := val.MarshalText()
		if err == nil {
			return append(buf, text...)
		}
	case fmt.Stringer:
		return append(buf, val.String()...)
	}

	rval := r.ValueOf(val)
	switch rval.Kind() {
	case r.String:
		return append(buf, rval.String()...)
	case r.Bool:
		return strconv.AppendBool(buf, rval.Bool())
	case r.Slice:
		if rval.Type().Elem().Kind() == r.Uint8 {
			return append(buf, rval.Bytes()...)
		}
	}
	return fmt.Append(buf, val)
}

/*
Single-quoted string literal. Backslashes and quotes are escaped with a
backslash, which is the escaping ClickHouse uses in string literals.
*/
func appendQuoted(buf []byte, src string) []byte {
	buf = growBytes(buf, len(src)+2)
	buf = append(buf, quoteSingle)
	for ind := 0; ind < len(src); ind++ {
		char := src[ind]
		if char == quoteSingle || char == backslash {
			buf = append(buf, backslash)
		}
		buf = append(buf, char)
	}
	return append(buf, quoteSingle)
}

// Quotes the given text as a ClickHouse string literal.
func Quote(src string) string { return string(appendQuoted(nil, src)) }

func appendNumber(buf []byte, val any) []byte {
	switch val := val.(type) {
	case *big.Int:
		return val.Append(buf, 10)
	case *big.Float:
		if val.IsInf() {
			return appendInf(buf, val.Signbit())
		}
		return val.Append(buf, 'f', -1)
	case *big.Rat:
		return appendRat(buf, val)
	}

	rval := r.ValueOf(val)
	switch rval.Kind() {
	case r.Int, r.Int8, r.Int16, r.Int32, r.Int64:
		return strconv.AppendInt(buf, rval.Int(), 10)
	case r.Uint, r.Uint8, r.Uint16, r.Uint32, r.Uint64, r.Uintptr:
		return strconv.AppendUint(buf, rval.Uint(), 10)
	case r.Float32:
		return appendFloat(buf, rval.Float(), 32)
	case r.Float64:
		return appendFloat(buf, rval.Float(), 64)
	default:
		return appendText(buf, val)
	}
}

// ClickHouse spells special floats as `nan`, `inf`, `-inf`.
func appendFloat(buf []byte, val float64, bits int) []byte {
	if math.IsNaN(val) {
		return append(buf, `nan`...)
	}
	if math.IsInf(val, 0) {
		return appendInf(buf, val < 0)
	}
	return strconv.AppendFloat(buf, val, 'f', -1, bits)
}

func appendInf(buf []byte, neg bool) []byte {
	if neg {
		return append(buf, `-inf`...)
	}
	return append(buf, `inf`...)
}

// Maximum fraction digits of a rational without a finite decimal form.
const maxRatDigits = 38

/*
Exact decimal text when the denominator has no prime factors other than 2
and 5, otherwise rounded to `maxRatDigits` fraction digits.
*/
func appendRat(buf []byte, val *big.Rat) []byte {
	if val.IsInt() {
		return val.Num().Append(buf, 10)
	}
	return append(buf, val.FloatString(ratDigits(val.Denom()))...)
}

func ratDigits(den *big.Int) int {
	rem := new(big.Int).Set(den)
	mod := new(big.Int)
	two, five := big.NewInt(2), big.NewInt(5)

	twos := 0
	for {
		quo, m := new(big.Int).QuoRem(rem, two, mod)
		if m.Sign() != 0 {
			break
		}
		rem = quo
		twos++
	}

	fives := 0
	for {
		quo, m := new(big.Int).QuoRem(rem, five, mod)
		if m.Sign() != 0 {
			break
		}
		rem = quo
		fives++
	}

	if rem.Cmp(big.NewInt(1)) != 0 {
		return maxRatDigits
	}
	return min(max(twos, fives), maxRatDigits)
}

/*
Truncates toward zero to exactly `scale` fraction digits. Numbers and text
that parses as a number are supported; other kinds, and non-finite floats,
are not.
*/
func appendDecimal(buf []byte, val any, kind Kind, scale int) ([]byte, bool) {
	rat, ok := ratOf(val, kind)
	if !ok {
		return buf, false
	}

	scale = min(max(scale, 0), maxDecimalScale)
	num := new(big.Int).Mul(rat.Num(), pow10(scale))
	num.Quo(num, rat.Denom())
	return appendScaled(buf, num, scale), true
}

func ratOf(val any, kind Kind) (*big.Rat, bool) {
	switch kind {
	case KindNumber:
	case KindText:
		return new(big.Rat).SetString(strings.TrimSpace(string(appendText(nil, val))))
	default:
		return nil, false
	}

	switch val := val.(type) {
	case *big.Int:
		return new(big.Rat).SetInt(val), true
	case *big.Rat:
		return new(big.Rat).Set(val), true
	case *big.Float:
		if val.IsInf() {
			return nil, false
		}
		out, _ := val.Rat(nil)
		return out, true
	}

	rval := r.ValueOf(val)
	switch rval.Kind() {
	case r.Int, r.Int8, r.Int16, r.Int32, r.Int64:
		return new(big.Rat).SetInt64(rval.Int()), true
	case r.Uint, r.Uint8, r.Uint16, r.Uint32, r.Uint64, r.Uintptr:
		return new(big.Rat).SetInt(new(big.Int).SetUint64(rval.Uint())), true
	case r.Float32:
		return floatRat(rval.Float(), 32)
	case r.Float64:
		return floatRat(rval.Float(), 64)
	default:
		return nil, false
	}
}

/*
Uses the shortest decimal text of the float, so that `0.1` truncates as
`0.1` rather than as its binary approximation.
*/
func floatRat(val float64, bits int) (*big.Rat, bool) {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return nil, false
	}
	return new(big.Rat).SetString(strconv.FormatFloat(val, 'g', -1, bits))
}

func pow10(exp int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil)
}

// Appends `num / 10^scale` with exactly `scale` fraction digits.
func appendScaled(buf []byte, num *big.Int, scale int) []byte {
	if num.Sign() < 0 {
		buf = append(buf, '-')
	}

	digits := new(big.Int).Abs(num).String()
	if len(digits) <= scale {
		digits = strings.Repeat(`0`, scale-len(digits)+1) + digits
	}

	cut := len(digits) - scale
	buf = append(buf, digits[:cut]...)
	if scale > 0 {
		buf = append(buf, '.')
		buf = append(buf, digits[cut:]...)
	}
	return buf
}

func timeOf(val any) (time.Time, int) {
	switch val := val.(type) {
	case DateTime:
		return val.Time, clampTimeScale(val.Scale)
	case time.Time:
		if val.Nanosecond() != 0 {
			return val, maxTimeScale
		}
		return val, 0
	default:
		return time.Time{}, 0
	}
}

func clampTimeScale(val int) int { return min(max(val, 0), maxTimeScale) }

func appendTimeQuoted(buf []byte, val time.Time, scale int) []byte {
	buf = append(buf, quoteSingle)
	buf = appendTimeText(buf, val, scale)
	return append(buf, quoteSingle)
}

// Truncates the fraction to `scale` digits.
func appendTimeText(buf []byte, val time.Time, scale int) []byte {
	buf = val.AppendFormat(buf, layoutDateTime)
	if scale <= 0 {
		return buf
	}

	frac := val.Nanosecond()
	for range maxTimeScale - scale {
		frac /= 10
	}

	buf = append(buf, '.')
	start := len(buf)
	buf = strconv.AppendInt(buf, int64(frac), 10)
	for len(buf)-start < scale {
		buf = slices.Insert(buf, start, '0')
	}
	return buf
}

/*
Elements are formatted recursively. The template function, if any, provides
the template for each position.
*/
func appendList(buf []byte, val r.Value, open, close byte, elem func(int) *Template) []byte {
	buf = append(buf, open)
	for ind := range val.Len() {
		if ind > 0 {
			buf = append(buf, comma)
		}
		buf = AppendValue(buf, val.Index(ind).Interface(), tplAt(elem, ind))
	}
	return append(buf, close)
}

func tplAt(fun func(int) *Template, ind int) *Template {
	if fun == nil {
		return nil
	}
	return fun(ind)
}

/*
Entries are sorted by the formatted key, so the output doesn't depend on Go's
map iteration order.
*/
func appendMap(buf []byte, val r.Value, tpl *Template) []byte {
	type entry struct{ key, val []byte }

	entries := make([]entry, 0, val.Len())
	iter := val.MapRange()
	for iter.Next() {
		entries = append(entries, entry{
			key: AppendValue(nil, iter.Key().Interface(), tpl.Elem(0)),
			val: AppendValue(nil, iter.Value().Interface(), tpl.Elem(1)),
		})
	}

	slices.SortFunc(entries, func(one, two entry) int {
		return strings.Compare(bytesToMutableString(one.key), bytesToMutableString(two.key))
	})

	buf = append(buf, `map(`...)
	for ind, entry := range entries {
		if ind > 0 {
			buf = append(buf, comma)
		}
		buf = append(buf, entry.key...)
		buf = append(buf, comma)
		buf = append(buf, entry.val...)
	}
	return append(buf, parenClose)
}
