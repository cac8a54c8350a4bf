package chq

import (
	"fmt"
	r "reflect"
	"runtime"
	"strings"
	"testing"
	"time"
	"unsafe"
)

type Internal struct {
	Id   string `json:"internalId"   db:"id"`
	Name string `json:"internalName" db:"name"`
}

type External struct {
	Id       string   `json:"externalId"       db:"id"`
	Name     string   `json:"externalName"     db:"name"`
	Internal Internal `json:"externalInternal" db:"internal"`
}

// nolint:govet
type Embed struct {
	Id        string `json:"embedId"      db:"embed_id"`
	Name      string `json:"embedName"    db:"embed_name"`
	private   string `json:"embedPrivate" db:"embed_private"`
	Untagged0 string ``
	Untagged1 string `db:"-"`
	_         string `db:"blank"`
}

type Outer struct {
	Embed
	Id       string `json:"outerId"   db:"outer_id"`
	Name     string `json:"outerName" db:"outer_name"`
	OnlyJson string `json:"onlyJson"`
}

var testOuter = Outer{
	Id:   `outer id`,
	Name: `outer name`,
	Embed: Embed{
		Id:        `embed id`,
		Name:      `embed name`,
		private:   `private`,
		Untagged0: `untagged 0`,
		Untagged1: `untagged 1`,
	},
}

type list = []any

// Implements `Nullable`.
type NullInt struct {
	Val   int64
	Valid bool
}

func (self NullInt) IsNull() bool { return !self.Valid }

func (self NullInt) String() string { return fmt.Sprint(self.Val) }

// Implements `fmt.Stringer` only.
type Color byte

func (self Color) String() string {
	switch self {
	case 1:
		return `red`
	case 2:
		return `green`
	default:
		return `unknown`
	}
}

// Implements `Appender` only.
type Ident string

func (self Ident) Append(buf []byte) []byte {
	buf = append(buf, '`')
	buf = append(buf, self...)
	return append(buf, '`')
}

// Named types without methods, formatted by kind.
type (
	UserId   int64
	Ratio    float32
	Label    string
	Flag     bool
	Readings []float64
)

func eq(t testing.TB, exp, act any) {
	t.Helper()
	if !r.DeepEqual(exp, act) {
		t.Fatalf(`
expected (detailed):
	%#[1]v
actual (detailed):
	%#[2]v
expected (simple):
	%[1]v
actual (simple):
	%[2]v
`, exp, act)
	}
}

func is(t testing.TB, exp, act any) {
	t.Helper()

	expIface := *(*iface)(unsafe.Pointer(&exp))
	actIface := *(*iface)(unsafe.Pointer(&act))

	if expIface != actIface {
		t.Fatalf(`
expected (interface):
	%#[1]v
actual (interface):
	%#[2]v
expected (detailed):
	%#[3]v
actual (detailed):
	%#[4]v
expected (simple):
	%[3]v
actual (simple):
	%[4]v
`, expIface, actIface, exp, act)
	}
}

// nolint:structcheck
type iface struct {
	typ unsafe.Pointer
	dat unsafe.Pointer
}

/*
Verifies that two strings share the same backing bytes. Boxing a string in an
interface copies its header, so `is` can't be used for this.
*/
func sameString(t testing.TB, exp, act string) {
	t.Helper()
	if len(exp) != len(act) || unsafe.StringData(exp) != unsafe.StringData(act) {
		t.Fatalf(`
expected the same string (data %p, len %v):
	%q
actual (data %p, len %v):
	%q
`, unsafe.StringData(exp), len(exp), exp, unsafe.StringData(act), len(act), act)
	}
}

func notEq(t testing.TB, exp, act any) {
	t.Helper()
	if r.DeepEqual(exp, act) {
		fatalNotEq(t, exp, act)
	}
}

func fatalNotEq(t testing.TB, exp, act any) {
	t.Helper()
	t.Fatalf(`
unexpected equality (detailed):
	%#[1]v
unexpected equality (simple):
	%[1]v
`, exp, act)
}

func panics(t testing.TB, msg string, fun func()) {
	t.Helper()
	val := catchAny(fun)

	if val == nil {
		t.Fatalf(`expected %v to panic, found no panic`, funcName(fun))
	}

	str := fmt.Sprint(val)
	if !strings.Contains(str, msg) {
		t.Fatalf(
			`expected %v to panic with a message containing %q, found %q`,
			funcName(fun), msg, str,
		)
	}
}

func funcName(val any) string {
	return runtime.FuncForPC(r.ValueOf(val).Pointer()).Name()
}

func catchAny(fun func()) (val any) {
	defer recAny(&val)
	fun()
	return
}

func recAny(ptr *any) { *ptr = recover() }

func strPtr(val string) *string { return &val }

// 1970-01-01 02:46:40.123456789 UTC.
var testTime = time.Unix(10000, 123456789).UTC()

const hugeQuery = /*sql*/ `
	select
		event_date,
		count() as hits,
		uniqExact(user_id) as users,
		quantile(0.9)(duration) as p90,
		:label(String) as label
	from events
	where
		true
		and event_date between :date_from(Date) and :date_to(Date)
		and event_time >= :since(DateTime64(3, 'UTC'))
		and site_id in :sites(Array(UInt32))
		and (:kind = '' or kind = :kind(LowCardinality(String)))
		and path not like '%:not_a_param%'
		and toDecimal64(amount, 2) > :min_amount(Decimal64(2))
		and attrs['key:with:colons'] = :attr_val(String)
		and duration::Float64 < :max_duration
		and (:user_id is null or user_id = :user_id(Nullable(UInt64)))
		and (country, city) in :places(Array(Tuple(String, String)))
		and tags = :tags(Map(String, UInt8))
		and if(is_bot, 1, 0) ? 3:2
	group by event_date
	order by event_date
	limit :limit
`

var hugeQueryArgs = Dict{
	`label`:        `it's a label`,
	`date_from`:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	`date_to`:      time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	`since`:        testTime,
	`sites`:        []uint32{1, 2, 3},
	`kind`:         `click`,
	`min_amount`:   12.345,
	`attr_val`:     `value`,
	`max_duration`: 1.5,
	`user_id`:      nil,
	`places`:       [][2]string{{`DE`, `Berlin`}, {`FR`, `Paris`}},
	`tags`:         map[string]uint8{`b`: 2, `a`: 1},
	`limit`:        100,
}
