package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) (*Session, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	sess := NewSession()
	sess.out = &buf
	return sess, &buf
}

func execAll(t *testing.T, sess *Session, commands ...string) {
	t.Helper()
	for _, cmd := range commands {
		require.NoError(t, sess.Execute(cmd), "command %q", cmd)
	}
}

func TestSessionRender(t *testing.T) {
	t.Parallel()
	sess, _ := newTestSession(t)
	execAll(t, sess,
		"query select :a, :b(String), :a, :c",
		"set a=10",
		"set b=it's",
		"null c",
	)

	text, err := sess.Render()
	require.NoError(t, err)
	assert.Equal(t, `select 10, 'it\'s', 10, NULL`, text)
}

func TestSessionRenderWithoutQuery(t *testing.T) {
	t.Parallel()
	sess, _ := newTestSession(t)

	_, err := sess.Render()
	assert.ErrorIs(t, err, errNoQuery)
	assert.ErrorIs(t, sess.Execute("render"), errNoQuery)
	assert.ErrorIs(t, sess.Execute("segments"), errNoQuery)
	assert.ErrorIs(t, sess.Execute("names"), errNoQuery)
}

func TestSessionRenderCommand(t *testing.T) {
	t.Parallel()
	sess, buf := newTestSession(t)
	execAll(t, sess, "query select :x + 1", "set x=41")
	buf.Reset()

	execAll(t, sess, "render")
	assert.Equal(t, "  select 41 + 1\n", buf.String())
}

func TestSessionQueryKeepsParams(t *testing.T) {
	t.Parallel()
	sess, _ := newTestSession(t)
	execAll(t, sess, "set id=7", "query select :id", "query select :id * 2")

	text, err := sess.Render()
	require.NoError(t, err)
	assert.Equal(t, "select 7 * 2", text)
}

func TestSessionQueryPreservesCase(t *testing.T) {
	t.Parallel()
	sess, _ := newTestSession(t)
	execAll(t, sess, "QUERY SELECT :Id FROM T", "set Id=1")

	text, err := sess.Render()
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1 FROM T", text)
}

func TestSessionUnset(t *testing.T) {
	t.Parallel()
	sess, _ := newTestSession(t)
	execAll(t, sess, "query select :a", "set a=1", "unset a")

	text, err := sess.Render()
	require.NoError(t, err)
	assert.Equal(t, "select NULL", text)

	assert.Error(t, sess.Execute("unset a"))
}

func TestSessionReset(t *testing.T) {
	t.Parallel()
	sess, buf := newTestSession(t)
	execAll(t, sess, "query select :a", "set a=1", "reset")
	assert.Contains(t, buf.String(), "Parameters cleared")

	buf.Reset()
	execAll(t, sess, "params")
	assert.Equal(t, "  No parameters set\n", buf.String())
}

func TestSessionParams(t *testing.T) {
	t.Parallel()
	sess, buf := newTestSession(t)
	execAll(t, sess, "set b=2", "set a=1", "null c")
	buf.Reset()

	execAll(t, sess, "params")
	assert.Equal(t, "  a = 1\n  b = 2\n  c = NULL\n", buf.String())
}

func TestSessionNames(t *testing.T) {
	t.Parallel()
	sess, buf := newTestSession(t)
	execAll(t, sess, "query select :a, :b(Nullable(DateTime64(3)))")
	buf.Reset()

	execAll(t, sess, "names")
	assert.Equal(t, "  1  a\n  2  b  DateTime64(3)\n", buf.String())
}

func TestSessionSegments(t *testing.T) {
	t.Parallel()
	sess, buf := newTestSession(t)
	execAll(t, sess, "query select :a from t")
	buf.Reset()

	execAll(t, sess, "segments")
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"select "`)
	assert.Contains(t, lines[0], "a")
	assert.Contains(t, lines[1], `" from t"`)
	assert.Contains(t, lines[1], "-")
}

func TestSessionUsageErrors(t *testing.T) {
	t.Parallel()
	sess, _ := newTestSession(t)

	tests := []string{
		"set a",
		"set =1",
		"set 1a=2",
		"null",
		"null a b",
		"unset ",
		"frobnicate",
	}
	for _, cmd := range tests {
		assert.Error(t, sess.Execute(cmd), "command %q", cmd)
	}
}

func TestSessionHelp(t *testing.T) {
	t.Parallel()
	sess, buf := newTestSession(t)
	execAll(t, sess, "help")

	out := buf.String()
	for _, word := range []string{"query", "set", "null", "unset", "params", "segments", "render", "exit"} {
		assert.Contains(t, out, word)
	}
}

func TestRun(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := run(&buf, "select :a, :b(Decimal(10, 2))", map[string]any{"a": "x", "b": "1.239"}, false)
	require.NoError(t, err)
	assert.Equal(t, "select x, 1.23\n", buf.String())
}

func TestRunSegments(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, run(&buf, "select 1", nil, true))
	assert.Equal(t, "  0  -            \"select 1\"\n", buf.String())
}

func TestRunEmptyQuery(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	assert.Error(t, run(&buf, "", nil, false))
}

func TestParamFlags(t *testing.T) {
	t.Parallel()

	params := paramFlags{}
	require.NoError(t, params.Set("a=1"))
	require.NoError(t, params.Set("b = x=y"))
	require.NoError(t, nullFlags(params).Set("c"))
	assert.Error(t, params.Set("novalue"))
	assert.Error(t, nullFlags(params).Set("1c"))

	assert.Equal(t, paramFlags{"a": "1", "b": "x=y", "c": nil}, params)
}

func TestSessionCommandPrefix(t *testing.T) {
	t.Parallel()
	sess, buf := newTestSession(t)
	execAll(t, sess, "que select :a", "set a=1", "par", "REND")
	assert.Contains(t, buf.String(), "a = 1")
	assert.Contains(t, buf.String(), "select 1")

	err := sess.Execute("re")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous command")
	assert.Contains(t, err.Error(), "render")
	assert.Contains(t, err.Error(), "reset")

	assert.Error(t, sess.Execute("render now"))
	assert.Contains(t, sess.Execute("frob").Error(), "unknown command")
}
