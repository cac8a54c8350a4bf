package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/mitranim/chq"
)

var errNoQuery = errors.New("no query defined (use 'query <sql>' first)")

// commandEntry maps a REPL prefix to its handler.
type commandEntry struct {
	prefix  string
	usage   string
	summary string
	handler func(args string) error
}

func (c commandEntry) name() string { return strings.TrimSpace(c.prefix) }

// Commands registered with a trailing space in the prefix take arguments.
func (c commandEntry) takesArgs() bool { return strings.HasSuffix(c.prefix, " ") }

// Session holds the REPL state: the current parsed query and the parameter
// values bound to it. Values are kept as typed arguments, so annotated
// placeholders are formatted by their templates.
type Session struct {
	prep     *chq.Prep
	params   map[string]any
	commands []commandEntry
	out      io.Writer // destination for REPL output (default os.Stdout)
}

// NewSession creates an empty session.
func NewSession() *Session {
	s := &Session{
		params: make(map[string]any),
		out:    os.Stdout,
	}
	s.initCommands()
	return s
}

func (s *Session) initCommands() {
	s.commands = []commandEntry{
		{prefix: "query ", usage: "query <sql>", summary: "parse a query with :name or :name(Type) placeholders", handler: s.cmdQuery},
		{prefix: "set ", usage: "set <name>=<value>", summary: "bind a parameter", handler: s.cmdSet},
		{prefix: "null ", usage: "null <name>", summary: "bind a parameter to explicit null", handler: s.cmdNull},
		{prefix: "unset ", usage: "unset <name>", summary: "remove a parameter binding", handler: s.cmdUnset},
		{prefix: "params", usage: "params", summary: "list bound parameters", handler: func(_ string) error { s.cmdParams(); return nil }},
		{prefix: "names", usage: "names", summary: "list placeholder names and their types", handler: func(_ string) error { return s.cmdNames() }},
		{prefix: "segments", usage: "segments", summary: "show the parsed segments", handler: func(_ string) error { return s.cmdSegments() }},
		{prefix: "render", usage: "render", summary: "print the query with parameters substituted", handler: func(_ string) error { return s.cmdRender() }},
		{prefix: "reset", usage: "reset", summary: "clear all parameter bindings", handler: func(_ string) error { s.cmdReset(); return nil }},
		{prefix: "help", usage: "help", summary: "show this help", handler: func(_ string) error { s.cmdHelp(); return nil }},
	}
}

// Execute runs a single REPL command line. The command word may be
// abbreviated to any unambiguous prefix, e.g. "rend" for "render".
func (s *Session) Execute(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	word, args := line, ""
	if ind := strings.IndexAny(line, " \t"); ind >= 0 {
		word, args = line[:ind], strings.TrimSpace(line[ind:])
	}

	cmd, err := s.lookup(strings.ToLower(word))
	if err != nil {
		return err
	}
	if !cmd.takesArgs() && args != "" {
		return fmt.Errorf("usage: %s", cmd.usage)
	}
	return cmd.handler(args)
}

// lookup finds the command named by word, which is either the full name or
// a prefix shared by no other command.
func (s *Session) lookup(word string) (commandEntry, error) {
	var found []commandEntry
	for _, cmd := range s.commands {
		name := cmd.name()
		if name == word {
			return cmd, nil
		}
		if strings.HasPrefix(name, word) {
			found = append(found, cmd)
		}
	}

	switch len(found) {
	case 0:
		return commandEntry{}, fmt.Errorf("unknown command: %s (type 'help' for commands)", word)
	case 1:
		return found[0], nil
	default:
		names := make([]string, len(found))
		for ind, cmd := range found {
			names[ind] = cmd.name()
		}
		return commandEntry{}, fmt.Errorf("ambiguous command: %s (could be %s)", word, strings.Join(names, ", "))
	}
}

// SetQuery parses and installs a query, keeping existing bindings.
func (s *Session) SetQuery(src string) error {
	prep, err := chq.Parse(src)
	if err != nil {
		return err
	}
	s.prep = prep
	return nil
}

// Set binds a parameter. A nil value is an explicit null.
func (s *Session) Set(name string, val any) {
	s.params[name] = val
}

// Render returns the current query with the bound parameters.
func (s *Session) Render() (string, error) {
	if s.prep == nil {
		return "", errNoQuery
	}
	return s.prep.ApplyDict(s.params), nil
}

// --- Command handlers ---

func (s *Session) cmdQuery(args string) error {
	if args == "" {
		return errors.New("usage: query <sql>")
	}
	if err := s.SetQuery(args); err != nil {
		return err
	}
	names := s.prep.Names()
	if len(names) == 0 {
		fmt.Fprintln(s.out, "  Query has no placeholders")
		return nil
	}
	fmt.Fprintf(s.out, "  Placeholders: %s\n", strings.Join(names, ", "))
	return nil
}

func (s *Session) cmdSet(args string) error {
	name, val, err := parseAssignment(args)
	if err != nil {
		return errors.New("usage: set <name>=<value>")
	}
	s.Set(name, val)
	return nil
}

func (s *Session) cmdNull(args string) error {
	if !isName(args) {
		return errors.New("usage: null <name>")
	}
	s.Set(args, nil)
	return nil
}

func (s *Session) cmdUnset(args string) error {
	if !isName(args) {
		return errors.New("usage: unset <name>")
	}
	if _, ok := s.params[args]; !ok {
		return fmt.Errorf("parameter %q is not set", args)
	}
	delete(s.params, args)
	return nil
}

func (s *Session) cmdParams() {
	if len(s.params) == 0 {
		fmt.Fprintln(s.out, "  No parameters set")
		return
	}
	keys := make([]string, 0, len(s.params))
	for key := range s.params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		val := s.params[key]
		if val == nil {
			fmt.Fprintf(s.out, "  %s = NULL\n", key)
			continue
		}
		fmt.Fprintf(s.out, "  %s = %v\n", key, val)
	}
}

func (s *Session) cmdNames() error {
	if s.prep == nil {
		return errNoQuery
	}
	templates := s.prep.Templates()
	for ind, name := range s.prep.Names() {
		if tpl := templates[ind]; tpl != nil {
			fmt.Fprintf(s.out, "  %d  %s  %s\n", ind+1, name, tpl)
			continue
		}
		fmt.Fprintf(s.out, "  %d  %s\n", ind+1, name)
	}
	return nil
}

func (s *Session) cmdSegments() error {
	if s.prep == nil {
		return errNoQuery
	}
	writeSegments(s.out, s.prep)
	return nil
}

func (s *Session) cmdRender() error {
	text, err := s.Render()
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "  %s\n", text)
	return nil
}

func (s *Session) cmdReset() {
	s.params = make(map[string]any)
	fmt.Fprintln(s.out, "  Parameters cleared")
}

func (s *Session) cmdHelp() {
	fmt.Fprintln(s.out, "Commands:")
	for _, cmd := range s.commands {
		fmt.Fprintf(s.out, "  %-20s %s\n", cmd.usage, cmd.summary)
	}
	fmt.Fprintf(s.out, "  %-20s %s\n", "exit", "quit the REPL")
}

// writeSegments prints one line per segment: the literal text preceding a
// placeholder, then the placeholder name, or "-" for the trailing text.
func writeSegments(out io.Writer, prep *chq.Prep) {
	for ind, seg := range prep.Segments() {
		name := seg.Name
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(out, "  %d  %-12s %q\n", ind, name, seg.Text)
	}
}

// parseAssignment splits "name=value". The value may be empty.
func parseAssignment(src string) (string, string, error) {
	name, val, ok := strings.Cut(src, "=")
	name = strings.TrimSpace(name)
	if !ok || !isName(name) {
		return "", "", fmt.Errorf("expected <name>=<value>, got %q", src)
	}
	return name, strings.TrimSpace(val), nil
}

func isName(src string) bool {
	if src == "" {
		return false
	}
	for i, char := range src {
		switch {
		case char == '_', 'a' <= char && char <= 'z', 'A' <= char && char <= 'Z':
		case i > 0 && '0' <= char && char <= '9':
		default:
			return false
		}
	}
	return true
}
