// Command chq renders ClickHouse queries with :name placeholders.
//
// Usage:
//
//	chq -q 'select :id, :ts(DateTime)' -p id=10 -p 'ts=2024-01-02 03:04:05'
//	chq -q 'select :a' -segments
//	chq    (interactive REPL)
//
// Configuration (env vars):
//
//	CHQ_HISTORY=<path>  (optional, REPL history file, default ~/.chq_history)
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ergochat/readline"
	"github.com/mitranim/chq"
)

// paramFlags collects repeatable -p name=value flags.
type paramFlags map[string]any

func (p paramFlags) String() string { return fmt.Sprint(map[string]any(p)) }

func (p paramFlags) Set(src string) error {
	name, val, err := parseAssignment(src)
	if err != nil {
		return err
	}
	p[name] = val
	return nil
}

// nullFlags collects repeatable -null name flags into the same parameter map.
type nullFlags map[string]any

func (p nullFlags) String() string { return "" }

func (p nullFlags) Set(src string) error {
	if !isName(src) {
		return fmt.Errorf("expected parameter name, got %q", src)
	}
	p[src] = nil
	return nil
}

var (
	queryFlag    = flag.String("q", "", "query to render; starts the REPL when empty")
	segmentsFlag = flag.Bool("segments", false, "print the parsed segments instead of rendering")
	params       = paramFlags{}
)

func main() {
	flag.Var(params, "p", "parameter `name=value` (repeatable)")
	flag.Var(nullFlags(params), "null", "parameter `name` bound to explicit null (repeatable)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Renders ClickHouse queries with :name and :name(Type) placeholders.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -q \"select :id\" -p id=10\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -q \"select :name(String)\" -p name=O'Brien\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -q \"select :a, :a\" -segments\n", os.Args[0])
	}

	flag.Parse()

	if *queryFlag == "" {
		if *segmentsFlag {
			fmt.Fprintf(os.Stderr, "Error: -segments requires -q\n")
			os.Exit(1)
		}
		runREPL()
		return
	}

	if err := run(os.Stdout, *queryFlag, params, *segmentsFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run renders a single query to out.
func run(out io.Writer, src string, params map[string]any, segments bool) error {
	prep, err := chq.Parse(src)
	if err != nil {
		return err
	}
	if segments {
		writeSegments(out, prep)
		return nil
	}
	_, err = fmt.Fprintln(out, prep.ApplyDict(params))
	return err
}

func runREPL() {
	rl, err := readline.NewFromConfig(&readline.Config{
		Prompt:          "chq> ",
		HistoryFile:     historyPath(),
		HistoryLimit:    500,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline init: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = rl.Close() }()

	sess := NewSession()
	for name, val := range params {
		sess.Set(name, val)
	}

	fmt.Println("chq REPL: type 'help' for commands, 'exit' to quit")
	fmt.Println()

	for {
		line, err := rl.ReadLine()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		if lower == "exit" || lower == "quit" {
			break
		}
		if err := sess.Execute(line); err != nil {
			fmt.Fprintf(os.Stderr, "  Error: %v\n", err)
		}
	}
	fmt.Println()
}

func historyPath() string {
	if path := os.Getenv("CHQ_HISTORY"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".chq_history")
}
