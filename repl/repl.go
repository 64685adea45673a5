// Copyright © 2021 The Lust authors

// Package repl implements the interactive lust prompt. Every submitted form
// compiles and executes in a fresh session, so definitions do not persist
// between lines.
package repl

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ergochat/readline"

	"github.com/ZekeMedley/lust/lust"
	"github.com/ZekeMedley/lust/parser"
)

type config struct {
	stdin       io.ReadCloser
	stderr      io.Writer
	compileOpts []lust.Option
}

func newConfig(opts ...Option) *config {
	config := &config{stderr: os.Stderr}
	for _, opt := range opts {
		opt(config)
	}
	return config
}

// Option adjusts REPL behavior.
type Option func(*config)

// WithStdin overrides the input to the REPL.
func WithStdin(stdin io.ReadCloser) Option {
	return func(c *config) {
		c.stdin = stdin
	}
}

// WithStderr overrides the output of the REPL.
func WithStderr(stderr io.Writer) Option {
	return func(c *config) {
		c.stderr = stderr
	}
}

// WithCompileOptions passes session options to every compilation.
func WithCompileOptions(opts ...lust.Option) Option {
	return func(c *config) {
		c.compileOpts = append(c.compileOpts, opts...)
	}
}

// RunRepl reads forms from the terminal until EOF, compiling and executing
// each as its own program.
func RunRepl(prompt string, opts ...Option) {
	cfg := newConfig(opts...)
	cont := strings.Repeat(" ", len(prompt))

	histFile := historyPath()
	ensureHistoryFilePermissions(histFile)

	rlCfg := &readline.Config{
		Prompt:            prompt,
		HistoryFile:       histFile,
		HistorySearchFold: true,
		AutoComplete:      &symbolCompleter{},
	}
	if cfg.stdin != nil {
		rlCfg.Stdin = cfg.stdin
	}
	if w, ok := cfg.stderr.(io.WriteCloser); ok {
		rlCfg.Stdout = w
		rlCfg.Stderr = w
	}
	rl, err := readline.NewEx(rlCfg)
	if err != nil {
		panic(err)
	}
	defer rl.Close() //nolint:errcheck // best-effort cleanup

	for {
		src, err := readForm(rl, prompt, cont)
		if err == io.EOF {
			break
		}
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil {
			renderError(cfg.stderr, err)
			continue
		}
		if strings.TrimSpace(src) == "" {
			continue
		}
		exprs, err := parser.Parse("repl", []byte(src))
		if err != nil {
			renderError(cfg.stderr, err)
			continue
		}
		if len(exprs) == 0 {
			continue
		}
		result, err := lust.RoundtripProgram(exprs, cfg.compileOpts...)
		if err != nil {
			renderError(cfg.stderr, err)
			continue
		}
		fmt.Fprintln(cfg.stderr, result) //nolint:errcheck // best-effort REPL output
	}
}

// readForm reads lines until the parentheses balance, so multi-line forms
// can be typed naturally.
func readForm(rl *readline.Instance, prompt, cont string) (string, error) {
	rl.SetPrompt(prompt)
	var buf strings.Builder
	for {
		line, err := rl.ReadSlice()
		if err != nil {
			return "", err
		}
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(line)
		if parenDepth(buf.String()) <= 0 {
			return buf.String(), nil
		}
		rl.SetPrompt(cont)
	}
}

// parenDepth counts unclosed parentheses, ignoring comment text.
func parenDepth(src string) int {
	depth := 0
	comment := false
	for _, c := range src {
		switch {
		case c == '\n':
			comment = false
		case comment:
		case c == ';':
			comment = true
		case c == '(':
			depth++
		case c == ')':
			depth--
		}
	}
	return depth
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".lust_history")
}

// ensureHistoryFilePermissions keeps the history file private. The file is
// created ahead of readline so it never exists with a looser mode.
func ensureHistoryFilePermissions(path string) {
	if path == "" {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE, 0600)
	if err != nil {
		return
	}
	f.Close() //nolint:errcheck // nothing was written
	_ = os.Chmod(path, 0600)
}
