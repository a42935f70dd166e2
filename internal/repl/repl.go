// Package repl drives a session from a terminal or a line-oriented stream.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/brettbedarf/sandboxfs"
	"github.com/brettbedarf/sandboxfs/config"
	"github.com/brettbedarf/sandboxfs/internal/util"
	"github.com/brettbedarf/sandboxfs/session"
	"golang.org/x/term"
)

// clearScreen homes the cursor and erases the display
const clearScreen = "\x1b[H\x1b[2J"

// lineReader is satisfied by *term.Terminal and scannerReader
type lineReader interface {
	ReadLine() (string, error)
	SetPrompt(prompt string)
}

// scannerReader reads plain lines and never renders a prompt
type scannerReader struct {
	scanner *bufio.Scanner
}

func (s *scannerReader) ReadLine() (string, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.scanner.Text(), nil
}

func (s *scannerReader) SetPrompt(string) {}

// REPL reads lines, submits them to a session and prints their output
type REPL struct {
	sess   *session.Session
	prompt string
	reader lineReader
	out    io.Writer
	tty    bool
	echo   bool
	logger util.Logger
}

type Option func(*REPL)

// WithEcho prints the prompt and each submitted line before its output,
// so scripted runs read like an interactive session
func WithEcho() Option {
	return func(r *REPL) { r.echo = true }
}

// New creates a REPL reading newline separated input from in
func New(sess *session.Session, cfg *config.Config, in io.Reader, out io.Writer, opts ...Option) *REPL {
	r := newREPL(sess, cfg, &scannerReader{scanner: bufio.NewScanner(in)}, out)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewTerminal creates a REPL with line editing over rw, which is
// normally a terminal already placed in raw mode
func NewTerminal(sess *session.Session, cfg *config.Config, rw io.ReadWriter) *REPL {
	t := term.NewTerminal(rw, "")
	r := newREPL(sess, cfg, t, t)
	r.tty = true
	return r
}

func newREPL(sess *session.Session, cfg *config.Config, reader lineReader, out io.Writer) *REPL {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	return &REPL{
		sess:   sess,
		prompt: cfg.Prompt,
		reader: reader,
		out:    out,
		logger: util.GetLogger("REPL"),
	}
}

// Run loops until input ends, exit or quit is entered, or ctx is done
func (r *REPL) Run(ctx context.Context) error {
	cleared := false
	unsubscribe := r.sess.Subscribe(sandboxfs.ObserverFunc(func(ev sandboxfs.Event) {
		if _, ok := ev.(sandboxfs.EventCleared); ok {
			cleared = true
		}
	}))
	defer unsubscribe()

	for ctx.Err() == nil {
		prompt := r.renderPrompt()
		r.reader.SetPrompt(prompt)
		line, err := r.reader.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "exit" || trimmed == "quit" {
			return nil
		}
		if r.echo && trimmed != "" {
			fmt.Fprintf(r.out, "%s%s\n", prompt, trimmed)
		}

		cleared = false
		entry, recorded := r.sess.Submit(line)
		if cleared && r.tty {
			fmt.Fprint(r.out, clearScreen)
		}
		if !recorded || entry.Output == nil {
			continue
		}
		if text := entry.Output.String(); text != "" {
			fmt.Fprintln(r.out, text)
		}
	}
	r.logger.Debug().Err(ctx.Err()).Msg("REPL stopped")
	return nil
}

func (r *REPL) renderPrompt() string {
	if strings.Contains(r.prompt, "%s") {
		return fmt.Sprintf(r.prompt, r.sess.Cwd())
	}
	return r.prompt
}
