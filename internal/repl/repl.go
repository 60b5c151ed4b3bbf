// Package repl implements the interactive loop: every accepted line is
// generated into one persistent session.
package repl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/orizon-lang/kaleido/internal/ast"
	"github.com/orizon-lang/kaleido/internal/session"
)

const (
	promptMain  = "ready> "
	historyFile = ".kaleido_history"
)

// LineReader is the part of liner.State the loop needs.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// REPL reads forms line by line and runs them.
type REPL struct {
	sess   *session.Session
	in     LineReader
	out    io.Writer
	prompt string
	lineNo int
}

// New returns a loop reading from in and running into sess.
func New(sess *session.Session, in LineReader, out io.Writer) *REPL {
	return &REPL{sess: sess, in: in, out: out, prompt: promptMain}
}

// Loop runs until end of input or :quit.
func (r *REPL) Loop() error {
	for {
		line, err := r.in.Prompt(r.prompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(r.out)
			return nil
		}
		if err != nil {
			return err
		}

		quit, err := r.Handle(line)
		if err != nil {
			// Already reported through the session's diagnostics.
			continue
		}
		if quit {
			return nil
		}
	}
}

// Handle runs one line. Lines starting with ':' are commands.
func (r *REPL) Handle(line string) (quit bool, err error) {
	src := strings.TrimSpace(line)
	if src == "" {
		return false, nil
	}
	r.in.AppendHistory(src)

	if strings.HasPrefix(src, ":") {
		return r.command(src)
	}

	r.lineNo++
	return false, r.sess.Run(src, fmt.Sprintf("<repl:%d>", r.lineNo))
}

func (r *REPL) command(cmd string) (bool, error) {
	fields := strings.Fields(cmd)
	switch fields[0] {
	case ":quit", ":q":
		return true, nil
	case ":ir":
		fmt.Fprint(r.out, r.sess.Module().String())
	case ":ast":
		seq, err := r.sess.Parse(strings.TrimSpace(strings.TrimPrefix(cmd, ":ast")), "<repl>")
		if err != nil {
			return false, err
		}
		if err := ast.Print(r.out, seq); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out)
	case ":help":
		fmt.Fprintln(r.out, ":ir      print the module")
		fmt.Fprintln(r.out, ":ast SRC print the tree of SRC")
		fmt.Fprintln(r.out, ":quit    leave")
	default:
		fmt.Fprintf(r.out, "unknown command %s, try :help\n", fields[0])
	}
	return false, nil
}

// Run starts an interactive terminal session with history kept in the
// user's home directory.
func Run(sess *session.Session) error {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	return New(sess, ln, os.Stdout).Loop()
}
