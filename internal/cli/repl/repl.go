package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ExecFunc runs one command line and writes its reply.
type ExecFunc func(ctx context.Context, args []string) error

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	input     io.Reader
	output    io.Writer
	prompt    string
	completer *Completer
	history   *History
	exec      ExecFunc
}

// Option configures a REPL.
type Option func(*REPL)

// WithIO sets the input and output streams.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(r *REPL) {
		r.input = in
		r.output = out
	}
}

// WithPrompt sets the prompt, usually the server address.
func WithPrompt(prompt string) Option {
	return func(r *REPL) {
		r.prompt = prompt
	}
}

// WithHistory sets the history store.
func WithHistory(h *History) Option {
	return func(r *REPL) {
		r.history = h
	}
}

// New creates a new REPL instance running commands through exec.
func New(exec ExecFunc, opts ...Option) *REPL {
	r := &REPL{
		input:     os.Stdin,
		output:    os.Stdout,
		prompt:    "sidermem> ",
		completer: NewCompleter(),
		history:   NewHistory(""),
		exec:      exec,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run starts the REPL loop. It returns on exit, quit, EOF or ctx
// cancellation, saving the history on the way out.
func (r *REPL) Run(ctx context.Context) error {
	if err := r.history.Load(); err != nil {
		fmt.Fprintf(r.output, "warning: history not loaded: %v\n", err)
	}
	defer func() {
		if err := r.history.Save(); err != nil {
			fmt.Fprintf(r.output, "warning: history not saved: %v\n", err)
		}
	}()

	scanner := bufio.NewScanner(r.input)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for {
		if ctx.Err() != nil {
			return nil
		}

		fmt.Fprint(r.output, r.prompt)
		if !scanner.Scan() {
			fmt.Fprintln(r.output)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		args, err := SplitArgs(line)
		if err != nil {
			fmt.Fprintf(r.output, "(error) %v\n", err)
			continue
		}
		r.history.Add(line)

		done, err := r.dispatch(ctx, args)
		if err != nil {
			fmt.Fprintf(r.output, "(error) %v\n", err)
		}
		if done {
			return nil
		}
	}
}

// dispatch handles built-ins and forwards everything else.
func (r *REPL) dispatch(ctx context.Context, args []string) (bool, error) {
	switch strings.ToLower(args[0]) {
	case "exit", "quit":
		return true, nil
	case "help":
		prefix := ""
		if len(args) > 1 {
			prefix = strings.Join(args[1:], " ")
		}
		r.help(prefix)
		return false, nil
	case "history":
		for i := r.history.Len() - 1; i >= 0; i-- {
			fmt.Fprintf(r.output, "%5d  %s\n", r.history.Len()-i, r.history.Get(i))
		}
		return false, nil
	}

	if r.exec == nil {
		return false, errors.New("not connected")
	}
	return false, r.exec(ctx, args)
}

func (r *REPL) help(prefix string) {
	matches := r.completer.Complete(prefix)
	if len(matches) == 0 {
		fmt.Fprintf(r.output, "no commands match %q\n", prefix)
		return
	}
	for _, m := range matches {
		fmt.Fprintln(r.output, m)
	}
}

// SplitArgs splits a command line into arguments. Double quoted
// arguments support \n, \r, \t, \b, \a, \\, \" and \xHH escapes; single
// quoted arguments support only \'. A closing quote must be followed by
// a space or the end of the line.
func SplitArgs(line string) ([]string, error) {
	var args []string
	i := 0
	for {
		for i < len(line) && isSpace(line[i]) {
			i++
		}
		if i >= len(line) {
			return args, nil
		}

		var (
			cur    strings.Builder
			inDQ   bool
			inSQ   bool
			closed bool
		)
		for !closed {
			if i >= len(line) {
				if inDQ || inSQ {
					return nil, errors.New("unbalanced quotes in request")
				}
				break
			}
			c := line[i]
			switch {
			case inDQ:
				switch {
				case c == '\\' && i+3 < len(line) && line[i+1] == 'x' && isHex(line[i+2]) && isHex(line[i+3]):
					cur.WriteByte(hexVal(line[i+2])<<4 | hexVal(line[i+3]))
					i += 3
				case c == '\\' && i+1 < len(line):
					i++
					cur.WriteByte(unescape(line[i]))
				case c == '"':
					if i+1 < len(line) && !isSpace(line[i+1]) {
						return nil, errors.New("closing quote must be followed by a space")
					}
					closed = true
				default:
					cur.WriteByte(c)
				}
			case inSQ:
				switch {
				case c == '\\' && i+1 < len(line) && line[i+1] == '\'':
					i++
					cur.WriteByte('\'')
				case c == '\'':
					if i+1 < len(line) && !isSpace(line[i+1]) {
						return nil, errors.New("closing quote must be followed by a space")
					}
					closed = true
				default:
					cur.WriteByte(c)
				}
			default:
				switch {
				case isSpace(c):
					closed = true
				case c == '"':
					inDQ = true
				case c == '\'':
					inSQ = true
				default:
					cur.WriteByte(c)
				}
			}
			i++
		}
		args = append(args, cur.String())
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexVal(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case 'b':
		return '\b'
	case 'a':
		return '\a'
	default:
		return c
	}
}
