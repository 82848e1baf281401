package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/rhino1998/minipy/pkg/interpreter"
	"github.com/rhino1998/minipy/pkg/parser"
	"github.com/rhino1998/minipy/pkg/printer"
)

const (
	ansiReset   = "\x1b[0;0m"
	ansiRedBold = "\x1b[31;1m"
	ansiRed     = "\x1b[31;22m"
)

const maxLineSize = 1 << 20

// ErrStatementFailed is returned by Run when StopOnError is set and a line
// fails. The failure has already been reported to the output.
var ErrStatementFailed = errors.New("statement failed")

type Config struct {
	Prompt string
	// Interactive prints the prompt before every line.
	Interactive bool
	Color       bool
	StopOnError bool
}

type REPL struct {
	logger  *slog.Logger
	session *interpreter.Session
	config  Config

	out  io.Writer
	line int
}

func New(logger *slog.Logger, session *interpreter.Session, config Config) *REPL {
	return &REPL{
		logger:  logger,
		session: session,
		config:  config,
	}
}

// Session returns the current session, which :load may have replaced.
func (r *REPL) Session() *interpreter.Session {
	return r.session
}

// Run reads statements from in until EOF or :exit, writing results and error
// reports to out. Errors in a statement never end the loop unless
// StopOnError is set.
func (r *REPL) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	r.out = out

	scanner := bufio.NewScanner(in)
	scanner.Buffer(nil, maxLineSize)

	for {
		err := ctx.Err()
		if err != nil {
			return err
		}

		if r.config.Interactive {
			fmt.Fprint(out, r.config.Prompt)
		}

		if !scanner.Scan() {
			break
		}

		r.line++
		line := scanner.Text()

		exit, err := r.handle(ctx, line)
		if err != nil {
			r.report(line, err)

			if r.config.StopOnError {
				return fmt.Errorf("line %d: %w", r.line, ErrStatementFailed)
			}
		}

		if exit {
			return nil
		}
	}

	if r.config.Interactive {
		fmt.Fprintln(out)
	}

	return scanner.Err()
}

func (r *REPL) handle(ctx context.Context, line string) (bool, error) {
	if strings.HasPrefix(strings.TrimSpace(line), ":") {
		return r.command(ctx, strings.Fields(strings.TrimSpace(line)))
	}

	stmt, err := parser.ParseLine(r.line, line)
	if err != nil {
		return false, err
	}

	return false, r.session.EvaluateStatement(r.out, stmt)
}

func (r *REPL) command(ctx context.Context, args []string) (bool, error) {
	switch args[0] {
	case ":exit", ":quit":
		return true, nil
	case ":dump":
		return false, r.session.Dump(r.out)
	case ":vars":
		return false, r.vars()
	case ":gc":
		stats, err := r.session.Collect(ctx)
		if err != nil {
			return false, err
		}

		fmt.Fprintf(r.out, "references: %d, reachable: %d, unreachable: %d, pool: %d/%d bytes\n",
			stats.References, stats.Reachable, stats.Unreachable, stats.PoolUsed, stats.PoolCapacity)

		return false, nil
	case ":save":
		if len(args) != 2 {
			return false, fmt.Errorf("usage: :save <file>")
		}

		return false, r.save(args[1])
	case ":load":
		if len(args) != 2 {
			return false, fmt.Errorf("usage: :load <file>")
		}

		return false, r.load(args[1])
	default:
		return false, fmt.Errorf("unknown command `%s`", args[0])
	}
}

func (r *REPL) vars() error {
	depth := r.session.Config().PrintDepth

	for _, v := range r.session.Globals() {
		text, err := printer.Sprint(r.session.Table(), v.Ref, depth)
		if err != nil {
			return fmt.Errorf("%s: %w", v.Name, err)
		}

		fmt.Fprintf(r.out, "%s = %s\n", v.Name, text)
	}

	return nil
}

// save writes the image to a temporary file next to path and renames it into
// place.
func (r *REPL) save(path string) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}

	tmp := f.Name()
	defer os.Remove(tmp)

	err = r.session.WriteImage(f)
	if err != nil {
		_ = f.Close()
		return err
	}

	err = f.Close()
	if err != nil {
		return err
	}

	return os.Rename(tmp, path)
}

// load replaces the session with the image at path. The current session is
// kept if the image cannot be read.
func (r *REPL) load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	session, err := interpreter.ReadImage(r.logger, r.session.Config(), f)
	if err != nil {
		return err
	}

	err = r.session.Close()
	if err != nil {
		r.logger.Warn("failed to close replaced session", "err", err)
	}

	r.logger.Debug("loaded session image", "path", path, "session", session.ID.String())

	r.session = session

	return nil
}

// report prints the failing line, a caret under the failing column when the
// error carries a position, then the message.
func (r *REPL) report(line string, err error) {
	var b strings.Builder

	b.WriteString(line)
	b.WriteByte('\n')

	prefix := "Error: "
	msg := err.Error()

	var posErr parser.PositionError
	if errors.As(err, &posErr) {
		b.WriteString(strings.Repeat("-", posErr.Column))
		b.WriteString("^\n")

		msg = posErr.Err.Error()

		var synErr parser.SyntaxError
		if errors.As(posErr.Err, &synErr) {
			prefix = "Parse error: "
		}
	}

	if r.config.Color {
		b.WriteString(ansiRedBold + prefix + ansiRed + msg + ansiReset)
	} else {
		b.WriteString(prefix + msg)
	}

	b.WriteByte('\n')

	_, _ = io.WriteString(r.out, b.String())
}
