package repl_test

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/rhino1998/minipy/pkg/interpreter"
	"github.com/rhino1998/minipy/pkg/repl"
	"github.com/stretchr/testify/require"
)

func newREPL(t *testing.T, config repl.Config) *repl.REPL {
	t.Helper()

	logger := slogt.New(t)

	session, err := interpreter.New(logger, interpreter.Config{})
	require.NoError(t, err)

	r := repl.New(logger, session, config)
	t.Cleanup(func() { _ = r.Session().Close() })

	return r
}

func TestREPL(t *testing.T) {
	ctx := context.Background()
	t.Parallel()

	dir := os.DirFS("./testdata/")
	testFiles, err := fs.Glob(dir, "*.txt")
	if err != nil {
		t.Fatal(err)
	}

	for _, testFile := range testFiles {
		name := strings.Split(testFile, ".")[0]
		t.Run(name, func(t *testing.T) {
			r := require.New(t)

			testData, err := fs.ReadFile(dir, testFile)
			r.NoError(err)

			parts := bytes.SplitN(testData, []byte("\n---\n"), 2)
			r.Len(parts, 2)

			source := bytes.TrimSpace(parts[0])
			expected := strings.TrimSpace(string(parts[1]))

			var output bytes.Buffer

			loop := newREPL(t, repl.Config{})
			err = loop.Run(ctx, bytes.NewReader(source), &output)
			r.NoError(err)

			result := strings.TrimSpace(output.String())
			r.Equal(expected, result)
		})
	}
}

func TestREPL_Prompt(t *testing.T) {
	r := require.New(t)

	loop := newREPL(t, repl.Config{Prompt: ">>> ", Interactive: true})

	var out bytes.Buffer
	r.NoError(loop.Run(context.Background(), strings.NewReader("1\n"), &out))
	r.Equal(">>> 1.000000\n>>> \n", out.String())
}

func TestREPL_StopOnError(t *testing.T) {
	r := require.New(t)

	loop := newREPL(t, repl.Config{StopOnError: true})

	var out bytes.Buffer
	err := loop.Run(context.Background(), strings.NewReader("1\nx\n2\n"), &out)
	r.ErrorIs(err, repl.ErrStatementFailed)
	r.Contains(err.Error(), "line 2")
	r.NotContains(out.String(), "2.000000")
}

func TestREPL_Color(t *testing.T) {
	r := require.New(t)

	loop := newREPL(t, repl.Config{Color: true})

	var out bytes.Buffer
	r.NoError(loop.Run(context.Background(), strings.NewReader("x\n"), &out))
	r.Contains(out.String(), "\x1b[31;1mError: \x1b[31;22mundefined variable")
}

func TestREPL_Canceled(t *testing.T) {
	loop := newREPL(t, repl.Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := loop.Run(ctx, strings.NewReader("1\n"), &bytes.Buffer{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestREPL_SaveLoad(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "session.img")

	first := newREPL(t, repl.Config{})

	var out bytes.Buffer
	script := fmt.Sprintf("l = [1, {'k': 'v'}]\n:save %s\n", path)
	r.NoError(first.Run(ctx, strings.NewReader(script), &out))
	r.Empty(out.String())

	second := newREPL(t, repl.Config{})
	original := second.Session()

	script = fmt.Sprintf(":load %s\nl[1]['k']\n:vars\n", path)
	r.NoError(second.Run(ctx, strings.NewReader(script), &out))
	r.Equal("'v'\nl = [1.000000, {'k': 'v'}]\n", out.String())

	r.NotSame(original, second.Session())
	r.Equal(first.Session().ID, second.Session().ID)
}

func TestREPL_SaveLeavesNoPartialFile(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	dir := t.TempDir()
	target := filepath.Join(dir, "taken")
	r.NoError(os.Mkdir(target, 0o755))

	loop := newREPL(t, repl.Config{})

	var out bytes.Buffer
	script := fmt.Sprintf("x = 1\n:save %s\n:save %s\n", target, filepath.Join(dir, "missing", "x.img"))
	r.NoError(loop.Run(ctx, strings.NewReader(script), &out))
	r.Equal(2, strings.Count(out.String(), "Error: "))

	entries, err := os.ReadDir(dir)
	r.NoError(err)
	r.Len(entries, 1)
	r.Equal("taken", entries[0].Name())
	r.True(entries[0].IsDir())

	saved := filepath.Join(dir, "session.img")
	r.NoError(loop.Run(ctx, strings.NewReader(":save "+saved+"\n:save "+saved+"\n"), &out))

	entries, err = os.ReadDir(dir)
	r.NoError(err)
	r.Len(entries, 2)
}

func TestREPL_LoadMissing(t *testing.T) {
	r := require.New(t)

	loop := newREPL(t, repl.Config{})
	original := loop.Session()

	var out bytes.Buffer
	missing := filepath.Join(t.TempDir(), "missing.img")
	r.NoError(loop.Run(context.Background(), strings.NewReader(":load "+missing+"\n:load\n"), &out))

	r.Same(original, loop.Session())
	r.Contains(out.String(), "Error: open ")
	r.Contains(out.String(), "Error: usage: :load <file>")
}
