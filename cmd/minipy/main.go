package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rhino1998/minipy/pkg/config"
	"github.com/rhino1998/minipy/pkg/interpreter"
	"github.com/rhino1998/minipy/pkg/repl"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := &cli.Command{
		Name:  "minipy",
		Usage: "A minimal interpreter for a Python-like expression language",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "load settings from a TOML or YAML file",
			},
			&cli.IntFlag{
				Name:  "pool-size",
				Usage: "capacity of the value pool in bytes",
			},
			&cli.IntFlag{
				Name:  "max-refs",
				Usage: "maximum number of references, 0 for unlimited",
			},
			&cli.IntFlag{
				Name:  "depth",
				Usage: "nesting depth printed for results",
			},
			&cli.StringFlag{
				Name:  "image",
				Usage: "start from a session image written by :save",
			},
			&cli.BoolFlag{
				Name:  "dump",
				Usage: "dump the pool when the session ends",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runREPL(ctx, c)
		},
		Commands: []*cli.Command{
			{
				Name:  "repl",
				Usage: "Start an interactive session",
				Action: func(ctx context.Context, c *cli.Command) error {
					return runREPL(ctx, c)
				},
			},
			{
				Name:  "run",
				Usage: "Execute a file, one statement per line",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "keep-going",
						Usage: "report failing lines and continue",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() != 1 {
						return fmt.Errorf("must provide exactly one source file as argument")
					}

					f, err := os.Open(c.Args().First())
					if err != nil {
						return fmt.Errorf("failed to open file: %w", err)
					}
					defer f.Close()

					return runBatch(ctx, c, f, !c.Bool("keep-going"))
				},
			},
			{
				Name:  "eval",
				Usage: "Execute source given on the command line",
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() == 0 {
						return fmt.Errorf("must provide source to evaluate")
					}

					src := strings.Join(c.Args().Slice(), "\n")

					return runBatch(ctx, c, strings.NewReader(src), true)
				},
			},
		},
	}

	err := cmd.Run(ctx, os.Args)
	if err != nil {
		log.Fatalln(err)
	}
}

func runREPL(ctx context.Context, c *cli.Command) error {
	settings, err := loadSettings(c)
	if err != nil {
		return err
	}

	return execute(ctx, c, settings, os.Stdin, repl.Config{
		Prompt:      settings.REPL.Prompt,
		Interactive: term.IsTerminal(int(os.Stdin.Fd())),
		Color:       settings.REPL.Color && term.IsTerminal(int(os.Stdout.Fd())),
	})
}

func runBatch(ctx context.Context, c *cli.Command, in io.Reader, stopOnError bool) error {
	settings, err := loadSettings(c)
	if err != nil {
		return err
	}

	return execute(ctx, c, settings, in, repl.Config{
		Color:       settings.REPL.Color && term.IsTerminal(int(os.Stdout.Fd())),
		StopOnError: stopOnError,
	})
}

func execute(ctx context.Context, c *cli.Command, settings *config.File, in io.Reader, replConfig repl.Config) error {
	logger := newLogger(c)

	session, err := newSession(logger, c, settings.Interpreter)
	if err != nil {
		return err
	}

	loop := repl.New(logger, session, replConfig)
	defer func() { _ = loop.Session().Close() }()

	err = loop.Run(ctx, in, os.Stdout)

	if c.Bool("dump") {
		dumpErr := loop.Session().Dump(os.Stdout)
		if dumpErr != nil {
			logger.Error("failed to dump pool", "err", dumpErr)
		}
	}

	return err
}

func newLogger(c *cli.Command) *slog.Logger {
	level := slog.LevelInfo
	if c.Bool("debug") {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadSettings reads the config file, if any, and applies flag overrides.
func loadSettings(c *cli.Command) (*config.File, error) {
	settings := config.Default()

	if path := c.String("config"); path != "" {
		var err error
		settings, err = config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if c.IsSet("pool-size") {
		settings.Interpreter.PoolSize = int(c.Int("pool-size"))
	}

	if c.IsSet("max-refs") {
		settings.Interpreter.MaxReferences = int(c.Int("max-refs"))
	}

	if c.IsSet("depth") {
		settings.Interpreter.PrintDepth = int(c.Int("depth"))
	}

	return settings, nil
}

func newSession(logger *slog.Logger, c *cli.Command, interpConfig interpreter.Config) (*interpreter.Session, error) {
	path := c.String("image")
	if path == "" {
		session, err := interpreter.New(logger, interpConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize interpreter: %w", err)
		}

		return session, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	session, err := interpreter.ReadImage(logger, interpConfig, f)
	if err != nil {
		return nil, fmt.Errorf("failed to load image %s: %w", path, err)
	}

	return session, nil
}
