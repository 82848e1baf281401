// Package config loads minipy configuration files. TOML and YAML are both
// accepted and select the same settings.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rhino1998/minipy/pkg/interpreter"
	"gopkg.in/yaml.v3"
)

const DefaultPrompt = "> "

var ErrUnknownFormat = errors.New("unknown config format")

type File struct {
	Interpreter interpreter.Config `toml:"interpreter" yaml:"interpreter"`
	REPL        REPL               `toml:"repl" yaml:"repl"`
}

type REPL struct {
	Prompt string `toml:"prompt" yaml:"prompt"`
	// Color highlights errors with ANSI escapes when writing to a terminal.
	Color bool `toml:"color" yaml:"color"`
}

func Default() *File {
	return &File{
		REPL: REPL{
			Prompt: DefaultPrompt,
		},
	}
}

// Load reads a config file, choosing the decoder by extension. Unknown keys
// are rejected.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		return decodeTOML(path, data)
	case ".yaml", ".yml":
		return decodeYAML(path, data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}
}

func decodeTOML(path string, data []byte) (*File, error) {
	f := Default()

	md, err := toml.Decode(string(data), f)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parse error in %s: unknown key %q", path, undecoded[0].String())
	}

	return f, nil
}

func decodeYAML(path string, data []byte) (*File, error) {
	f := Default()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	err := decoder.Decode(f)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	return f, nil
}
