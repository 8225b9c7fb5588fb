package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cuejson "cuelang.org/go/encoding/json"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaCUE string

// Config is the complete causeway configuration.
type Config struct {
	Log    LogConfig    `json:"log"`
	Graph  GraphConfig  `json:"graph"`
	Server ServerConfig `json:"server"`
	Store  StoreConfig  `json:"store"`
	Follow FollowConfig `json:"follow"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

type GraphConfig struct {
	GroupThreshold int `json:"group_threshold"`
}

type ServerConfig struct {
	Addr           string   `json:"addr"`
	AllowedOrigins []string `json:"allowed_origins"`
}

type StoreConfig struct {
	// Path is the SQLite database. Empty disables persistence.
	Path string `json:"path"`
}

type FollowConfig struct {
	Debounce string `json:"debounce"`
}

// Error reports an invalid configuration file.
type Error struct {
	Path    string
	Message string
	Pos     token.Pos
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Default returns the schema defaults.
func Default() Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded schema: %v", err))
	}
	return cfg
}

// Load reads and validates a configuration file. The format follows the
// extension: .cue, .yaml, .yml or .json. An empty path returns the
// defaults.
func Load(path string) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	data := ctx.CompileString("{}")
	if path != "" {
		var err error
		data, err = compileFile(ctx, path)
		if err != nil {
			return Config{}, err
		}
	}

	v := def.Unify(data)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, formatCUEError(path, err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return Config{}, formatCUEError(path, err)
	}
	if _, err := time.ParseDuration(cfg.Follow.Debounce); err != nil {
		return Config{}, &Error{Path: path, Message: fmt.Sprintf("follow.debounce: %v", err)}
	}
	return cfg, nil
}

func compileFile(ctx *cue.Context, path string) (cue.Value, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return cue.Value{}, fmt.Errorf("read config: %w", err)
	}

	var v cue.Value
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".cue":
		v = ctx.CompileBytes(src, cue.Filename(path))

	case ".yaml", ".yml":
		f, err := cueyaml.Extract(path, src)
		if err != nil {
			return cue.Value{}, formatCUEError(path, err)
		}
		v = ctx.BuildFile(f)

	case ".json":
		expr, err := cuejson.Extract(path, src)
		if err != nil {
			return cue.Value{}, formatCUEError(path, err)
		}
		v = ctx.BuildExpr(expr)

	default:
		return cue.Value{}, &Error{Path: path, Message: fmt.Sprintf("unsupported config format %q", ext)}
	}

	if err := v.Err(); err != nil {
		return cue.Value{}, formatCUEError(path, err)
	}
	return v, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(path string, err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &Error{Path: path, Message: err.Error()}
	}

	first := errs[0]
	e := &Error{Path: path, Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		e.Pos = positions[0]
	}
	return e
}

// DebounceDuration returns follow.debounce as a duration.
func (c Config) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(c.Follow.Debounce)
	if err != nil {
		return 100 * time.Millisecond
	}
	return d
}

// SlogLevel returns log.level as a slog level.
func (c Config) SlogLevel() slog.Level {
	return ParseLevel(c.Log.Level)
}

// ParseLevel maps a level name to a slog level. Unknown names map to Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
