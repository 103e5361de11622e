package clog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// clogHandler 封装 slog.Handler，提供动态级别和 Flush 能力
type clogHandler struct {
	slog.Handler
	levelVar *slog.LevelVar
	out      io.Writer
}

func newHandler(config *Config, opts *options) (*clogHandler, error) {
	w, err := resolveWriter(config, opts)
	if err != nil {
		return nil, err
	}

	level, _ := ParseLevel(config.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level.slogLevel())

	hopts := &slog.HandlerOptions{
		AddSource:   config.AddSource,
		Level:       levelVar,
		ReplaceAttr: newReplaceAttr(config),
	}

	var handler slog.Handler
	if strings.ToLower(config.Format) == "json" {
		handler = slog.NewJSONHandler(w, hopts)
	} else {
		handler = slog.NewTextHandler(w, hopts)
	}
	return &clogHandler{Handler: handler, levelVar: levelVar, out: w}, nil
}

func (h *clogHandler) flush() {
	if s, ok := h.out.(interface{ Sync() error }); ok {
		_ = s.Sync()
	}
}

func resolveWriter(config *Config, opts *options) (io.Writer, error) {
	if opts.writer != nil {
		return opts.writer, nil
	}
	switch strings.ToLower(config.Output) {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		return os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	}
}

// newReplaceAttr 统一时间格式、级别大小写，并把 source 改写为 caller=file:line
func newReplaceAttr(config *Config) func([]string, slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) > 0 {
			return a
		}
		switch a.Key {
		case slog.TimeKey:
			return slog.String(slog.TimeKey, a.Value.Time().Format(timeFormat))
		case slog.LevelKey:
			lvl, _ := a.Value.Any().(slog.Level)
			if lvl > slog.LevelError {
				return slog.String(slog.LevelKey, "FATAL")
			}
			return slog.String(slog.LevelKey, strings.ToUpper(lvl.String()))
		case slog.SourceKey:
			src, ok := a.Value.Any().(*slog.Source)
			if !ok || src == nil {
				return a
			}
			file := src.File
			if config.SourceRoot != "" {
				if rel, err := filepath.Rel(config.SourceRoot, file); err == nil {
					file = rel
				}
			} else {
				file = filepath.Base(file)
			}
			return slog.String("caller", file+":"+strconv.Itoa(src.Line))
		}
		return a
	}
}
