package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"

	"compssr/misc"
)

type LoggerConfig struct {
	Level       string `yaml:"level" validate:"required,oneof=none debug normal"`
	Destination string `yaml:"destination,omitempty" sanitize:"path_clean,assure_dir_exists_for_file" validate:"omitempty,filepath"`
	Mode        string `yaml:"mode,omitempty" validate:"omitempty,oneof=append overwrite"`
}

type LoggingConfig struct {
	FileLogger    LoggerConfig `yaml:"file"`
	ConsoleLogger LoggerConfig `yaml:"console"`
}

// PanicLogName returns name of the file crash output is sent to when file
// logging is on.
func (conf *LoggingConfig) PanicLogName() string {
	return filepath.Join(filepath.Dir(conf.FileLogger.Destination), misc.GetAppName()+"-panic.log")
}

// Prepare builds program logger: console output split between stdout and
// stderr, plus optional file log. When debug report is requested file log is
// always written at debug level and added to the report.
func (conf *LoggingConfig) Prepare(rpt *Report) (*zap.Logger, error) {
	stdout, stderr := consoleCores(conf.ConsoleLogger.Level)

	level, mode := conf.FileLogger.Level, conf.FileLogger.Mode
	if rpt != nil {
		level, mode = "debug", "overwrite"
	}

	file, redirected, err := conf.fileCore(level, mode, rpt)
	if err != nil {
		return nil, err
	}

	log := zap.New(zapcore.NewTee(stderr, stdout, file), zap.AddCaller())
	if redirected != "" {
		log.Warn("Log file was redirected to new location", zap.String("location", redirected))
	}
	return log.Named(misc.GetAppName()), nil
}

func consoleEncoderConfig(stream *os.File) zapcore.EncoderConfig {
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	if EnableColorOutput(stream) {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.TimeKey = zapcore.OmitKey
	}
	return ec
}

// colorAllowed reports whether environment permits colors: NO_COLOR is not
// set and terminal is not "dumb".
func colorAllowed() bool {
	return os.Getenv("NO_COLOR") == "" && os.Getenv("TERM") != "dumb"
}

// consoleCores returns cores for regular (stdout) and error (stderr) output.
func consoleCores(level string) (zapcore.Core, zapcore.Core) {
	var lowest zapcore.Level
	switch level {
	case "debug":
		lowest = zapcore.DebugLevel
	case "normal":
		lowest = zapcore.InfoLevel
	default:
		return zapcore.NewNopCore(), zapcore.NewNopCore()
	}

	stdout := zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderConfig(os.Stdout)), zapcore.Lock(os.Stdout),
		zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lowest <= lvl && lvl < zapcore.ErrorLevel
		}))
	stderr := zapcore.NewCore(shortErrorEncoder{zapcore.NewConsoleEncoder(consoleEncoderConfig(os.Stderr))}, zapcore.Lock(os.Stderr),
		zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lvl >= zapcore.ErrorLevel
		}))
	return stdout, stderr
}

func openLog(name, mode string) (*os.File, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if mode == "append" {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	return os.OpenFile(name, flags, 0644)
}

// fileCore opens file log. When destination cannot be opened a temporary file
// is used and its name returned.
func (conf *LoggingConfig) fileCore(level, mode string, rpt *Report) (zapcore.Core, string, error) {
	var enabled zap.AtomicLevel
	switch level {
	case "debug":
		enabled = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "normal":
		enabled = zap.NewAtomicLevelAt(zap.InfoLevel)
	default:
		return zapcore.NewNopCore(), "", nil
	}

	// crash output goes next to the log, failure here is not fatal
	if ef, err := openLog(conf.PanicLogName(), mode); err == nil {
		debug.SetCrashOutput(ef, debug.CrashOptions{})
		rpt.Store("panic.log", ef.Name())
		ef.Close()
	}

	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	if f, err := openLog(conf.FileLogger.Destination, mode); err == nil {
		rpt.Store("final.log", f.Name())
		return zapcore.NewCore(enc, zapcore.Lock(f), enabled), "", nil
	}
	f, err := os.CreateTemp("", misc.GetAppName()+".*.log")
	if err != nil {
		return nil, "", fmt.Errorf("unable to access file log destination (%s): %w", conf.FileLogger.Destination, err)
	}
	rpt.Store("final.log", f.Name())
	return zapcore.NewCore(enc, zapcore.Lock(f), enabled), f.Name(), nil
}

// shortErrorEncoder drops verbose error details (stack traces of wrapped
// errors) from console output.
type shortErrorEncoder struct {
	zapcore.Encoder
}

func (c shortErrorEncoder) Clone() zapcore.Encoder {
	return shortErrorEncoder{c.Encoder.Clone()}
}

func (c shortErrorEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	short := make([]zapcore.Field, 0, len(fields))
	for _, f := range fields {
		if f.Type == zapcore.ErrorType {
			if e, ok := f.Interface.(error); ok {
				f.Interface = errors.New(e.Error())
			}
		}
		short = append(short, f)
	}
	return c.Encoder.EncodeEntry(ent, short)
}
