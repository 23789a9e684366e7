package utils

import (
	"io"
	"log"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CustomLogger is a logger type that embeds zap.Logger to provide logging functionalities with additional features.
type CustomLogger struct {
	zap.Logger // Embedding Logger (composition)
}

// defaultLogger is a pre-configured development logger using the zap library for structured logging.
var defaultLogger, _ = zap.NewDevelopment()

// Logger shared logger for the whole program.
// It is a pointer so that packages may alias it at init time and still see InitLogger changes.
var Logger = &CustomLogger{*defaultLogger}

const (
	// LogTrace we need a more detailed log level to make DEBUG logs not so verbose.
	// DEBUG logs work on the level of whole operations, and TRACE logs work on the row and entry level.
	LogTrace zapcore.Level = -3
)

// Trace logs a message at trace level with optional structured fields.
func (l *CustomLogger) Trace(msg string, fields ...zap.Field) {
	l.Log(LogTrace, msg, fields...)
}

// init Clean the logger at the end
func init() {
	setupShutdownHook()
}

// setupShutdownHook ensures that the logger's buffer is flushed and resources are cleaned up
// before the application exits.
func setupShutdownHook() {
	defer func(logger *CustomLogger) {
		err := logger.Sync()
		if err != nil {
			// instead of fatal, we just log the error and continue
			log.Println("Expected error in unit tests while syncing the logger: ", err)
		}
	}(Logger) // Flushes buffer, if any
}

// InitLogger initializes the global logger with given options for JSON formatting, development mode, and verbosity.
func InitLogger(json bool, dev bool, verbose bool, trace bool) {
	if json {
		if trace {
			config := zap.Config{
				Level:       zap.NewAtomicLevelAt(LogTrace),
				Development: false,
				Sampling: &zap.SamplingConfig{
					Initial:    100,
					Thereafter: 100,
				},
				Encoding: "json",
				EncoderConfig: zapcore.EncoderConfig{
					TimeKey:        "ts",
					LevelKey:       "level",
					NameKey:        "logger",
					CallerKey:      "caller",
					FunctionKey:    zapcore.OmitKey,
					MessageKey:     "msg",
					StacktraceKey:  "stacktrace",
					LineEnding:     zapcore.DefaultLineEnding,
					EncodeLevel:    TraceLevelEncoder,
					EncodeTime:     zapcore.EpochTimeEncoder,
					EncodeDuration: zapcore.SecondsDurationEncoder,
					EncodeCaller:   zapcore.ShortCallerEncoder,
				},
				OutputPaths:      []string{"stderr"},
				ErrorOutputPaths: []string{"stderr"},
			}
			defaultLogger, _ = config.Build()
		} else if verbose {
			defaultLogger, _ = zap.NewProduction(zap.IncreaseLevel(zap.DebugLevel))
		} else {
			defaultLogger, _ = zap.NewProduction()
		}
	} else if dev {
		if trace {
			config := zap.NewDevelopmentConfig()
			config.Level = zap.NewAtomicLevelAt(LogTrace)
			config.EncoderConfig.EncodeLevel = TraceLevelEncoder
			config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
			defaultLogger, _ = config.Build()
		} else if verbose {
			defaultLogger, _ = zap.NewDevelopment()
		} else {
			defaultLogger, _ = zap.NewDevelopment(zap.IncreaseLevel(zap.InfoLevel))
		}
	} else {
		// Disable timestamps by setting log flags to 0.
		// We use this logger for console error output.
		log.SetFlags(0)

		// constructs console-friendly output, not meant for development
		level := zap.NewAtomicLevelAt(zap.InfoLevel)
		if trace {
			level = zap.NewAtomicLevelAt(LogTrace)
		} else if verbose {
			level = zap.NewAtomicLevelAt(zap.DebugLevel)
		}

		// the console output goes to stderr so that command output on stdout can be piped
		core := zapcore.NewCore(consoleEncoder(), zapcore.AddSync(os.Stderr), level)
		defaultLogger = zap.New(core, zap.WithCaller(false), zap.AddStacktrace(zapcore.ErrorLevel))
	}
	Logger.Logger = *defaultLogger
	setupShutdownHook()
}

// TeeLogger returns a copy of the shared logger that additionally writes console-formatted
// entries at or above the given level into w.
func TeeLogger(w io.Writer, level zapcore.Level) *CustomLogger {
	extra := zapcore.NewCore(consoleEncoder(), zapcore.AddSync(w), level)
	tee := Logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, extra)
	}))
	return &CustomLogger{*tee}
}

func consoleEncoder() zapcore.Encoder {
	return zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:     "message",                     // Set the key for the log message
		LevelKey:       "level",                       // Leave blank to omit the log level
		TimeKey:        "",                            // Leave blank to omit the timestamp
		CallerKey:      "caller",                      // Key for caller information (optional)
		EncodeLevel:    IconLevelEncoder,              // instead of zapcore.CapitalLevelEncoder
		EncodeCaller:   zapcore.ShortCallerEncoder,    // Optional: Include short caller info
		EncodeDuration: zapcore.StringDurationEncoder, // Format for durations
	})
}

// IconLevelEncoder serializes a Level to an icon - only for more important levels.
func IconLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch l {
	case zapcore.ErrorLevel, zapcore.FatalLevel:
		enc.AppendString("❌")
	case zapcore.WarnLevel:
		enc.AppendString("⚠️")
	case zapcore.InfoLevel:
		enc.AppendString("ℹ️")
	case LogTrace:
		enc.AppendString("TRACE")
	}
}

// TraceLevelEncoder adds TRACE level serialization, otherwise it prints LEVEL(-3)
func TraceLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if l == LogTrace {
		enc.AppendString("TRACE")
	} else {
		enc.AppendString(l.CapitalString())
	}
}
