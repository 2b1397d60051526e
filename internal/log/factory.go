// Package log builds the structured loggers used by the CLI.
package log

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	levelDebugStringConstant  = "debug"
	levelInfoStringConstant   = "info"
	levelWarnStringConstant   = "warn"
	levelErrorStringConstant  = "error"
	formatStructuredConstant  = "structured"
	formatConsoleConstant     = "console"
	jsonEncodingConstant      = "json"
	consoleEncodingConstant   = "console"
	unsupportedLevelTemplateConstant  = "unsupported log level: %s"
	unsupportedFormatTemplateConstant = "unsupported log format: %s"
)

// Level enumerates supported logging granularities.
type Level string

// Supported levels.
const (
	LevelDebug Level = Level(levelDebugStringConstant)
	LevelInfo  Level = Level(levelInfoStringConstant)
	LevelWarn  Level = Level(levelWarnStringConstant)
	LevelError Level = Level(levelErrorStringConstant)
)

// Format enumerates supported logger output encodings.
type Format string

// Supported formats.
const (
	FormatStructured Format = Format(formatStructuredConstant)
	FormatConsole    Format = Format(formatConsoleConstant)
)

// Factory builds zap.Logger instances with consistent configuration.
type Factory struct{}

var levelMapping = map[Level]zapcore.Level{
	LevelDebug: zapcore.DebugLevel,
	LevelInfo:  zapcore.InfoLevel,
	LevelWarn:  zapcore.WarnLevel,
	LevelError: zapcore.ErrorLevel,
}

var formatEncodingMapping = map[Format]string{
	FormatStructured: jsonEncodingConstant,
	FormatConsole:    consoleEncodingConstant,
}

// NewFactory constructs a new logger factory.
func NewFactory() *Factory {
	return &Factory{}
}

// CreateLogger produces a zap.Logger honoring the requested level and format.
func (factory *Factory) CreateLogger(requestedLevel Level, requestedFormat Format) (*zap.Logger, error) {
	zapLevel, levelExists := levelMapping[requestedLevel]
	if !levelExists {
		return nil, fmt.Errorf(unsupportedLevelTemplateConstant, requestedLevel)
	}

	encoding, formatExists := formatEncodingMapping[requestedFormat]
	if !formatExists {
		return nil, fmt.Errorf(unsupportedFormatTemplateConstant, requestedFormat)
	}

	configuration := zap.NewProductionConfig()
	configuration.Level = zap.NewAtomicLevelAt(zapLevel)
	configuration.Encoding = encoding

	logger, buildError := configuration.Build()
	if buildError != nil {
		return nil, buildError
	}

	return logger, nil
}
