package applog

import (
	"arena-runner/build"
	"fmt"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

type Logger = zap.Logger

const (
	asyncSinkBufferSize     = 4096
	asyncSinkShutdownWindow = 500 * time.Millisecond
)

var (
	globalLogger  = zap.New(zapcore.NewNopCore())
	asyncSinks    []*asyncSink
	logFile       *os.File
	acceptingLogs int32 = 1
	shutdownOnce  sync.Once
)

func Info(msg string, fields ...zapcore.Field) {
	log(zapcore.InfoLevel, msg, fields...)
}

func Warn(msg string, fields ...zapcore.Field) {
	log(zapcore.WarnLevel, msg, fields...)
}

func Debug(msg string, fields ...zapcore.Field) {
	log(zapcore.DebugLevel, msg, fields...)
}

func Error(msg string, fields ...zapcore.Field) {
	log(zapcore.ErrorLevel, msg, fields...)
}

func log(level zapcore.Level, msg string, fields ...zapcore.Field) {
	if atomic.LoadInt32(&acceptingLogs) == 0 {
		return
	}

	if ce := globalLogger.WithOptions(zap.AddCallerSkip(2)).Check(level, msg); ce != nil {
		ce.Write(fields...)
	}
}

// Initialize sets up the stdout and file sinks. The log file lands in
// logPath, or in "<workdir>/logs" when logPath is empty.
func Initialize(runName string, rawLogLevel int, logPath string) error {
	if logPath == "" {
		workdir, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current working directory: %w", err)
		}
		logPath = filepath.Join(workdir, "logs")
	}

	if err := os.MkdirAll(logPath, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	logFilename := filepath.Join(
		logPath,
		fmt.Sprintf("arena_%s_%s.log", runName, time.Now().UTC().Format("20060102_150405")),
	)

	var err error
	logFile, err = os.OpenFile(logFilename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file '%s': %w", logFilename, err)
	}

	level := safeGetLogLevelOrDefault(rawLogLevel)
	encoder := zapcore.NewJSONEncoder(getEncoderConfig())

	consoleSink := newAsyncSink(zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level), asyncSinkBufferSize)
	fileSink := newAsyncSink(zapcore.NewCore(encoder.Clone(), zapcore.AddSync(logFile), level), asyncSinkBufferSize)
	asyncSinks = []*asyncSink{consoleSink, fileSink}

	l := zap.New(zapcore.NewTee(consoleSink, fileSink), zap.AddCaller()).With(
		zap.String("run", runName),
	)

	shutdownOnce = sync.Once{}
	atomic.StoreInt32(&acceptingLogs, 1)
	setLogger(l)
	return nil
}

func LogStartupInfo(launchArgs interface{}) {
	buildInfo := build.GetBuildInfo()
	Info("Application started",
		zap.String("buildCommit", buildInfo.CommitOrUnknown()),
		zap.Bool("buildDirty", buildInfo.Dirty),
		zap.String("goVersion", buildInfo.GoVersion),
		zap.Any("launchArgs", launchArgs),
	)
}

// Shutdown stops accepting new entries and drains the async sinks.
func Shutdown() {
	shutdownOnce.Do(func() {
		atomic.StoreInt32(&acceptingLogs, 0)
		_ = globalLogger.Sync()

		var wg sync.WaitGroup
		for _, sink := range asyncSinks {
			wg.Add(1)
			go func(s *asyncSink) {
				defer wg.Done()
				s.Shutdown(asyncSinkShutdownWindow)
			}(sink)
		}
		wg.Wait()

		if logFile != nil {
			_ = logFile.Close()
		}
	})
}

func getEncoderConfig() zapcore.EncoderConfig {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.UTC().Format(time.RFC3339))
	}
	return encoderConfig
}

func safeGetLogLevelOrDefault(rawLevel int) zapcore.Level {
	level := zapcore.Level(rawLevel)
	if level < zapcore.DebugLevel || level > zapcore.FatalLevel {
		return zapcore.InfoLevel
	}
	return level
}

func setLogger(l *Logger) {
	globalLogger = l
	zap.ReplaceGlobals(l)
}
