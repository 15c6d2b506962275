// Package logging provides config-driven categorized logging for azkarctl.
// Console output goes to stderr at the configured level. When debug_mode is
// set in .azkar/config.yaml, every category is also written as JSON to
// .azkar/logs/<date>_azkarctl.log.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot     Category = "boot"     // Startup, config resolution
	CategoryDocument Category = "document" // Document read, lock, write
	CategoryParse    Category = "parse"    // Block location and record parsing
	CategoryPatch    Category = "patch"    // Edit application and post-condition checks
	CategoryPlan     Category = "plan"     // YAML edit plans
	CategoryIcons    Category = "icons"    // Icon batch transform
	CategoryWatch    Category = "watch"    // check --watch
)

// AllCategories lists every category in a stable order.
func AllCategories() []Category {
	return []Category{
		CategoryBoot, CategoryDocument, CategoryParse, CategoryPatch,
		CategoryPlan, CategoryIcons, CategoryWatch,
	}
}

// Config mirrors config.LoggingConfig plus the runtime values the CLI
// resolves, to avoid an import cycle.
type Config struct {
	Level      string          // debug, info, warn, error
	Format     string          // console or json
	DebugMode  bool            // also write JSON to LogsDir
	Categories map[string]bool // missing entries are enabled
	LogsDir    string
	RunID      string
	Output     io.Writer // console sink, stderr when nil
}

// Logger is a category-scoped sugared zap logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu      sync.RWMutex
	cfg     Config
	root    = zap.NewNop()
	logFile *os.File
	loggers = make(map[Category]*Logger)
)

// Initialize builds the zap cores from c. It may be called again to
// reconfigure; the previous log file is closed.
func Initialize(c Config) error {
	level, err := zapcore.ParseLevel(strings.ToLower(defaultString(c.Level, "info")))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}

	out := c.Output
	if out == nil {
		out = os.Stderr
	}

	var consoleEnc zapcore.Encoder
	switch defaultString(c.Format, "console") {
	case "console":
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.TimeKey = ""
		encCfg.CallerKey = ""
		consoleEnc = zapcore.NewConsoleEncoder(encCfg)
	case "json":
		consoleEnc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	default:
		return fmt.Errorf("invalid log format %q (want console or json)", c.Format)
	}

	cores := []zapcore.Core{zapcore.NewCore(consoleEnc, zapcore.AddSync(out), level)}

	var file *os.File
	if c.DebugMode {
		if c.LogsDir == "" {
			return fmt.Errorf("debug mode needs a logs directory")
		}
		if err := os.MkdirAll(c.LogsDir, 0755); err != nil {
			return fmt.Errorf("failed to create logs directory: %w", err)
		}
		name := fmt.Sprintf("%s_azkarctl.log", time.Now().Format("2006-01-02"))
		file, err = os.OpenFile(filepath.Join(c.LogsDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		fileEnc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		cores = append(cores, zapcore.NewCore(fileEnc, zapcore.AddSync(file), zapcore.DebugLevel))
	}

	logger := zap.New(zapcore.NewTee(cores...))
	if c.RunID != "" {
		logger = logger.With(zap.String("run_id", c.RunID))
	}

	mu.Lock()
	if logFile != nil {
		_ = logFile.Close()
	}
	cfg = c
	root = logger
	logFile = file
	loggers = make(map[Category]*Logger)
	mu.Unlock()

	BootDebug("logging initialized: level=%s format=%s debug_mode=%v", level, defaultString(c.Format, "console"), c.DebugMode)
	return nil
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// IsDebugMode returns whether the JSON log file is active.
func IsDebugMode() bool {
	mu.RLock()
	defer mu.RUnlock()
	return cfg.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()

	if cfg.Categories == nil {
		return true
	}
	enabled, exists := cfg.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category, sugar: zap.NewNop().Sugar()}
	}

	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := &Logger{category: category, sugar: root.Named(string(category)).Sugar()}
	loggers[category] = l
	return l
}

// Zap exposes the underlying structured logger.
func (l *Logger) Zap() *zap.Logger { return l.sugar.Desugar() }

// With returns a child logger carrying extra key/value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

func (l *Logger) Debug(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.sugar.Infof(format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.sugar.Warnf(format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// Sync flushes buffered entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}

// Close flushes and closes the log file and resets to a no-op logger.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	_ = root.Sync()
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	root = zap.NewNop()
	cfg = Config{}
	loggers = make(map[Category]*Logger)
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// These are no-ops if the category is disabled
// =============================================================================

func BootDebug(format string, args ...interface{}) { Get(CategoryBoot).Debug(format, args...) }

func Document(format string, args ...interface{})      { Get(CategoryDocument).Info(format, args...) }
func DocumentDebug(format string, args ...interface{}) { Get(CategoryDocument).Debug(format, args...) }
func DocumentWarn(format string, args ...interface{})  { Get(CategoryDocument).Warn(format, args...) }

func ParseDebug(format string, args ...interface{}) { Get(CategoryParse).Debug(format, args...) }

func Patch(format string, args ...interface{})      { Get(CategoryPatch).Info(format, args...) }
func PatchDebug(format string, args ...interface{}) { Get(CategoryPatch).Debug(format, args...) }
func PatchWarn(format string, args ...interface{})  { Get(CategoryPatch).Warn(format, args...) }
func PatchError(format string, args ...interface{}) { Get(CategoryPatch).Error(format, args...) }

func Plan(format string, args ...interface{})      { Get(CategoryPlan).Info(format, args...) }
func PlanDebug(format string, args ...interface{}) { Get(CategoryPlan).Debug(format, args...) }

func Icons(format string, args ...interface{})      { Get(CategoryIcons).Info(format, args...) }
func IconsDebug(format string, args ...interface{}) { Get(CategoryIcons).Debug(format, args...) }
func IconsWarn(format string, args ...interface{})  { Get(CategoryIcons).Warn(format, args...) }
func IconsError(format string, args ...interface{}) { Get(CategoryIcons).Error(format, args...) }

func Watch(format string, args ...interface{})      { Get(CategoryWatch).Info(format, args...) }
func WatchDebug(format string, args ...interface{}) { Get(CategoryWatch).Debug(format, args...) }
func WatchWarn(format string, args ...interface{})  { Get(CategoryWatch).Warn(format, args...) }

// =============================================================================
// TIMING HELPERS - For performance logging
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
