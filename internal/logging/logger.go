// Package logging provides categorized logging for marknav on top of zap.
// Each subsystem logs under its own named category so runs can be filtered
// per concern (document, cursor, agent, api, store).
package logging

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies a logging subsystem.
type Category string

const (
	CategoryDocument Category = "document" // document model, reindexing, edits
	CategoryCursor   Category = "cursor"   // portion streams and cursor registry
	CategoryAgent    Category = "agent"    // orchestrator step loop
	CategoryAPI      Category = "api"      // collaborator round-trips
	CategoryStore    Category = "store"    // run trace persistence
	CategoryConfig   Category = "config"   // configuration loading
	CategoryWatch    Category = "watch"    // file watcher
)

var (
	mu      sync.RWMutex
	root    = zap.NewNop()
	sugared = make(map[Category]*zap.SugaredLogger)
)

// Initialize builds the process-wide logger. With debug=true the level drops
// to Debug and output switches to the development encoder.
func Initialize(debug bool) error {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	SetLogger(logger)
	return nil
}

// SetLogger replaces the root logger. Tests use this with zaptest observers;
// the default is a nop logger so library use stays silent until configured.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	root = l
	sugared = make(map[Category]*zap.SugaredLogger)
}

// Get returns the sugared logger for a category.
func Get(c Category) *zap.SugaredLogger {
	mu.RLock()
	if s, ok := sugared[c]; ok {
		mu.RUnlock()
		return s
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if s, ok := sugared[c]; ok {
		return s
	}
	s := root.Named(string(c)).Sugar()
	sugared[c] = s
	return s
}

// Sync flushes buffered log entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}

// Document logs at info level under the document category.
func Document(format string, args ...interface{}) { Get(CategoryDocument).Infof(format, args...) }

// DocumentDebug logs at debug level under the document category.
func DocumentDebug(format string, args ...interface{}) {
	Get(CategoryDocument).Debugf(format, args...)
}

// Cursor logs at info level under the cursor category.
func Cursor(format string, args ...interface{}) { Get(CategoryCursor).Infof(format, args...) }

// CursorDebug logs at debug level under the cursor category.
func CursorDebug(format string, args ...interface{}) { Get(CategoryCursor).Debugf(format, args...) }

// Agent logs at info level under the agent category.
func Agent(format string, args ...interface{}) { Get(CategoryAgent).Infof(format, args...) }

// AgentDebug logs at debug level under the agent category.
func AgentDebug(format string, args ...interface{}) { Get(CategoryAgent).Debugf(format, args...) }

// API logs at info level under the api category.
func API(format string, args ...interface{}) { Get(CategoryAPI).Infof(format, args...) }

// APIDebug logs at debug level under the api category.
func APIDebug(format string, args ...interface{}) { Get(CategoryAPI).Debugf(format, args...) }

// Store logs at info level under the store category.
func Store(format string, args ...interface{}) { Get(CategoryStore).Infof(format, args...) }

// StoreDebug logs at debug level under the store category.
func StoreDebug(format string, args ...interface{}) { Get(CategoryStore).Debugf(format, args...) }

// Watch logs at info level under the watch category.
func Watch(format string, args ...interface{}) { Get(CategoryWatch).Infof(format, args...) }

// WatchDebug logs at debug level under the watch category.
func WatchDebug(format string, args ...interface{}) { Get(CategoryWatch).Debugf(format, args...) }

// Truncate caps a string for log output. Collaborator responses go through
// here before logging so a misbehaving model cannot flood the logs.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "...[truncated]"
}

// Timer measures the duration of an operation and logs it on Stop.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation in the given category.
func StartTimer(c Category, op string) *Timer {
	return &Timer{category: c, op: op, start: time.Now()}
}

// Stop logs the elapsed time at debug level.
func (t *Timer) Stop() {
	Get(t.category).Debugf("%s took %s", t.op, time.Since(t.start))
}
