// Package logging provides category-scoped structured loggers shared by
// every package in the router.
package logging

import (
	"log/slog"
	"os"
	"sync"
)

type Category string

const (
	META        Category = "meta" // For logs about logging
	ROUTER      Category = "router"
	STATE       Category = "state"
	PERSISTENCE Category = "persistence"
	FADER       Category = "fader"
	PAGE        Category = "page"
	FEEDBACK    Category = "feedback"
	INDICATOR   Category = "indicator"
	MIDI_IN     Category = "midi_in"
	MIDI_OUT    Category = "midi_out"
	DRIVERS     Category = "drivers"
	APP         Category = "app" // For application-specific logs (i.e. business logic)
)

// Internal state for loggers per category
var (
	mu               = new(sync.RWMutex)
	loggers          = map[Category]*slog.Logger{}
	categoryLvls     = map[Category]*slog.LevelVar{}
	defaultLogLevels = map[Category]slog.Level{
		META:        slog.LevelInfo,
		ROUTER:      slog.LevelInfo,
		STATE:       slog.LevelInfo,
		PERSISTENCE: slog.LevelInfo,
		FADER:       slog.LevelInfo,
		PAGE:        slog.LevelInfo,
		FEEDBACK:    slog.LevelInfo,
		INDICATOR:   slog.LevelInfo,
		MIDI_IN:     slog.LevelWarn,
		MIDI_OUT:    slog.LevelWarn,
		DRIVERS:     slog.LevelInfo,
		APP:         slog.LevelInfo,
	}
)

// Get returns a slog.Logger that always has the "category" attribute set.
// Each category gets its own logger instance.
func Get(category Category) *slog.Logger {
	mu.RLock()
	l, ok := loggers[category]
	mu.RUnlock()
	if ok {
		return l
	}
	mu.Lock()
	defer mu.Unlock()
	// Double-check after locking
	if l, ok := loggers[category]; ok {
		return l
	}
	lvlVar, ok := categoryLvls[category]
	if !ok {
		lvlVar = new(slog.LevelVar)
		lvlVar.Set(defaultLogLevels[category])
		categoryLvls[category] = lvlVar
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvlVar,
	})
	catLogger := slog.New(handler).With("category", category)
	loggers[category] = catLogger
	return catLogger
}

// SetCategoryLevel overrides the level for a single category.
func SetCategoryLevel(category Category, level slog.Level) {
	Get(category) // ensure the category's LevelVar exists
	mu.Lock()
	defer mu.Unlock()
	categoryLvls[category].Set(level)
}

// SetGlobalLevel applies level to every known category, used by --log-level.
func SetGlobalLevel(level slog.Level) {
	mu.RLock()
	cats := make([]Category, 0, len(defaultLogLevels))
	for c := range defaultLogLevels {
		cats = append(cats, c)
	}
	mu.RUnlock()
	for _, c := range cats {
		SetCategoryLevel(c, level)
	}
}
