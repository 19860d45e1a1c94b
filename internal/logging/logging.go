package logging

import (
	"fmt"
	"log"
	"os"
	"sync/atomic"

	"github.com/fatih/color"
)

// Log levels
const (
	None    = 0
	Error   = 1
	Warning = 2
	Info    = 3
	Debug   = 4
)

var currentLevel atomic.Int32

// Labels are padded to the same width so messages line up.
var labels = map[int]string{
	Error:   "[ERROR]",
	Warning: "[WARN] ",
	Info:    "[INFO] ",
	Debug:   "[DEBUG]",
}

var colors = map[int]*color.Color{
	Error:   color.New(color.FgRed, color.Bold),
	Warning: color.New(color.FgYellow),
	Info:    color.New(color.FgCyan),
	Debug:   color.New(color.Faint),
}

func init() {
	log.SetFlags(0)
	log.SetOutput(os.Stderr)
	currentLevel.Store(Info)
}

// SetLevel sets the global logging level.
func SetLevel(level int) {
	currentLevel.Store(int32(level))
	Logf(Debug, "Log level set to %d", level)
}

// GetLevel returns the current logging level.
func GetLevel() int {
	return int(currentLevel.Load())
}

// LevelFor maps the -v/-q command line switches to a level.
// The two switches are mutually exclusive; quiet wins if both are somehow set.
func LevelFor(verbose, quiet bool) int {
	switch {
	case quiet:
		return None
	case verbose:
		return Debug
	default:
		return Info
	}
}

// Enabled reports whether messages at level would be written.
func Enabled(level int) bool {
	return int32(level) <= currentLevel.Load()
}

// Logf logs a formatted message if the given level is high enough.
func Logf(level int, format string, v ...interface{}) {
	if level == None || !Enabled(level) {
		return
	}
	prefix := labels[level]
	if c, ok := colors[level]; ok {
		prefix = c.Sprint(prefix)
	}
	// Call depth 2 so Lshortfile (if ever enabled) reports the caller.
	log.Output(2, prefix+" "+fmt.Sprintf(format, v...))
}
