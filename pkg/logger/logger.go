// Package logger provides leveled, per-component logging for wirechat.
// Components tag every line ("realtime", "store", "composer") so a single
// session log stays greppable.
package logger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

var (
	mu    sync.Mutex
	level = INFO
	out   io.Writer = os.Stderr
)

// SetLevel sets the minimum level that will be emitted.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// SetOutput redirects log output, e.g. to a session log file.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

func logf(l Level, component, msg string, fields map[string]any) {
	mu.Lock()
	defer mu.Unlock()
	if l < level {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] %s: %s",
		time.Now().Format("2006-01-02 15:04:05"), levelNames[l], component, msg)
	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, fields[k])
		}
	}
	fmt.Fprintln(out, b.String())
}

func DebugC(component, msg string) { logf(DEBUG, component, msg, nil) }

func InfoC(component, msg string) { logf(INFO, component, msg, nil) }

func WarnC(component, msg string) { logf(WARN, component, msg, nil) }

func ErrorC(component, msg string) { logf(ERROR, component, msg, nil) }

func DebugCF(component, msg string, fields map[string]any) { logf(DEBUG, component, msg, fields) }

func InfoCF(component, msg string, fields map[string]any) { logf(INFO, component, msg, fields) }

func WarnCF(component, msg string, fields map[string]any) { logf(WARN, component, msg, fields) }

func ErrorCF(component, msg string, fields map[string]any) { logf(ERROR, component, msg, fields) }
