package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Per-message logging in the client loop and the transport reader is too noisy
// for a plain log level: a run can issue tens of thousands of requests. Tags
// gate it instead. Known tags: "client" (request/response handling), "net"
// (frame encode/decode).

var (
	mu   sync.RWMutex
	tags map[string]bool
)

func init() {
	tags = make(map[string]bool)
	if v := os.Getenv("LOG_TAGS"); v != "" {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags[t] = true
			}
		}
	}
}

// Enabled reports whether the given tag was enabled via LOG_TAGS.
func Enabled(tag string) bool {
	mu.RLock()
	defer mu.RUnlock()
	return tags[tag]
}

// Enable turns on a tag at runtime.
func Enable(tag string) {
	if tag == "" {
		return
	}
	mu.Lock()
	tags[tag] = true
	mu.Unlock()
}

// VDebug logs a Debug message only when the tag is enabled.
func VDebug(tag, msg string, args ...any) {
	if !Enabled(tag) {
		return
	}
	slog.Debug(msg, args...)
}

// VInfo logs an Info message only when the tag is enabled.
func VInfo(tag, msg string, args ...any) {
	if !Enabled(tag) {
		return
	}
	slog.Info(msg, args...)
}
