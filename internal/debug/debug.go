// Package debug prints protocol traces when $WAYLAND_DEBUG is set to a
// positive number or to "server".
package debug

import (
	"os"
	"strconv"

	"deedles.dev/wlcore/internal/logger"
)

var debug = func(string, ...any) {}

func init() {
	v := os.Getenv("WAYLAND_DEBUG")
	if v == "server" {
		enable()
		return
	}

	debugLevel, err := strconv.ParseInt(v, 10, 0)
	if err != nil {
		return
	}
	if debugLevel > 0 {
		enable()
	}
}

func enable() {
	debug = func(str string, args ...any) {
		logger.Logger.Printf("[wayland] "+str, args...)
	}
}

func Printf(str string, args ...any) {
	debug(str, args...)
}
