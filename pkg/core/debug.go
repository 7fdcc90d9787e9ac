package core

// DebugMode controls whether phase errors capture a stack trace when a
// callback or render returns an error. Panics always capture one.
var DebugMode = false

// SetDebugMode enables or disables debug mode for the engine.
func SetDebugMode(debug bool) {
	DebugMode = debug
}
