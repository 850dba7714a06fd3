// alan-console: a terminal device for the Alan assistant.
//
// It connects to the device endpoint and stands in for a speaker with a
// microphone and a music player: typed lines are heard phrases, speak
// commands are printed, and player commands are acknowledged with state
// reports.
//
// Usage:
//
//	alan-console [--url ws://localhost:8080] [--id console]
//
// Lines starting with '/' are console commands: /end finishes the current
// track, /quit exits.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
