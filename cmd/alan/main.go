// alan: voice assistant service.
//
// Usage:
//
//	alan serve [--config alan.yaml] [--port 8080]
//	alan config
//	alan version
//
// Devices connect to ws://<host>:<port>/ws/device/<id>; the dashboard is
// served on the same port.
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
