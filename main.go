// The main package for the mapwatch executable.
package main

import (
	"github.com/JakeFAU/map-version-watcher/cmd"
)

func main() {
	cmd.Execute()
}
