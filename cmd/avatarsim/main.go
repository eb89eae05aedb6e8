// Command avatarsim validates avatar manifests and drives an avatar headlessly through a
// scripted sequence of sentiments.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
