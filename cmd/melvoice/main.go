// Command melvoice tells real voices from AI-generated ones by classifying
// the mel spectrogram of an uploaded clip.
//
// Usage:
//
//	melvoice [--config melvoice.yaml] <command> [args]
//
// Commands:
//
//	serve     - Run the web page and JSON API
//	classify  - Classify audio files from the command line
//	version   - Print version information
//
// Configuration:
//
//	Settings come from the optional YAML file given with --config and
//	the MELVOICE_ADDR, MELVOICE_MODEL_PATH, MELVOICE_ONNXRUNTIME_LIB and
//	MELVOICE_LOG_LEVEL environment variables.
package main

import (
	"fmt"
	"os"

	"github.com/neurlang/melvoice/cmd/melvoice/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
