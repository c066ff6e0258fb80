package main

import "github.com/audiolibrelab/voicejournal/cmd"

func main() {
	cmd.Execute()
}
