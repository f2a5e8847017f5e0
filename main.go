// main.go - Command-line entry point
package main

import "github.com/valpere/mapml_features/cmd"

func main() {
	cmd.Execute()
}
