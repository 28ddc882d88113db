package main

import "github.com/schemaforge/esync/cmd/esync/cmd"

func main() {
	cmd.Execute()
}
