package main

import "github.com/ankane/sheetsync/cmd"

func main() {
	cmd.Execute()
}
