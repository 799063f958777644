package main

import "github.com/heronlancellot/bee2bee/cmd"

func main() {
	cmd.Execute()
}
