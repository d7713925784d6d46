package main

import "github.com/hydronet/gopinn/cmd"

func main() {
	cmd.Execute()
}
