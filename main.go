package main

import "github.com/jcdickinson/docnet/cmd"

func main() {
	cmd.Execute()
}
