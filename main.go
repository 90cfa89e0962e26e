package main

import "vibebros/cmd"

func main() {
	cmd.Execute()
}
