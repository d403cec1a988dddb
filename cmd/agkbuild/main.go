package main

import "agkbuild/cmd/agkbuild/cmd"

func main() {
	cmd.Execute()
}
