package main

import "github.com/OpenTraceLab/pinplan/cmd/pinplan/cmd"

func main() {
	cmd.Execute()
}
