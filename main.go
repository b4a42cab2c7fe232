package main

import "github.com/bcomnes/bumpversion/cmd"

func main() {
	cmd.Execute(Version)
}
