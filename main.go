package main

import "github.com/KaramelBytes/flowviz-cli/cmd"

func main() {
	cmd.Execute()
}
