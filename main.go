package main

import "github.com/KaramelBytes/cellstat-cli/cmd"

func main() {
	cmd.Execute()
}
