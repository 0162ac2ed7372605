package main

import "github.com/Tiliavir/ministry-log/cmd"

func main() {
	cmd.Execute()
}
