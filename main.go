package main

import "github.com/emrgen/pidkeeper/cmd"

func main() {
	cmd.Execute()
}
