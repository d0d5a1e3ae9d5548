package main

import "stackscan/cmd"

func main() {
	cmd.Execute()
}
