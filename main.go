package main

import "github.com/joeypohie/photorank/cmd"

func main() {
	cmd.Execute()
}
