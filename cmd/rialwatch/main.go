package main

import "rialwatch/internal/cli"

func main() {
	cli.Execute()
}
