package main

import "kas-container/internal/cli"

func main() {
	cli.Execute()
}
