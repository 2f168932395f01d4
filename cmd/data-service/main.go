package main

import "data-service/internal/cli"

func main() {
	cli.Execute()
}
