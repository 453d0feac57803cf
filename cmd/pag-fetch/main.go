package main

import "github.com/retea-se/pag/internal/cli"

func main() {
	cli.Execute()
}
