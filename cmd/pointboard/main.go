package main

import "github.com/vietddude/pointboard/internal/cli"

func main() {
	cli.Execute()
}
