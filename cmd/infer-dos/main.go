package main

import "github.com/mvp-joe/infer-dos/internal/cli"

func main() {
	cli.Execute()
}
