package main

import "github.com/kirillkom/rag-builder-assistant/internal/cli"

func main() {
	cli.Execute()
}
