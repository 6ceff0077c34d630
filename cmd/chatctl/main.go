package main

import "github.com/zhengjr9/portfolio-chat/internal/cli"

func main() {
	cli.Execute()
}
