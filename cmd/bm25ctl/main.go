package main

import "github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/cli"

func main() {
	cli.Execute()
}
