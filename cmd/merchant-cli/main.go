package main

import "github.com/information-sharing-networks/saturn-demo/internal/cli"

func main() {
	cli.Execute()
}
