package main

import "github.com/vaultdrive/vaultdrive/internal/cli"

func main() {
	cli.Execute()
}
