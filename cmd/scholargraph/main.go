package main

import "github.com/OFFIS-RIT/scholargraph/backend/internal/cli"

func main() {
	cli.Execute()
}
