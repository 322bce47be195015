package main

import (
	"github.com/OFFIS-RIT/scholargraph/backend/internal/server"
)

func main() {
	server.Init()
}
