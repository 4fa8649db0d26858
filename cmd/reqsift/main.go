// # cmd/reqsift/main.go
package main

import (
	"github.com/joho/godotenv"

	"reqsift/internal/cli"
)

func main() {
	_ = godotenv.Load()
	cli.Execute()
}
