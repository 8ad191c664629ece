package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/kolah/portico/internal/cli"
)

func main() {
	_ = godotenv.Load()

	cmd := cli.RootCmd()
	err := cmd.Execute()
	if err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
}
