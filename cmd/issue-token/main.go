// Command issue-token prints a bearer token for a user id, signed with
// JWT_SECRET. It is meant for local testing and operators.
package main

import (
	"flag"
	"fmt"
	"os"

	"budgetplan/internal/auth"
	"budgetplan/internal/cli"
	"budgetplan/internal/config"
)

func main() {
	userID := flag.String("user", "", "user id to put in the token subject")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger("warn")
	cfg := config.Load()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "usage: issue-token -user <id>")
		os.Exit(2)
	}
	if len(cfg.JWTSecret) < 32 {
		fmt.Fprintln(os.Stderr, "JWT_SECRET must be set to at least 32 characters")
		os.Exit(1)
	}

	token, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpiresIn).GenerateToken(*userID)
	if err != nil {
		cli.Fatal(logger, "Failed to issue token", err)
	}
	fmt.Println(token)
}
