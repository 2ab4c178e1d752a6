package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/volunteerplanner/planner-api/pkg/auth"
	"github.com/volunteerplanner/planner-api/pkg/database"
)

func main() {
	// Load .env from project root
	_ = godotenv.Load("../.env")
	_ = godotenv.Load(".env")

	if len(os.Args) < 2 {
		fmt.Println("Usage: tokengen <name> [expires_in_days]")
		os.Exit(1)
	}

	name := os.Args[1]
	expiresInDays := 0
	if len(os.Args) > 2 {
		n, err := strconv.Atoi(os.Args[2])
		if err != nil {
			fmt.Println("Error: expires_in_days must be a number")
			os.Exit(1)
		}
		expiresInDays = n
	}

	db := database.InitDB()
	token, err := auth.CreateAccessToken(db, name, 0, expiresInDays)
	if err != nil {
		fmt.Printf("Error: could not create token: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated token for %s:\n%s\n", name, token.Token)
}
