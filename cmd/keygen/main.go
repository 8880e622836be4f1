package main

import (
	"fmt"
	"log"

	"github.com/proctorhub/proctorhub-backend/internal/crypto"
)

// keygen prints a fresh base64-encoded AES-256 key for ENCRYPTION_KEY.
func main() {
	key, err := crypto.GenerateKey()
	if err != nil {
		log.Fatalf("Key generation failed: %v", err)
	}
	fmt.Println(key)
}
