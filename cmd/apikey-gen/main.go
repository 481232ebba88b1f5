package main

import (
	"flag"
	"fmt"
	"log"

	"onepay.payagent/pkg/crypto"
)

var hashKey = crypto.HashSecret

func main() {
	mode := flag.String("mode", "live", "key mode: live or test")
	hexLen := flag.Int("hex-len", 32, "random hex length (must be even)")
	flag.Parse()

	apiKey, keyHash, err := buildCredentials(*mode, *hexLen)
	if err != nil {
		log.Fatalf("failed to generate api key: %v", err)
	}

	fmt.Println("Generated PayAgent server credentials")
	fmt.Println("Give the key to the client, put the hash in the server environment.")
	fmt.Printf("PAYAGENT_API_KEY=%s\n", apiKey)
	fmt.Printf("PAYAGENT_API_KEY_HASH=%s\n", keyHash)
}

func validateInputs(mode string, hexLen int) error {
	if mode != "live" && mode != "test" {
		return fmt.Errorf("invalid mode: %s (allowed: live, test)", mode)
	}
	if hexLen <= 0 || hexLen%2 != 0 {
		return fmt.Errorf("invalid hex-len: %d (must be positive and even)", hexLen)
	}
	return nil
}

func generateRandomHex(n int) (string, error) {
	return crypto.GenerateRandomToken(n / 2)
}

// buildCredentials returns the plaintext key and its bcrypt hash
func buildCredentials(mode string, hexLen int) (string, string, error) {
	if err := validateInputs(mode, hexLen); err != nil {
		return "", "", err
	}
	raw, err := generateRandomHex(hexLen)
	if err != nil {
		return "", "", err
	}
	apiKey := fmt.Sprintf("pk_%s_%s", mode, raw)
	keyHash, err := hashKey(apiKey)
	if err != nil {
		return "", "", err
	}
	return apiKey, keyHash, nil
}
