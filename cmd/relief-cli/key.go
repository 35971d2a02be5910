package main

import (
	"fmt"
	"os"

	"reliefchain/crypto"
)

func generateKey() {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		panic(err)
	}

	fileName := "operator.key"
	if _, err := os.Stat(fileName); err == nil {
		fmt.Printf("Refusing to overwrite existing %s. Move it aside first.\n", fileName)
		os.Exit(1)
	}
	if err := os.WriteFile(fileName, key.Bytes(), 0o600); err != nil {
		panic(fmt.Sprintf("Failed to save key to %s: %v", fileName, err))
	}

	fmt.Printf("Generated new key and saved to %s\n", fileName)
	fmt.Printf("Your address is: %s\n", key.PubKey().Address().String())
	fmt.Println("Store this file securely; it identifies an operator account.")
}
