package main

import (
	"context"
	"log"
	"net/http"
	"os"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	ctx := context.Background()

	banks := map[string]WordBank{"defaut": DefaultBank()}
	if dir := os.Getenv("WORDBANK_DIR"); dir != "" {
		for name, bank := range LoadBankDir(dir) {
			banks[name] = bank
		}
		log.Printf("%d banque(s) de mots chargée(s)", len(banks))
	}

	projectID := os.Getenv("GCP_PROJECT_ID")

	var gemini *GeminiClient
	if projectID != "" {
		var err error
		gemini, err = NewGeminiClient(ctx, projectID, os.Getenv("GCP_REGION"))
		if err != nil {
			log.Fatalf("Impossible d'initialiser Gemini : %v", err)
		}
		defer gemini.Close()
		log.Printf("Client Gemini initialisé (projet: %s)", projectID)
	} else {
		log.Println("GCP_PROJECT_ID non défini — génération de banques désactivée")
	}

	srv := NewServer(NewStore(), gemini, banks)

	log.Printf("Serveur démarré sur http://localhost:%s", port)
	if err := http.ListenAndServe(":"+port, srv); err != nil {
		log.Fatal(err)
	}
}
