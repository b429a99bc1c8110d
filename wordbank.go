package main

import (
	"embed"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed banks
var banksFS embed.FS

// WordBank maps a category name to its terms. Categories are independent;
// nothing forbids the same term in two categories.
type WordBank map[string][]string

// DefaultBank returns the bank embedded in the binary.
func DefaultBank() WordBank {
	data, err := banksFS.ReadFile("banks/defaut.yaml")
	if err != nil {
		panic(fmt.Sprintf("banque embarquée manquante : %v", err))
	}
	bank, err := ParseBank(data)
	if err != nil {
		panic(fmt.Sprintf("banque embarquée invalide : %v", err))
	}
	return bank
}

// ParseBank decodes a YAML word bank: a mapping of category names to term
// lists. An empty mapping is rejected; empty categories are kept (the
// generator degrades gracefully on them).
func ParseBank(data []byte) (WordBank, error) {
	var bank WordBank
	if err := yaml.Unmarshal(data, &bank); err != nil {
		return nil, fmt.Errorf("parse bank YAML: %w", err)
	}
	if len(bank) == 0 {
		return nil, fmt.Errorf("empty bank: no categories")
	}
	return bank, nil
}

// LoadBankDir loads every *.yaml file in dir as a named bank (the name is
// the file name without extension). Unreadable or invalid files are logged
// and skipped.
func LoadBankDir(dir string) map[string]WordBank {
	banks := make(map[string]WordBank)

	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Printf("Lecture du répertoire de banques %s : %v", dir, err)
		return banks
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Printf("Banque %s ignorée : %v", name, err)
			continue
		}
		bank, err := ParseBank(data)
		if err != nil {
			log.Printf("Banque %s ignorée : %v", name, err)
			continue
		}
		banks[strings.TrimSuffix(name, ".yaml")] = bank
	}
	return banks
}
