package main

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"
)

const bankPrompt = `Tu construis une banque de mots pour un jeu de grille.

Sujet : %q.
Produis %d catégories liées au sujet, avec %d termes par catégorie, au
format JSON suivant :
{
  "categories": {
    "nom de catégorie": ["terme", "terme", ...],
    ...
  }
}

Règles :
- Les noms de catégories sont courts, en minuscules.
- Les termes sont des mots simples ou des expressions très courtes.
- Aucune catégorie vide.
- Réponds UNIQUEMENT avec le JSON, sans commentaire ni markdown.`

// GenerateBank asks Gemini for a themed word bank: categories categories
// of termsPer terms each, all related to topic.
func (g *GeminiClient) GenerateBank(ctx context.Context, topic string, categories, termsPer int) (WordBank, error) {
	prompt := fmt.Sprintf(bankPrompt, topic, categories, termsPer)

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName,
		[]*genai.Content{{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		}},
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr(float32(0.7)),
			TopP:             genai.Ptr(float32(1)),
			ResponseMIMEType: "application/json",
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("empty gemini response")
	}

	var out struct {
		Categories WordBank `json:"categories"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("parse bank JSON: %w\nraw response: %s", err, text)
	}

	if len(out.Categories) == 0 {
		return nil, fmt.Errorf("invalid bank: no categories")
	}
	for name, terms := range out.Categories {
		if len(terms) == 0 {
			return nil, fmt.Errorf("invalid bank: empty category %q", name)
		}
	}

	return out.Categories, nil
}
