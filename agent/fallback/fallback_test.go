package fallback

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubTranslator struct {
	out      string
	detected string
	err      error
}

func (s stubTranslator) Translate(context.Context, string, string, string) (string, error) {
	return s.out, s.err
}

func (s stubTranslator) Detect(context.Context, string) (string, error) {
	return s.detected, s.err
}

func TestMessagesByLanguage(t *testing.T) {
	t.Parallel()

	assert.Contains(t, Generic("es"), "dificultades técnicas")
	assert.Contains(t, Generic("es-MX"), "dificultades técnicas")
	assert.Contains(t, Generic("fr"), "technical difficulties")
	assert.Contains(t, Generic(""), "https://vote.gov")
	assert.Contains(t, SearchFailure("en"), "Congress.gov")
	assert.Contains(t, Neutral("es"), "neutralidad política")
}

func TestTranslateFallsBackToOriginal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.Equal(t, "Hola", Translate(ctx, stubTranslator{out: "Hola"}, "Hello", "es", ""))
	assert.Equal(t, "Hello", Translate(ctx, stubTranslator{err: errors.New("429")}, "Hello", "es", ""))
	assert.Equal(t, "Hello", Translate(ctx, nil, "Hello", "es", ""))
}

func TestLanguageResolution(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	detector := stubTranslator{detected: "es"}

	assert.Equal(t, "pt", Language(ctx, "pt-BR", "es", detector, "x"))
	assert.Equal(t, "es", Language(ctx, "", "ES", nil, "x"))
	assert.Equal(t, "es", Language(ctx, "", "", detector, "¿Cómo voto?"))
	assert.Equal(t, "en", Language(ctx, "", "", stubTranslator{err: errors.New("down")}, "hi"))
	assert.Equal(t, "en", Language(ctx, "", "", nil, ""))
}

func TestLocalized(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.Equal(t, Generic("es"), Localized(ctx, stubTranslator{out: "x"}, Generic, "es"))
	assert.Equal(t, "Je suis désolé", Localized(ctx, stubTranslator{out: "Je suis désolé"}, Generic, "fr"))
	assert.Equal(t, Neutral("en"), Localized(ctx, stubTranslator{err: errors.New("down")}, Neutral, "fr"))
	assert.Equal(t, SearchFailure("en"), Localized(ctx, nil, SearchFailure, "de"))
}
