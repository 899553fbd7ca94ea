// Package fallback holds the degraded-mode replies and helpers used when a
// hosted capability fails.
package fallback

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
)

const DefaultLanguage = "en"

var generic = map[string]string{
	"en": "I apologize, but I'm experiencing technical difficulties. " +
		"For reliable civic information, please visit:\n\n" +
		"- USA.gov: https://www.usa.gov\n" +
		"- Vote.gov: https://vote.gov\n" +
		"- Your local election office\n\n" +
		"Please try again shortly.",
	"es": "Disculpe, pero estoy experimentando dificultades técnicas. " +
		"Para información cívica confiable, por favor visite:\n\n" +
		"- USA.gov en español: https://www.usa.gov/espanol\n" +
		"- Vote.gov: https://vote.gov\n" +
		"- Su oficina electoral local\n\n" +
		"Por favor intente nuevamente en breve.",
}

var searchFailure = map[string]string{
	"en": "I'm currently unable to search my knowledge base. " +
		"Please try again in a moment, or visit these official resources:\n\n" +
		"- USA.gov: https://www.usa.gov\n" +
		"- Vote.gov: https://vote.gov\n" +
		"- Congress.gov: https://www.congress.gov",
	"es": "Actualmente no puedo buscar en mi base de conocimientos. " +
		"Por favor intente nuevamente en un momento, o visite estos recursos oficiales:\n\n" +
		"- USA.gov en español: https://www.usa.gov/espanol\n" +
		"- Vote.gov: https://vote.gov\n" +
		"- Congress.gov: https://www.congress.gov",
}

var neutral = map[string]string{
	"en": "I apologize, but I'm unable to provide a complete answer to your question " +
		"while maintaining strict political neutrality. However, I can help you with:\n\n" +
		"- General information about government structure and processes\n" +
		"- Voting requirements and registration procedures\n" +
		"- Election dates and civic participation\n" +
		"- Official government resources and websites\n\n" +
		"Please visit https://www.usa.gov for comprehensive, official information, " +
		"or feel free to rephrase your question.",
	"es": "Disculpe, pero no puedo proporcionar una respuesta completa a su pregunta " +
		"mientras mantengo estricta neutralidad política. Sin embargo, puedo ayudarle con:\n\n" +
		"- Información general sobre la estructura y procesos del gobierno\n" +
		"- Requisitos y procedimientos de registro para votar\n" +
		"- Fechas de elecciones y participación cívica\n" +
		"- Recursos y sitios web oficiales del gobierno\n\n" +
		"Por favor visite https://www.usa.gov/espanol para información oficial completa, " +
		"o siéntase libre de reformular su pregunta.",
}

func pick(set map[string]string, lang string) string {
	if msg, ok := set[Normalize(lang)]; ok {
		return msg
	}
	return set[DefaultLanguage]
}

// Generic is the reply used when a handler fails.
func Generic(lang string) string { return pick(generic, lang) }

// SearchFailure is the reply used when search fails with nothing cached.
func SearchFailure(lang string) string { return pick(searchFailure, lang) }

// Neutral replaces replies that failed output validation.
func Neutral(lang string) string { return pick(neutral, lang) }

// Localized returns msg in lang. Languages without built-in text get the
// English message translated, or the English message when that fails.
func Localized(ctx context.Context, t contractx.Translator, msg func(string) string, lang string) string {
	l := Normalize(lang)
	if _, ok := generic[l]; ok || l == "" || t == nil {
		return msg(l)
	}
	return Translate(ctx, t, msg(DefaultLanguage), l, DefaultLanguage)
}

// Normalize reduces a language tag to its lower-case primary subtag.
func Normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return lang
}

// Translate returns the translation, or text unchanged when translation is
// unavailable or fails.
func Translate(ctx context.Context, t contractx.Translator, text, target, source string) string {
	if t == nil || strings.TrimSpace(text) == "" || strings.TrimSpace(target) == "" {
		return text
	}
	out, err := t.Translate(ctx, text, target, source)
	if err != nil || strings.TrimSpace(out) == "" {
		log.Warn().Err(err).Str("target", target).Msg("translation failed; using original text")
		return text
	}
	return out
}

// Language picks the reply language: the request, then the session, then
// detection on text, then English.
func Language(ctx context.Context, requested, session string, detector contractx.Translator, text string) string {
	if l := Normalize(requested); l != "" {
		return l
	}
	if l := Normalize(session); l != "" {
		return l
	}
	if detector != nil && strings.TrimSpace(text) != "" {
		detected, err := detector.Detect(ctx, text)
		if err != nil {
			log.Debug().Err(err).Msg("language detection failed")
		} else if l := Normalize(detected); l != "" {
			return l
		}
	}
	return DefaultLanguage
}
