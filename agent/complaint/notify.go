package complaint

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
	qstashx "github.com/tanpawarit/civic-chat/pkg/qstash"
)

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// BuildNotification renders the message sent to the responsible entity.
func BuildNotification(rec *Record) contractx.Notification {
	tags := strings.Join(rec.Tags, ", ")

	var b strings.Builder
	b.WriteString("NUEVA DENUNCIA CIUDADANA\n")
	b.WriteString("========================\n\n")
	fmt.Fprintf(&b, "ID de Denuncia: %s\n", rec.ID)
	fmt.Fprintf(&b, "Fecha y Hora: %s\n", rec.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(&b, "Criticidad: %s\n", orDefault(string(rec.Criticality), "No especificada"))
	fmt.Fprintf(&b, "Estado: %s\n\n", rec.Status)
	b.WriteString("UBICACIÓN:\n----------\n")
	fmt.Fprintf(&b, "Ciudad: %s\n", orDefault(rec.Location.City, "No especificada"))
	fmt.Fprintf(&b, "Dirección: %s\n\n", orDefault(rec.Location.Address, "No especificada"))
	b.WriteString("DESCRIPCIÓN:\n------------\n")
	fmt.Fprintf(&b, "%s\n\n", orDefault(rec.Content, "Sin descripción"))
	b.WriteString("CATEGORÍA Y ETIQUETAS:\n----------------------\n")
	fmt.Fprintf(&b, "Categoría: %s\n", orDefault(rec.Category, "No especificada"))
	fmt.Fprintf(&b, "Etiquetas: %s\n\n", orDefault(tags, "Ninguna"))
	b.WriteString("INFORMACIÓN DEL USUARIO:\n------------------------\n")
	fmt.Fprintf(&b, "ID de Usuario: %s\n\n", rec.SubmitterID)
	b.WriteString("ENTIDAD RESPONSABLE:\n--------------------\n")
	fmt.Fprintf(&b, "%s\n\n", rec.ResponsibleEntity)
	b.WriteString("---\nEste es un mensaje automático del Sistema de Denuncias Ciudadanas.\n")
	b.WriteString("Por favor, no responder a este correo.\n")

	return contractx.Notification{
		To:          ContactFor(rec.ResponsibleEntity),
		Subject:     fmt.Sprintf("Nueva Denuncia #%s - %s", shortID(rec.ID), orDefault(rec.Category, "General")),
		Body:        b.String(),
		ComplaintID: rec.ID,
		Entity:      string(rec.ResponsibleEntity),
	}
}

// Publisher is the subset of the QStash client used for delivery.
type Publisher interface {
	PublishJSON(ctx context.Context, destination string, payload any, headers map[string]string) (qstashx.PublishResult, error)
}

// QStashNotifier hands notifications to QStash, which forwards them to a
// mail webhook and retries delivery on its side.
type QStashNotifier struct {
	publisher   Publisher
	destination string
}

var _ contractx.Notifier = (*QStashNotifier)(nil)

func NewQStashNotifier(publisher Publisher, destination string) (*QStashNotifier, error) {
	if publisher == nil {
		return nil, errors.New("qstash publisher is required")
	}
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return nil, errors.New("notification destination is required")
	}
	return &QStashNotifier{publisher: publisher, destination: destination}, nil
}

func (n *QStashNotifier) Notify(ctx context.Context, msg contractx.Notification) error {
	res, err := n.publisher.PublishJSON(ctx, n.destination, msg, map[string]string{
		"X-Complaint-Id": msg.ComplaintID,
		"X-Entity":       msg.Entity,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", contractx.ErrNotification, err)
	}
	log.Debug().
		Str("complaint_id", msg.ComplaintID).
		Str("message_id", res.MessageID).
		Msg("complaint notification queued")
	return nil
}

// LogNotifier writes notifications to the log instead of delivering them.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, msg contractx.Notification) error {
	log.Info().
		Str("complaint_id", msg.ComplaintID).
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Msg("complaint notification")
	return nil
}
