package complaint

import (
	"context"
	"strings"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
)

const providerName = "complaint"

// Provider exposes the machine as a context provider: the before hook shows
// the complaint in progress and the after hook runs one tick.
type Provider struct {
	machine *Machine
}

var _ contractx.ContextProvider = (*Provider)(nil)

func NewProvider(m *Machine) *Provider {
	return &Provider{machine: m}
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) BeforeTurn(_ context.Context, userID string) (string, error) {
	rec := p.machine.Current(userID)
	if rec == nil {
		return "", nil
	}

	var b strings.Builder
	b.WriteString("[DENUNCIA EN CURSO]\n")
	if rec.Content != "" {
		b.WriteString("Descripción: " + rec.Content + "\n")
	}
	if rec.Location.City != "" {
		b.WriteString("Ciudad: " + rec.Location.City + "\n")
	}
	if rec.Location.Address != "" {
		b.WriteString("Dirección: " + rec.Location.Address + "\n")
	}
	if rec.Category != "" {
		b.WriteString("Categoría: " + rec.Category + "\n")
	}
	if rec.Criticality != "" {
		b.WriteString("Criticidad: " + string(rec.Criticality) + "\n")
	}
	if missing := rec.Missing(); len(missing) > 0 {
		b.WriteString("Falta: " + strings.Join(missing, ", ") + "\n")
	}
	b.WriteString("Pide amablemente los datos que faltan, uno o dos a la vez.")
	return b.String(), nil
}

func (p *Provider) AfterTurn(ctx context.Context, userID string, utterance string, _ string) error {
	_, err := p.machine.Observe(ctx, userID, utterance)
	return err
}
