package complaint

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
	storex "github.com/tanpawarit/civic-chat/agent/store"
	qstashx "github.com/tanpawarit/civic-chat/pkg/qstash"
)

type scriptedExtractor struct {
	mu      sync.Mutex
	replies []string
	err     error
}

func (s *scriptedExtractor) Extract(context.Context, string, string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return "{}", nil
	}
	out := s.replies[0]
	s.replies = s.replies[1:]
	return out, nil
}

type flakyStore struct {
	*storex.Memory
	failures int
	attempts int
}

func (f *flakyStore) Put(ctx context.Context, c, pk string, doc contractx.Document) (string, error) {
	f.attempts++
	if f.failures > 0 {
		f.failures--
		return "", errors.New("storage unavailable")
	}
	return f.Memory.Put(ctx, c, pk, doc)
}

type recordingNotifier struct {
	sent []contractx.Notification
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, n contractx.Notification) error {
	r.sent = append(r.sent, n)
	return r.err
}

func newMachine(t *testing.T, store contractx.StorageGateway, n contractx.Notifier, ext contractx.Extractor) *Machine {
	t.Helper()
	m, err := NewMachine(store, n, ext,
		WithClock(func() time.Time { return time.Date(2026, 5, 4, 10, 30, 15, 500, time.UTC) }),
		WithIDGenerator(func() string { return "3f2c9a1e-0000-4000-8000-000000000001" }),
	)
	require.NoError(t, err)
	return m
}

func TestSaveEligibility(t *testing.T) {
	t.Parallel()

	rec := newRecord("id", "u", time.Now())
	rec.Content = "bache"
	assert.False(t, rec.SaveEligible())

	rec.Category = "infraestructura"
	assert.True(t, rec.SaveEligible())

	rec = newRecord("id", "u", time.Now())
	rec.Location.City = "CABA"
	assert.False(t, rec.SaveEligible())
}

func TestAccumulatingToSavedFiresOnce(t *testing.T) {
	t.Parallel()

	mem := storex.NewMemory()
	notifier := &recordingNotifier{}
	ext := &scriptedExtractor{replies: []string{
		`{"contenido": "bache"}`,
		`{"categoria": "infraestructura"}`,
		`{}`,
	}}
	m := newMachine(t, mem, notifier, ext)
	ctx := context.Background()

	out, err := m.Observe(ctx, "u-1", "hay un bache")
	require.NoError(t, err)
	assert.Equal(t, StateAccumulating, out.State)
	assert.Equal(t, StateAccumulating, m.State("u-1"))

	out, err = m.Observe(ctx, "u-1", "es de infraestructura")
	require.NoError(t, err)
	assert.Equal(t, StateSaved, out.State)
	assert.True(t, out.Saved)
	assert.Nil(t, m.Current("u-1"))
	assert.Equal(t, StateNoActiveComplaint, m.State("u-1"))

	out, err = m.Observe(ctx, "u-1", "gracias por todo")
	require.NoError(t, err)
	assert.False(t, out.Saved)
	assert.Equal(t, StateNoActiveComplaint, out.State)

	assert.Len(t, mem.IDs(Container), 1)
	assert.Len(t, notifier.sent, 1)
}

func TestSaveRetryKeepsSingleRecord(t *testing.T) {
	t.Parallel()

	store := &flakyStore{Memory: storex.NewMemory(), failures: 1}
	ext := &scriptedExtractor{replies: []string{
		`{"contenido": "robo en la esquina", "categoria": "seguridad", "city": "Rosario"}`,
	}}
	m := newMachine(t, store, &recordingNotifier{}, ext)
	ctx := context.Background()

	out, err := m.Observe(ctx, "u-1", "me robaron en la esquina de Rosario")
	require.ErrorIs(t, err, contractx.ErrPersistence)
	assert.Equal(t, StateSaveEligible, out.State)
	require.NotNil(t, m.Current("u-1"))
	firstID := m.Current("u-1").ID

	out, err = m.Observe(ctx, "u-1", "¿ya quedó registrada?")
	require.NoError(t, err)
	assert.True(t, out.Saved)
	assert.Equal(t, firstID, out.Record.ID)

	assert.Equal(t, 2, store.attempts)
	assert.Equal(t, []string{firstID}, store.IDs(Container))

	pk, ok := store.PartitionKey(Container, firstID)
	require.True(t, ok)
	assert.Equal(t, "Rosario", pk)
}

func TestExtractionFaultTolerance(t *testing.T) {
	t.Parallel()

	cases := map[string]*scriptedExtractor{
		"non json":     {replies: []string{"I don't know"}},
		"model error":  {err: errors.New("timeout")},
		"schema error": {replies: []string{`{"contenido": 42, "categoria": "otro"}`}},
	}
	for name, ext := range cases {
		t.Run(name, func(t *testing.T) {
			mem := storex.NewMemory()
			m := newMachine(t, mem, &recordingNotifier{}, ext)

			out, err := m.Observe(context.Background(), "u-1", "algo pasa en mi calle")
			require.NoError(t, err)
			assert.False(t, out.Changed)
			assert.Equal(t, StateNoActiveComplaint, out.State)
			assert.Nil(t, m.Current("u-1"))
			assert.Empty(t, mem.IDs(Container))
		})
	}
}

func TestScenarioPotholeRecord(t *testing.T) {
	t.Parallel()

	mem := storex.NewMemory()
	notifier := &recordingNotifier{}
	ext := &scriptedExtractor{replies: []string{
		`{"contenido": "bache en Av. Rivadavia 3200", "city": "CABA", "address": "Av. Rivadavia 3200", "categoria": "infraestructura", "etiquetas": ["bache", "vía pública"]}`,
	}}
	m := newMachine(t, mem, notifier, ext)

	out, err := m.Observe(context.Background(), "u-7", "Quiero reportar un bache en Av. Rivadavia 3200, CABA")
	require.NoError(t, err)
	require.True(t, out.Saved)

	var stored Record
	require.NoError(t, mem.Get(context.Background(), Container, out.Record.ID, &stored))
	assert.Equal(t, "bache en Av. Rivadavia 3200", stored.Content)
	assert.Equal(t, "CABA", stored.Location.City)
	assert.Equal(t, "Av. Rivadavia 3200", stored.Location.Address)
	assert.Equal(t, "infraestructura", stored.Category)
	assert.Equal(t, EntityMunicipality, stored.ResponsibleEntity)
	assert.Equal(t, StatusPending, stored.Status)
	assert.Equal(t, OriginText, stored.Origin)
	assert.Equal(t, "u-7", stored.SubmitterID)
	assert.True(t, stored.Timestamp.Equal(time.Date(2026, 5, 4, 10, 30, 15, 0, time.UTC)), stored.Timestamp)

	require.Len(t, notifier.sent, 1)
	sent := notifier.sent[0]
	assert.Equal(t, "quejas@municipio.gob.ficticio", sent.To)
	assert.Equal(t, "Nueva Denuncia #3f2c9a1e - infraestructura", sent.Subject)
	assert.Contains(t, sent.Body, "Dirección: Av. Rivadavia 3200")
	assert.Contains(t, sent.Body, "Etiquetas: bache, vía pública")
}

func TestNotificationFailureStillSaves(t *testing.T) {
	t.Parallel()

	mem := storex.NewMemory()
	ext := &scriptedExtractor{replies: []string{`{"contenido": "coimas en la oficina", "categoria": "Corrupción"}`}}
	m := newMachine(t, mem, &recordingNotifier{err: errors.New("smtp down")}, ext)

	out, err := m.Observe(context.Background(), "u-1", "me pidieron coimas en la oficina")
	require.NoError(t, err)
	assert.True(t, out.Saved)
	assert.False(t, out.Notified)
	assert.Equal(t, EntityProsecutor, out.Record.ResponsibleEntity)
	assert.Nil(t, m.Current("u-1"))

	pk, ok := mem.PartitionKey(Container, out.Record.ID)
	require.True(t, ok)
	assert.Equal(t, "unknown", pk)
}

func TestTagsAccumulateWithoutDuplicates(t *testing.T) {
	t.Parallel()

	ext := &scriptedExtractor{replies: []string{
		`{"city": "Quito", "etiquetas": ["ruido"]}`,
		`{"etiquetas": ["ruido", "noche"], "criticidad": "alta"}`,
	}}
	m := newMachine(t, storex.NewMemory(), &recordingNotifier{}, ext)
	ctx := context.Background()

	_, err := m.Observe(ctx, "u-1", "mucho ruido en Quito")
	require.NoError(t, err)
	_, err = m.Observe(ctx, "u-1", "todas las noches, es urgente")
	require.NoError(t, err)

	cur := m.Current("u-1")
	require.NotNil(t, cur)
	assert.Equal(t, []string{"ruido", "noche"}, cur.Tags)
	assert.Equal(t, CriticalityHigh, cur.Criticality)
	assert.Equal(t, StateAccumulating, m.State("u-1"))
}

func TestCancelledContextSkipsTick(t *testing.T) {
	t.Parallel()

	ext := &scriptedExtractor{replies: []string{`{"contenido": "x", "categoria": "otro"}`}}
	m := newMachine(t, storex.NewMemory(), &recordingNotifier{}, ext)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Observe(ctx, "u-1", "hay basura en la plaza")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, m.Current("u-1"))
}

func TestEntityTable(t *testing.T) {
	t.Parallel()

	table := DefaultEntityTable()
	assert.Equal(t, EntityPolice, table.Resolve("Seguridad"))
	assert.Equal(t, EntityProsecutor, table.Resolve("corrupción"))
	assert.Equal(t, EntityMunicipality, table.Resolve("servicios"))
	assert.Equal(t, EntityMunicipality, table.Resolve("otro"))
	assert.Equal(t, EntityMunicipality, table.Resolve(""))

	extended := table.With("Transporte Público", EntityGovernor)
	assert.Equal(t, EntityGovernor, extended.Resolve("transporte publico"))
	assert.Equal(t, EntityMunicipality, table.Resolve("transporte publico"))

	assert.Equal(t, "general@gobierno.gob.ficticio", ContactFor("unknown"))
}

func TestParseCriticality(t *testing.T) {
	t.Parallel()

	assert.Equal(t, CriticalityHigh, ParseCriticality("Alta"))
	assert.Equal(t, CriticalityMedium, ParseCriticality("medium"))
	assert.Equal(t, CriticalityLow, ParseCriticality("baja"))
	assert.Equal(t, Criticality(""), ParseCriticality("¿?"))
}

func TestProviderBeforeTurnShowsProgress(t *testing.T) {
	t.Parallel()

	ext := &scriptedExtractor{replies: []string{`{"contenido": "semáforo roto"}`}}
	m := newMachine(t, storex.NewMemory(), &recordingNotifier{}, ext)
	p := NewProvider(m)
	ctx := context.Background()

	block, err := p.BeforeTurn(ctx, "u-1")
	require.NoError(t, err)
	assert.Empty(t, block)

	require.NoError(t, p.AfterTurn(ctx, "u-1", "el semáforo está roto", ""))
	block, err = p.BeforeTurn(ctx, "u-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(block, "[DENUNCIA EN CURSO]"))
	assert.Contains(t, block, "Descripción: semáforo roto")
	assert.Contains(t, block, "ciudad")
}

type fakePublisher struct {
	dest    string
	headers map[string]string
	err     error
}

func (f *fakePublisher) PublishJSON(_ context.Context, dest string, _ any, headers map[string]string) (qstashx.PublishResult, error) {
	f.dest = dest
	f.headers = headers
	return qstashx.PublishResult{MessageID: "msg_1"}, f.err
}

func TestQStashNotifier(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	n, err := NewQStashNotifier(pub, "https://hooks.example/mail")
	require.NoError(t, err)

	require.NoError(t, n.Notify(context.Background(), contractx.Notification{ComplaintID: "c-1", Entity: "police"}))
	assert.Equal(t, "https://hooks.example/mail", pub.dest)
	assert.Equal(t, "c-1", pub.headers["X-Complaint-Id"])

	pub.err = errors.New("502")
	assert.ErrorIs(t, n.Notify(context.Background(), contractx.Notification{}), contractx.ErrNotification)
}

func TestRecordWritesUnsetFieldsAsNull(t *testing.T) {
	t.Parallel()

	rec := newRecord("c-1", "", time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC))
	rec.Content = "Hay un bache enorme"

	raw, err := json.Marshal(rec)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	for _, key := range []string{"criticality", "category", "submitterId", "responsibleEntity"} {
		v, ok := got[key]
		assert.True(t, ok, "missing key %s", key)
		assert.Nil(t, v, key)
	}
	loc, ok := got["location"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"city", "address", "lat", "lon"} {
		v, ok := loc[key]
		assert.True(t, ok, "missing location key %s", key)
		assert.Nil(t, v, key)
	}
	assert.Equal(t, "Hay un bache enorme", got["content"])
	assert.Equal(t, []any{}, got["tags"])

	var back Record
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, "Hay un bache enorme", back.Content)
	assert.Empty(t, back.Category)
	assert.False(t, back.SaveEligible())
}
