package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/b2bportal/backend/internal/application/reconciliation"
	"github.com/b2bportal/backend/internal/domain/integration"
	"github.com/b2bportal/backend/internal/domain/partner"
	"github.com/b2bportal/backend/internal/infrastructure/erp"
	"github.com/b2bportal/backend/internal/infrastructure/migration"
	"github.com/b2bportal/backend/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeERP serves one page per resource; bodies can be swapped between runs
type fakeERP struct {
	mu     sync.Mutex
	bodies map[string]string
}

func (f *fakeERP) set(path, data string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies[path] = data
}

func (f *fakeERP) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	data, ok := f.bodies[r.URL.Path]
	f.mu.Unlock()
	if !ok {
		data = "[]"
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write([]byte(`{"data":` + data + `,"page":1,"last_page":1}`))
}

func newFakeERP(t *testing.T) (*fakeERP, *erp.Client) {
	t.Helper()
	f := &fakeERP{bodies: map[string]string{
		"/articulos": `[
			{"codigo":"A1","descripcion":"Aceite 1L","grupo":"G1","stock_actual":"10","fecha_inclusion":"2024-01-15"},
			{"codigo":"C123","descripcion":"Abrazadera","grupo":"G2","stock_actual":"3"}
		]`,
		"/precios": `[
			{"codigo_articulo":"A1","precio":"100","tipo_precio":"1"},
			{"codigo_articulo":"C123","precio":"7.50","tipo_precio":"2"}
		]`,
		"/grupos":     `[{"codigo":"G1","descripcion":"Lubricantes"}]`,
		"/clientes":   `[{"codigo":"CL1","nombre":"Acme","vendedor":"V1","calle":"Av. Bolivar","numero":"12","ciudad":"Valencia"}]`,
		"/vendedores": `[{"codigo":"V1","nombre":"Norte"},{"codigo":"V2","nombre":"Sur"}]`,
	}}
	server := httptest.NewServer(f)
	t.Cleanup(server.Close)

	client, err := erp.NewClient(erp.Config{BaseURL: server.URL, PageSize: 100}, nil)
	require.NoError(t, err)
	return f, client
}

func TestCatalogSync_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	ctx := context.Background()
	remote, client := newFakeERP(t)
	scope := persistence.NewGormTransactionScope(testDB.DB)
	runs := persistence.NewGormSyncRunRepository(testDB.DB)

	engine, err := reconciliation.NewEngine(reconciliation.EngineConfig{
		Remote: client,
		Scope:  scope,
		Runs:   runs,
	})
	require.NoError(t, err)

	report, err := engine.RunFull(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), report.Products.Upserted)
	assert.Equal(t, 2, report.Prices.SnapshotsCreated)
	assert.Equal(t, 1, report.Clients.Created)
	assert.Equal(t, 2, report.Sellers.Created)

	repos := scope.Repositories()
	a1, err := repos.Products().FindByCode(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Lubricantes", a1.GroupDescription)
	assert.True(t, a1.Price.Equal(decimal.NewFromInt(100)))

	c123, err := repos.Products().FindByCode(ctx, "C123")
	require.NoError(t, err)
	assert.Equal(t, "G2", c123.GroupDescription)
	assert.True(t, c123.Price.Equal(decimal.RequireFromString("7.5")))

	t.Run("repeat run is a no-op on postgres", func(t *testing.T) {
		report, err := engine.RunFull(ctx)
		require.NoError(t, err)
		assert.Zero(t, report.Products.Upserted)
		assert.Zero(t, report.Prices.Updated)
		assert.Zero(t, report.Clients.Updated)
		assert.Zero(t, report.Sellers.Updated)
	})

	t.Run("price move, deletion and vendor change", func(t *testing.T) {
		v2, err := repos.Sellers().FindByCode(ctx, "V2")
		require.NoError(t, err)
		rule, err := partner.NewProductGroupDenial(v2.ID, "G_V2", partner.DenialRoleSeller)
		require.NoError(t, err)
		require.NoError(t, repos.Denials().Create(ctx, rule))

		cl1, err := repos.Clients().FindByCode(ctx, "CL1")
		require.NoError(t, err)
		manual, err := partner.NewProductGroupDenial(cl1.ID, "G_MANUAL", partner.DenialRoleAdmin)
		require.NoError(t, err)
		require.NoError(t, repos.Denials().Create(ctx, manual))

		remote.set("/articulos", `[{"codigo":"A1","descripcion":"Aceite 1L","grupo":"G1","stock_actual":"10","fecha_inclusion":"2024-01-15"}]`)
		remote.set("/precios", `[{"codigo_articulo":"A1","precio":"105","tipo_precio":"1"}]`)
		remote.set("/clientes", `[{"codigo":"CL1","nombre":"Acme","vendedor":"V2","calle":"Av. Bolivar","numero":"12","ciudad":"Valencia"}]`)

		report, err := engine.RunFull(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), report.Products.Deleted)
		assert.Equal(t, 1, report.Prices.Updated)
		assert.Equal(t, 1, report.Prices.SnapshotsChanged)
		assert.Equal(t, int64(1), report.Clients.RulesInherited)

		snap, err := repos.PriceSnapshots().FindByProductCode(ctx, "A1")
		require.NoError(t, err)
		assert.True(t, snap.Price.Equal(decimal.NewFromInt(105)))

		groups, err := repos.Denials().FindGroupsByUser(ctx, cl1.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"G_MANUAL", "G_V2"}, groups)

		report, err = engine.RunFull(ctx)
		require.NoError(t, err)
		assert.Zero(t, report.Clients.RulesInherited, "existing rules are not duplicated")
	})

	recent, err := runs.FindRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 4)
	for _, run := range recent {
		assert.Equal(t, integration.SyncStatusCompleted, run.Status)
		assert.NotEmpty(t, run.Stats)
	}
}

func TestMigrations_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)

	testDB.Migrate(func(m *migration.Migrator) error {
		status, err := m.Status()
		require.NoError(t, err)
		assert.False(t, status.Dirty)
		assert.Empty(t, status.Pending)
		assert.NotZero(t, status.Version)
		return nil
	})

	testDB.Migrate(func(m *migration.Migrator) error { return m.Down() })

	var tables int64
	require.NoError(t, testDB.DB.Raw(`
		SELECT count(*) FROM pg_tables
		WHERE schemaname = 'public' AND tablename != 'schema_migrations'
	`).Scan(&tables).Error)
	assert.Zero(t, tables)

	testDB.Migrate(func(m *migration.Migrator) error { return m.Up() })

	require.NoError(t, testDB.DB.Raw(`
		SELECT count(*) FROM pg_tables
		WHERE schemaname = 'public' AND tablename != 'schema_migrations'
	`).Scan(&tables).Error)
	assert.NotZero(t, tables)
}
