package catalog

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mtrans/internal/model"
	"github.com/roach88/mtrans/internal/zone"
)

// createTestCatalog creates a new catalog in a temp dir for testing.
func createTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func flights() *model.StructDef {
	return &model.StructDef{
		Name:               "flights",
		StructSource:       model.StructSource{Type: model.SourceTable},
		StructRelationship: model.StructRelationship{Type: model.RelationshipBaseTable},
		Fields: []model.FieldDef{
			{Name: "id", Type: model.TypeNumber},
			{Name: "carrier", Type: model.TypeString},
		},
		PrimaryKey: "id",
	}
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer c.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	for i := 0; i < 3; i++ {
		c, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		c.Close()
	}
}

func TestOpen_Pragmas(t *testing.T) {
	c := createTestCatalog(t)
	for name, want := range map[string]string{
		"journal_mode": "wal",
		"foreign_keys": "1",
		"busy_timeout": "5000",
		"user_version": "1",
	} {
		if err := c.verifyPragma(name, want); err != nil {
			t.Error(err)
		}
	}
}

func TestOpen_MigratesV0Database(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(schemaSQL)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO models (url, status, model_json, seq) VALUES ('file:///a', 'pending', NULL, 1)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	c, err := Open(path)
	require.NoError(t, err)
	defer c.Close()

	infos, err := c.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, zone.StatusPending, infos[0].Status)
	assert.Empty(t, infos[0].Hash)
}

func TestSchemaRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := createTestCatalog(t)

	require.NoError(t, c.PutSchema(ctx, flights()))
	entry, err := c.Schema(ctx, "flights")
	require.NoError(t, err)
	assert.Equal(t, zone.StatusPresent, entry.Status)
	assert.Equal(t, flights(), entry.Value)
}

func TestSchemaStatuses(t *testing.T) {
	ctx := context.Background()
	c := createTestCatalog(t)

	require.NoError(t, c.MarkSchemaError(ctx, "broken", "permission denied"))
	require.NoError(t, c.MarkSchemaPending(ctx, "slow"))

	entry, err := c.Schema(ctx, "broken")
	require.NoError(t, err)
	assert.Equal(t, zone.Failed[*model.StructDef]("permission denied"), entry)

	entry, err = c.Schema(ctx, "slow")
	require.NoError(t, err)
	assert.Equal(t, zone.StatusPending, entry.Status)

	entry, err = c.Schema(ctx, "absent")
	require.NoError(t, err)
	assert.Empty(t, entry.Status)
}

func TestSchemaReplacedByLaterWrite(t *testing.T) {
	ctx := context.Background()
	c := createTestCatalog(t)

	require.NoError(t, c.MarkSchemaPending(ctx, "flights"))
	require.NoError(t, c.PutSchema(ctx, flights()))

	entry, err := c.Schema(ctx, "flights")
	require.NoError(t, err)
	assert.Equal(t, zone.StatusPresent, entry.Status)
}

func TestPutSchemaRequiresName(t *testing.T) {
	err := createTestCatalog(t).PutSchema(context.Background(), &model.StructDef{})
	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "put schema", cerr.Op)
}

func TestListSchemas(t *testing.T) {
	ctx := context.Background()
	c := createTestCatalog(t)

	infos, err := c.ListSchemas(ctx)
	require.NoError(t, err)
	assert.NotNil(t, infos)
	assert.Empty(t, infos)

	require.NoError(t, c.PutSchema(ctx, flights()))
	require.NoError(t, c.MarkSchemaError(ctx, "broken", "boom"))

	infos, err = c.ListSchemas(ctx)
	require.NoError(t, err)
	assert.Equal(t, []SchemaInfo{
		{Name: "broken", Status: zone.StatusError, Message: "boom"},
		{Name: "flights", Status: zone.StatusPresent, Fields: 2},
	}, infos)
}

func libModel() *model.ModelDef {
	m := model.NewModelDef("lib")
	m.Structs["a"] = flights()
	m.Structs["b"] = flights()
	m.Exports = []string{"a"}
	return m
}

func TestModelRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := createTestCatalog(t)

	hash, err := c.PutModel(ctx, "file:///lib.yaml", libModel())
	require.NoError(t, err)
	want, err := model.ModelHash(libModel())
	require.NoError(t, err)
	assert.Equal(t, want, hash)

	entry, err := c.Model(ctx, "file:///lib.yaml")
	require.NoError(t, err)
	require.Equal(t, zone.StatusPresent, entry.Status)
	assert.Equal(t, libModel(), entry.Value)

	exports, err := c.Exports(ctx, "file:///lib.yaml")
	require.NoError(t, err)
	assert.Equal(t, map[string]*model.StructDef{"a": flights()}, exports)
}

func TestModelStatuses(t *testing.T) {
	ctx := context.Background()
	c := createTestCatalog(t)

	require.NoError(t, c.MarkModelError(ctx, "file:///bad.yaml", "syntax"))
	require.NoError(t, c.MarkModelPending(ctx, "file:///slow.yaml"))

	entry, err := c.Model(ctx, "file:///bad.yaml")
	require.NoError(t, err)
	assert.Equal(t, zone.Failed[*model.ModelDef]("syntax"), entry)

	entry, err = c.Model(ctx, "file:///slow.yaml")
	require.NoError(t, err)
	assert.Equal(t, zone.StatusPending, entry.Status)

	_, err = c.Exports(ctx, "file:///slow.yaml")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.Exports(ctx, "file:///missing.yaml")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListModels(t *testing.T) {
	ctx := context.Background()
	c := createTestCatalog(t)

	_, err := c.PutModel(ctx, "file:///b.yaml", libModel())
	require.NoError(t, err)
	require.NoError(t, c.MarkModelPending(ctx, "file:///a.yaml"))

	infos, err := c.ListModels(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "file:///a.yaml", infos[0].URL)
	assert.Empty(t, infos[0].Exports)
	assert.Equal(t, "file:///b.yaml", infos[1].URL)
	assert.Equal(t, []string{"a"}, infos[1].Exports)
	assert.Len(t, infos[1].Hash, 64)

	// A model that later fails loses its export index.
	require.NoError(t, c.MarkModelError(ctx, "file:///b.yaml", "boom"))
	infos, err = c.ListModels(ctx)
	require.NoError(t, err)
	assert.Empty(t, infos[1].Exports)
	assert.Empty(t, infos[1].Hash)
}

func TestZones(t *testing.T) {
	ctx := context.Background()
	c := createTestCatalog(t)
	require.NoError(t, c.PutSchema(ctx, flights()))
	_, err := c.PutModel(ctx, "file:///lib.yaml", libModel())
	require.NoError(t, err)

	schemas := c.SchemaZone(ctx)
	assert.Equal(t, zone.StatusPresent, schemas.Lookup("flights").Status)
	assert.Empty(t, schemas.Lookup("nope").Status)

	imports := c.ImportZone(ctx)
	assert.Equal(t, []string{"a"}, imports.Lookup("file:///lib.yaml").Value.Exports)

	require.NoError(t, c.Close())
	entry := schemas.Lookup("flights")
	assert.Equal(t, zone.StatusError, entry.Status, "database failures surface as error entries")
	assert.Contains(t, entry.Message, "read schema")
}
