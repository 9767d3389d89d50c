package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/mtrans/internal/model"
	"github.com/roach88/mtrans/internal/zone"
)

// SchemaInfo summarizes one row of the schemas table.
type SchemaInfo struct {
	Name    string      `json:"name"`
	Status  zone.Status `json:"status"`
	Fields  int         `json:"fields"`
	Message string      `json:"message,omitempty"`
}

// PutSchema stores def as the present schema of the table def.Name,
// replacing any earlier row for that table.
func (c *Catalog) PutSchema(ctx context.Context, def *model.StructDef) error {
	if def == nil || def.Name == "" {
		return &Error{Op: "put schema", Err: errors.New("schema has no name")}
	}
	data, err := marshalStruct(def)
	if err != nil {
		return &Error{Op: "put schema", Key: def.Name, Err: err}
	}
	return c.upsertSchema(ctx, "put schema", def.Name, zone.StatusPresent, &data, "")
}

// MarkSchemaError records that the schema of name could not be read.
func (c *Catalog) MarkSchemaError(ctx context.Context, name, message string) error {
	return c.upsertSchema(ctx, "mark schema error", name, zone.StatusError, nil, message)
}

// MarkSchemaPending records that the schema of name is still being read.
func (c *Catalog) MarkSchemaPending(ctx context.Context, name string) error {
	return c.upsertSchema(ctx, "mark schema pending", name, zone.StatusPending, nil, "")
}

func (c *Catalog) upsertSchema(ctx context.Context, op, name string, status zone.Status, data *string, message string) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO schemas (name, status, struct_json, message, seq)
		VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM schemas))
		ON CONFLICT(name) DO UPDATE SET
			status = excluded.status,
			struct_json = excluded.struct_json,
			message = excluded.message
	`, name, string(status), data, message)
	if err != nil {
		return &Error{Op: op, Key: name, Err: err}
	}
	return nil
}

// Schema looks up the schema of a table. A table with no row is returned
// as an entry with an empty status and no error.
func (c *Catalog) Schema(ctx context.Context, name string) (zone.Entry[*model.StructDef], error) {
	var status, message string
	var data sql.NullString
	err := c.db.QueryRowContext(ctx, `
		SELECT status, struct_json, message FROM schemas WHERE name = ?
	`, name).Scan(&status, &data, &message)
	if errors.Is(err, sql.ErrNoRows) {
		return zone.Entry[*model.StructDef]{}, nil
	}
	if err != nil {
		return zone.Entry[*model.StructDef]{}, &Error{Op: "read schema", Key: name, Err: err}
	}

	switch zone.Status(status) {
	case zone.StatusPresent:
		def, err := unmarshalStruct(data.String)
		if err != nil {
			return zone.Entry[*model.StructDef]{}, &Error{Op: "read schema", Key: name, Err: err}
		}
		return zone.Present(def), nil
	case zone.StatusError:
		return zone.Failed[*model.StructDef](message), nil
	default:
		return zone.Pending[*model.StructDef](), nil
	}
}

// ListSchemas returns every schema row ordered by name.
// Returns an empty slice (not nil) if the catalog has none.
func (c *Catalog) ListSchemas(ctx context.Context) ([]SchemaInfo, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT name, status, struct_json, message
		FROM schemas
		ORDER BY name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query schemas: %w", err)
	}
	defer rows.Close()

	infos := []SchemaInfo{}
	for rows.Next() {
		var info SchemaInfo
		var status string
		var data sql.NullString
		if err := rows.Scan(&info.Name, &status, &data, &info.Message); err != nil {
			return nil, fmt.Errorf("scan schema: %w", err)
		}
		info.Status = zone.Status(status)
		if data.Valid {
			def, err := unmarshalStruct(data.String)
			if err != nil {
				return nil, &Error{Op: "list schemas", Key: info.Name, Err: err}
			}
			info.Fields = len(def.Fields)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schemas: %w", err)
	}
	return infos, nil
}
