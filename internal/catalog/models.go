package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/mtrans/internal/model"
	"github.com/roach88/mtrans/internal/zone"
)

// ModelInfo summarizes one row of the models table.
type ModelInfo struct {
	URL     string      `json:"url"`
	Status  zone.Status `json:"status"`
	Hash    string      `json:"hash,omitempty"`
	Exports []string    `json:"exports"`
	Message string      `json:"message,omitempty"`
}

// PutModel stores m as the completed model of the document at url and
// returns its content hash. The export list is indexed so importers can
// list it without decoding the model.
func (c *Catalog) PutModel(ctx context.Context, url string, m *model.ModelDef) (string, error) {
	data, hash, err := marshalModel(m)
	if err != nil {
		return "", &Error{Op: "put model", Key: url, Err: err}
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return "", &Error{Op: "put model", Key: url, Err: err}
	}
	defer tx.Rollback()

	if err := upsertModel(ctx, tx, url, zone.StatusPresent, &data, hash, ""); err != nil {
		return "", &Error{Op: "put model", Key: url, Err: err}
	}
	for i, name := range m.Exports {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO model_exports (url, name, pos) VALUES (?, ?, ?)
		`, url, name, i); err != nil {
			return "", &Error{Op: "put model", Key: url, Err: fmt.Errorf("export %q: %w", name, err)}
		}
	}
	if err := tx.Commit(); err != nil {
		return "", &Error{Op: "put model", Key: url, Err: err}
	}
	return hash, nil
}

// MarkModelError records that the document at url failed to translate.
func (c *Catalog) MarkModelError(ctx context.Context, url, message string) error {
	return c.markModel(ctx, "mark model error", url, zone.StatusError, message)
}

// MarkModelPending records that the document at url is being translated.
func (c *Catalog) MarkModelPending(ctx context.Context, url string) error {
	return c.markModel(ctx, "mark model pending", url, zone.StatusPending, "")
}

func (c *Catalog) markModel(ctx context.Context, op, url string, status zone.Status, message string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return &Error{Op: op, Key: url, Err: err}
	}
	defer tx.Rollback()

	if err := upsertModel(ctx, tx, url, status, nil, "", message); err != nil {
		return &Error{Op: op, Key: url, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &Error{Op: op, Key: url, Err: err}
	}
	return nil
}

// upsertModel writes the model row and clears its export index.
func upsertModel(ctx context.Context, tx *sql.Tx, url string, status zone.Status, data *string, hash, message string) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO models (url, status, model_json, message, model_hash, seq)
		VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM models))
		ON CONFLICT(url) DO UPDATE SET
			status = excluded.status,
			model_json = excluded.model_json,
			message = excluded.message,
			model_hash = excluded.model_hash
	`, url, string(status), data, message, hash); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM model_exports WHERE url = ?`, url)
	return err
}

// Model looks up the completed model of the document at url. A URL with
// no row is returned as an entry with an empty status and no error.
func (c *Catalog) Model(ctx context.Context, url string) (zone.Entry[*model.ModelDef], error) {
	var status, message string
	var data sql.NullString
	err := c.db.QueryRowContext(ctx, `
		SELECT status, model_json, message FROM models WHERE url = ?
	`, url).Scan(&status, &data, &message)
	if errors.Is(err, sql.ErrNoRows) {
		return zone.Entry[*model.ModelDef]{}, nil
	}
	if err != nil {
		return zone.Entry[*model.ModelDef]{}, &Error{Op: "read model", Key: url, Err: err}
	}

	switch zone.Status(status) {
	case zone.StatusPresent:
		m, err := unmarshalModel(data.String)
		if err != nil {
			return zone.Entry[*model.ModelDef]{}, &Error{Op: "read model", Key: url, Err: err}
		}
		return zone.Present(m), nil
	case zone.StatusError:
		return zone.Failed[*model.ModelDef](message), nil
	default:
		return zone.Pending[*model.ModelDef](), nil
	}
}

// Exports returns the exported schemas of the completed model at url.
// Fails with ErrNotFound unless the model is present.
func (c *Catalog) Exports(ctx context.Context, url string) (map[string]*model.StructDef, error) {
	entry, err := c.Model(ctx, url)
	if err != nil {
		return nil, err
	}
	if entry.Status != zone.StatusPresent {
		return nil, &Error{Op: "read exports", Key: url, Err: ErrNotFound}
	}
	return entry.Value.ExportedStructs(), nil
}

// ListModels returns every model row ordered by URL, with the export names
// of completed models in declaration order.
func (c *Catalog) ListModels(ctx context.Context) ([]ModelInfo, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT url, status, model_hash, message
		FROM models
		ORDER BY url COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query models: %w", err)
	}
	infos := []ModelInfo{}
	for rows.Next() {
		var info ModelInfo
		var status string
		if err := rows.Scan(&info.URL, &status, &info.Hash, &info.Message); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan model: %w", err)
		}
		info.Status = zone.Status(status)
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate models: %w", err)
	}
	rows.Close()

	for i := range infos {
		names, err := c.exportNames(ctx, infos[i].URL)
		if err != nil {
			return nil, err
		}
		infos[i].Exports = names
	}
	return infos, nil
}

func (c *Catalog) exportNames(ctx context.Context, url string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT name FROM model_exports WHERE url = ? ORDER BY pos ASC
	`, url)
	if err != nil {
		return nil, fmt.Errorf("query exports: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exports: %w", err)
	}
	return names, nil
}
