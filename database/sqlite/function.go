package sqlite

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/runbookhq/core/cache"
	"github.com/runbookhq/core/database"
	"github.com/runbookhq/core/model"
)

type scanner interface {
	Scan(dest ...any) error
}

func (sl *SQLite) SaveFunction(fn model.Function) (model.Function, error) {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	tx, err := sl.DB.Begin()
	if err != nil {
		return fn, err
	}
	defer tx.Rollback()

	now := time.Now()

	tags, err := json.Marshal(fn.Tags)
	if err != nil {
		return fn, err
	}

	var exists int
	row := tx.QueryRow(`SELECT COUNT(*) FROM rb_functions WHERE name = $1`, fn.Name)
	if err := row.Scan(&exists); err != nil {
		return fn, err
	}

	if exists == 0 {
		var count int
		row := tx.QueryRow(`SELECT COUNT(*) FROM rb_functions`)
		if err := row.Scan(&count); err != nil {
			return fn, err
		}

		if count >= sl.limit {
			return fn, database.ErrQuotaExceeded
		}

		qry := `
			INSERT INTO rb_functions(name, code, description, tags, category, version, created_at, updated_at, usage_count)
			VALUES($1, $2, $3, $4, $5, 1, $6, $7, 0);
		`
		if _, err := tx.Exec(qry, fn.Name, fn.Code, fn.Description, string(tags), fn.Category, now, now); err != nil {
			return fn, err
		}
	} else {
		qry := `
			UPDATE rb_functions SET
				code = $2,
				description = $3,
				tags = $4,
				category = $5,
				version = version + 1,
				updated_at = $6
			WHERE name = $1
		`
		if _, err := tx.Exec(qry, fn.Name, fn.Code, fn.Description, string(tags), fn.Category, now); err != nil {
			return fn, err
		}
	}

	if err := tx.Commit(); err != nil {
		return fn, err
	}

	typ := cache.EventFunctionCreated
	if exists > 0 {
		typ = cache.EventFunctionUpdated
	}
	sl.publish(typ, fn.Name)

	return sl.getFunction(fn.Name)
}

func (sl *SQLite) GetFunction(name string) (model.Function, error) {
	return sl.getFunction(name)
}

func (sl *SQLite) getFunction(name string) (fn model.Function, err error) {
	qry := `
		SELECT name, code, description, tags, category, version, created_at, updated_at, usage_count, last_used_at
		FROM rb_functions
		WHERE name = $1
	`

	row := sl.DB.QueryRow(qry, name)

	err = scanFunction(row, &fn)
	if err == sql.ErrNoRows {
		err = database.ErrFunctionNotFound
	}
	return
}

func (sl *SQLite) ListFunctions(category string, tags []string) (results []model.Function, err error) {
	qry := `
		SELECT name, code, description, tags, category, version, created_at, updated_at, usage_count, last_used_at
		FROM rb_functions
	`

	var args []any
	if category != "" {
		qry += ` WHERE category = $1`
		args = append(args, category)
	}

	qry += ` ORDER BY rowid`

	rows, err := sl.DB.Query(qry, args...)
	if err != nil {
		return
	}
	defer rows.Close()

	for rows.Next() {
		var fn model.Function
		if err = scanFunction(rows, &fn); err != nil {
			return
		}

		if !fn.HasTag(tags) {
			continue
		}

		results = append(results, fn)
	}

	err = rows.Err()
	return
}

func (sl *SQLite) DeleteFunction(name string) error {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	res, err := sl.DB.Exec(`DELETE FROM rb_functions WHERE name = $1`, name)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	} else if n == 0 {
		return database.ErrFunctionNotFound
	}

	sl.publish(cache.EventFunctionDeleted, name)
	return nil
}

func (sl *SQLite) TouchFunction(name string) error {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	qry := `
		UPDATE rb_functions SET
			usage_count = usage_count + 1,
			last_used_at = $2
		WHERE name = $1
	`

	res, err := sl.DB.Exec(qry, name, time.Now())
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	} else if n == 0 {
		return database.ErrFunctionNotFound
	}

	return nil
}

func (sl *SQLite) CountFunctions() (count int, err error) {
	row := sl.DB.QueryRow(`SELECT COUNT(*) FROM rb_functions`)
	err = row.Scan(&count)
	return
}

func (sl *SQLite) publish(typ, name string) {
	if sl.PublishFunction == nil {
		return
	}

	sl.PublishFunction(cache.FunctionEvent{
		ID:   sl.NewID(),
		Type: typ,
		Name: name,
		At:   time.Now(),
	})
}

func scanFunction(row scanner, fn *model.Function) error {
	var tags string
	var lastUsed sql.NullTime

	err := row.Scan(
		&fn.Name,
		&fn.Code,
		&fn.Description,
		&tags,
		&fn.Category,
		&fn.Version,
		&fn.CreatedAt,
		&fn.UpdatedAt,
		&fn.UsageCount,
		&lastUsed,
	)
	if err != nil {
		return err
	}

	if lastUsed.Valid {
		fn.LastUsedAt = lastUsed.Time
	}

	return json.Unmarshal([]byte(tags), &fn.Tags)
}
