package postgresql

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/runbookhq/core/cache"
	"github.com/runbookhq/core/database"
	"github.com/runbookhq/core/model"
)

type scanner interface {
	Scan(dest ...any) error
}

func (pg *PostgreSQL) SaveFunction(fn model.Function) (model.Function, error) {
	tx, err := pg.DB.Begin()
	if err != nil {
		return fn, err
	}
	defer tx.Rollback()

	// serializes concurrent saves so the quota check stays valid until commit
	if _, err := tx.Exec(`LOCK TABLE rb_functions IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return fn, err
	}

	now := time.Now()

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

		if count >= pg.limit {
			return fn, database.ErrQuotaExceeded
		}

		qry := `
			INSERT INTO rb_functions(name, code, description, tags, category, version, created_at, updated_at, usage_count)
			VALUES($1, $2, $3, $4, $5, 1, $6, $7, 0);
		`
		if _, err := tx.Exec(qry, fn.Name, fn.Code, fn.Description, pq.Array(fn.Tags), fn.Category, now, now); err != nil {
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
		if _, err := tx.Exec(qry, fn.Name, fn.Code, fn.Description, pq.Array(fn.Tags), fn.Category, now); err != nil {
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
	pg.publish(typ, fn.Name)

	return pg.GetFunction(fn.Name)
}

func (pg *PostgreSQL) GetFunction(name string) (fn model.Function, err error) {
	qry := `
		SELECT name, code, description, tags, category, version, created_at, updated_at, usage_count, last_used_at
		FROM rb_functions
		WHERE name = $1
	`

	row := pg.DB.QueryRow(qry, name)

	err = scanFunction(row, &fn)
	if err == sql.ErrNoRows {
		err = database.ErrFunctionNotFound
	}
	return
}

func (pg *PostgreSQL) ListFunctions(category string, tags []string) (results []model.Function, err error) {
	qry := `
		SELECT name, code, description, tags, category, version, created_at, updated_at, usage_count, last_used_at
		FROM rb_functions
	`

	var args []any
	if category != "" {
		qry += ` WHERE category = $1`
		args = append(args, category)
	}

	qry += ` ORDER BY pos`

	rows, err := pg.DB.Query(qry, args...)
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

func (pg *PostgreSQL) DeleteFunction(name string) error {
	res, err := pg.DB.Exec(`DELETE FROM rb_functions WHERE name = $1`, name)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	} else if n == 0 {
		return database.ErrFunctionNotFound
	}

	pg.publish(cache.EventFunctionDeleted, name)
	return nil
}

func (pg *PostgreSQL) TouchFunction(name string) error {
	qry := `
		UPDATE rb_functions SET
			usage_count = usage_count + 1,
			last_used_at = $2
		WHERE name = $1
	`

	res, err := pg.DB.Exec(qry, name, time.Now())
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

func (pg *PostgreSQL) CountFunctions() (count int, err error) {
	row := pg.DB.QueryRow(`SELECT COUNT(*) FROM rb_functions`)
	err = row.Scan(&count)
	return
}

func (pg *PostgreSQL) publish(typ, name string) {
	if pg.PublishFunction == nil {
		return
	}

	pg.PublishFunction(cache.FunctionEvent{
		ID:   pg.NewID(),
		Type: typ,
		Name: name,
		At:   time.Now(),
	})
}

func scanFunction(row scanner, fn *model.Function) error {
	var lastUsed sql.NullTime

	err := row.Scan(
		&fn.Name,
		&fn.Code,
		&fn.Description,
		pq.Array(&fn.Tags),
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

	return nil
}
