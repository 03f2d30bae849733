package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/myrjola/misttheater/internal/errors"
	"github.com/myrjola/misttheater/internal/random"
)

// schemaObject is a row of sqlite_schema.
type schemaObject struct {
	Type  string `db:"type"`
	Name  string `db:"name"`
	Table string `db:"tbl_name"`
	SQL   string `db:"sql"`
}

type schemaObjects map[string]schemaObject

func (objs schemaObjects) ofType(typ string) []schemaObject {
	var res []schemaObject
	for _, obj := range objs {
		if obj.Type == typ {
			res = append(res, obj)
		}
	}
	// Map iteration order is random; keep migrations reproducible.
	slices.SortFunc(res, func(a, b schemaObject) int { return strings.Compare(a.Name, b.Name) })
	return res
}

const schemaQuery = `SELECT type, name, tbl_name, sql
FROM sqlite_schema
WHERE sql IS NOT NULL AND name NOT LIKE 'sqlite_%'`

func readSchema(ctx context.Context, q sqlx.QueryerContext) (schemaObjects, error) {
	var rows []schemaObject
	if err := sqlx.SelectContext(ctx, q, &rows, schemaQuery); err != nil {
		return nil, errors.Wrap(err, "select schema")
	}
	objs := make(schemaObjects, len(rows))
	for _, row := range rows {
		objs[row.Type+"/"+row.Name] = row
	}
	return objs, nil
}

func tableColumns(ctx context.Context, q sqlx.QueryerContext, table string) ([]string, error) {
	var columns []string
	if err := sqlx.SelectContext(ctx, q, &columns, "SELECT name FROM PRAGMA_TABLE_INFO(?)", table); err != nil {
		return nil, errors.Wrap(err, "select columns", slog.String("table", table))
	}
	return columns, nil
}

// targetSchema materialises schema in a private in-memory database and returns its objects and table columns.
func targetSchema(ctx context.Context, schema string) (schemaObjects, map[string][]string, error) {
	randomID, err := random.Letters(20) //nolint:mnd // long enough to be unique
	if err != nil {
		return nil, nil, errors.Wrap(err, "generate random ID")
	}
	target, err := sqlx.Open("sqlite3", fmt.Sprintf("file:%s?mode=memory", randomID))
	if err != nil {
		return nil, nil, errors.Wrap(err, "open schema target database")
	}
	defer target.Close()
	// Every connection to a private in-memory database sees its own copy.
	target.SetMaxOpenConns(1)

	if strings.TrimSpace(schema) != "" {
		if _, err = target.ExecContext(ctx, schema); err != nil {
			return nil, nil, errors.Wrap(err, "create schema target")
		}
	}
	objs, err := readSchema(ctx, target)
	if err != nil {
		return nil, nil, err
	}
	columns := make(map[string][]string)
	for _, table := range objs.ofType("table") {
		if columns[table.Name], err = tableColumns(ctx, target, table.Name); err != nil {
			return nil, nil, err
		}
	}
	return objs, columns, nil
}

// migrateTo ensures that the db schema matches the target schema.
//
// We employ a very simple declarative schema migration that:
//
// 1. Drops indexes and triggers that changed or disappeared,
// 2. Deletes deleted tables,
// 3. Creates new tables,
// 4. Migrates changed tables using 12-step schema migration https://www.sqlite.org/lang_altertable.html#otheralter,
// 5. Creates missing indexes and triggers.
//
// Inspired by https://david.rothlis.net/declarative-schema-migration-for-sqlite/
func (db *Database) migrateTo(ctx context.Context, schema string) (err error) {
	target, targetColumns, err := targetSchema(ctx, schema)
	if err != nil {
		return err
	}

	// Pragmas and transactions must run on the same connection.
	conn, err := db.ReadWrite.Connx(ctx)
	if err != nil {
		return errors.Wrap(err, "acquire connection")
	}
	defer conn.Close()

	// Step 1: Disable foreign key validation temporarily.
	if _, err = conn.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return errors.Wrap(err, "disable foreign key validation")
	}
	// Step 12: Re-enable foreign key validation.
	defer func() {
		if _, fkErr := conn.ExecContext(context.WithoutCancel(ctx), "PRAGMA foreign_keys = ON"); fkErr != nil {
			err = errors.Join(err, errors.Wrap(fkErr, "re-enable foreign key validation"))
		}
	}()

	// Step 2: Start transaction.
	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "start transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err = db.migrateObjects(ctx, tx, target, targetColumns); err != nil {
		return err
	}

	// Step 10: Check foreign key constraints.
	var violations []string
	if err = tx.SelectContext(ctx, &violations, `SELECT "table" FROM pragma_foreign_key_check`); err != nil {
		return errors.Wrap(err, "foreign key check")
	}
	if len(violations) > 0 {
		return errors.New("foreign key violations after migration", slog.Any("tables", violations))
	}

	// Step 11: Commit transaction from step 2.
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}

func (db *Database) migrateObjects(
	ctx context.Context,
	tx *sqlx.Tx,
	target schemaObjects,
	targetColumns map[string][]string,
) error {
	current, err := readSchema(ctx, tx)
	if err != nil {
		return err
	}

	changedTables := make(map[string]bool)
	for key, obj := range current {
		if obj.Type != "table" {
			continue
		}
		if t, ok := target[key]; ok && t.SQL != obj.SQL {
			changedTables[obj.Name] = true
		}
	}

	// An index or trigger survives only if it is identical and its table is not rebuilt.
	unchanged := func(obj schemaObject) bool {
		t, ok := target[obj.Type+"/"+obj.Name]
		return ok && t.SQL == obj.SQL && !changedTables[obj.Table]
	}

	for _, typ := range []string{"trigger", "index"} {
		for _, obj := range current.ofType(typ) {
			if unchanged(obj) {
				continue
			}
			db.logger.LogAttrs(ctx, slog.LevelInfo, "dropping "+typ, slog.String("name", obj.Name))
			if _, err = tx.ExecContext(ctx, fmt.Sprintf("DROP %s IF EXISTS %q", strings.ToUpper(typ), obj.Name)); err != nil {
				return errors.Wrap(err, "drop "+typ, slog.String("name", obj.Name))
			}
		}
	}

	// Step 3: Drop deleted tables and create new ones.
	for _, obj := range current.ofType("table") {
		if _, ok := target["table/"+obj.Name]; ok {
			continue
		}
		db.logger.LogAttrs(ctx, slog.LevelInfo, "dropping table", slog.String("table", obj.Name))
		if _, err = tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE %q", obj.Name)); err != nil {
			return errors.Wrap(err, "drop table", slog.String("table", obj.Name))
		}
	}
	for _, obj := range target.ofType("table") {
		if _, ok := current["table/"+obj.Name]; ok {
			continue
		}
		db.logger.LogAttrs(ctx, slog.LevelInfo, "creating table", slog.String("query", obj.SQL))
		if _, err = tx.ExecContext(ctx, obj.SQL); err != nil {
			return errors.Wrap(err, "create table", slog.String("table", obj.Name))
		}
	}

	for _, obj := range target.ofType("table") {
		if !changedTables[obj.Name] {
			continue
		}
		if err = db.rebuildTable(ctx, tx, obj, targetColumns[obj.Name]); err != nil {
			return err
		}
	}

	// Step 8: Recreate indexes and triggers.
	for _, typ := range []string{"index", "trigger"} {
		for _, obj := range target.ofType(typ) {
			if c, ok := current[obj.Type+"/"+obj.Name]; ok && unchanged(c) {
				continue
			}
			db.logger.LogAttrs(ctx, slog.LevelInfo, "creating "+typ, slog.String("query", obj.SQL))
			if _, err = tx.ExecContext(ctx, obj.SQL); err != nil {
				return errors.Wrap(err, "create "+typ, slog.String("name", obj.Name))
			}
		}
	}
	return nil
}

// rebuildTable runs steps 4-7 of the 12-step migration for a table whose definition changed.
func (db *Database) rebuildTable(ctx context.Context, tx *sqlx.Tx, table schemaObject, newColumns []string) error {
	db.logger.LogAttrs(ctx, slog.LevelInfo, "migrating table",
		slog.String("table", table.Name),
		slog.String("new_sql", table.SQL))

	currentColumns, err := tableColumns(ctx, tx, table.Name)
	if err != nil {
		return err
	}

	// Step 4: Create tables according to new schema on temporary names.
	tempName := table.Name + "_migration_temp"
	tempNameSQL := strings.Replace(table.SQL, table.Name, tempName, 1)
	if _, err = tx.ExecContext(ctx, tempNameSQL); err != nil {
		return errors.Wrap(err, "create new table to temporary name", slog.String("query", tempNameSQL))
	}

	// Step 5: Copy common columns between tables.
	// We wrap the column names in double quotes to handle column names that are SQLite keywords.
	var common []string
	for _, column := range currentColumns {
		if slices.Contains(newColumns, column) {
			common = append(common, fmt.Sprintf("%q", column))
		}
	}
	if len(common) > 0 {
		columns := strings.Join(common, ", ")
		copySQL := fmt.Sprintf("INSERT INTO %q (%s) SELECT %s FROM %q;", //nolint: gosec // we trust the query.
			tempName, columns, columns, table.Name)
		db.logger.LogAttrs(ctx, slog.LevelInfo, "copying data", slog.String("query", copySQL))
		if _, err = tx.ExecContext(ctx, copySQL); err != nil {
			return errors.Wrap(err, "copy data")
		}
	}

	// Step 6: Drop the old table.
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE %q;", table.Name)); err != nil {
		return errors.Wrap(err, "drop old table")
	}

	// Step 7: Rename new table to old table's name.
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %q RENAME TO %q;", tempName, table.Name)); err != nil {
		return errors.Wrap(err, "rename new table")
	}
	return nil
}
