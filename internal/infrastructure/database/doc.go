// Package database opens the service's SQLite database and applies its
// schema migrations.
//
// The database holds the masquerade history journal. Migrations are plain
// SQL files named YYYYMMDD_HHMMSS_description.up.sql, embedded into the
// binary by the top-level migrations package and applied in version order,
// each in its own transaction.
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
