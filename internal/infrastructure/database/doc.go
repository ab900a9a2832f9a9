// Package database provides the SQLite connection and migration runner
// used by the pairing history log.
//
// SQLite is opened with WAL mode and a busy timeout, and the connection
// pool is limited to a single connection to match SQLite's single-writer
// model. Migrations are embedded into the binary by the migrations
// package and applied on startup, each in its own transaction.
//
// # Usage
//
//	db, err := database.Open(database.Config{
//	    Path:        cfg.Database.Path,
//	    WALMode:     cfg.Database.WALMode,
//	    BusyTimeout: cfg.Database.BusyTimeout,
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
