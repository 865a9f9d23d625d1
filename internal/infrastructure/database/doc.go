// Package database provides SQLite connectivity for the Gray Logic HMI.
//
// The database mirrors alarm transitions for history queries and holds the
// audit trail of operator writes. The daily CSV event log remains the record
// the HMI screens read; SQLite is the queryable copy.
//
// This package manages:
//   - Connection setup with WAL mode and a busy timeout
//   - Schema migrations from an fs.FS (normally the embedded migrations package)
//   - Retention pruning helpers shared by repositories
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS, "."); err != nil {
//	    return err
//	}
//
// Migrations are additive: new columns must be NULLABLE or carry a DEFAULT,
// and every .up.sql has a matching .down.sql.
package database
