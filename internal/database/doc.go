// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup (sqlite or postgres), migrations, room seeding
//	├── users/           # Accounts and student profiles
//	├── books/           # Catalog
//	├── lending/         # Book requests and loans
//	├── rooms/           # Study rooms and bookings
//	├── resources/       # Digital resources and the engagement log
//	├── settings/        # Key/value settings (lending policy)
//	└── audit/           # Audit trail
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase(cfg.Database)
//
//	booksRepo := books.NewRepository(db.DB)
//	lendingRepo := lending.NewRepository(db.DB)
//
//	book, err := booksRepo.GetBookByID(ctx, 12)
//
// # Errors
//
// Connections are opened with TranslateError, so unique index violations
// surface as gorm.ErrDuplicatedKey regardless of driver. Repositories return
// gorm errors unchanged; services translate them into libraryerr kinds.
//
// # Concurrency
//
// Invariants that span requests live in the schema: the unique index on
// open book requests, the CHECK on books.available_copies, and the partial
// unique index on active room bookings. Repository methods that read then
// write run inside a transaction and lock the rows they read
// (clause.Locking, ignored by sqlite whose write transactions are already
// exclusive thanks to _txlock=immediate).
package database
