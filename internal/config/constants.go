package config

const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./campuslib.db"

	// DefaultMediaDir holds uploaded covers and digital resource files
	DefaultMediaDir = "./media"

	// DefaultLoanDays is how long a borrowed book may be kept before fines accrue
	DefaultLoanDays = 5

	// DefaultFinePerDay is charged for every full day a loan is overdue
	DefaultFinePerDay = 10
)
