package interfaces

// -----------------------------------------------------------------------------
// IWatchlistStore persists watch-list membership (never tick history).
// -----------------------------------------------------------------------------

type IWatchlistStore interface {

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// LoadSymbols returns the stored symbols in insertion order.
	LoadSymbols() ([]string, error)

	// -----------------------------------------------------------------------------

	// AddSymbol stores a symbol; storing an existing one is a no-op.
	AddSymbol(symbol string) error

	// -----------------------------------------------------------------------------

	// RemoveSymbol deletes a symbol; removing a missing one is a no-op.
	RemoveSymbol(symbol string) error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
