package interfaces

import "crypto-tracker/src/models"

// -----------------------------------------------------------------------------
// ITrackerController is the mutation and read surface the display layer uses.
// -----------------------------------------------------------------------------

type ITrackerController interface {
	AddAsset(symbol string) bool
	RemoveAsset(symbol string) bool
	Variance(symbol string) float64
	Asset(symbol string) (models.MAssetView, bool)
	Snapshot() *models.MTrackerState

	// Changes is signalled after every state mutation. Signals coalesce.
	Changes() <-chan struct{}
}
