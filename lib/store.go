package lib

/* This file contains persistence module interfaces that are used throughout the app */

// ParamsChange is a set of sortition parameters and the period from which they apply
type ParamsChange struct {
	Period uint64          `json:"period"`
	Params SortitionParams `json:"params"`
}

// ParamsStoreI defines the persistence of sortition parameter history and DAG efficiency samples
type ParamsStoreI interface {
	SetParamsChange(change ParamsChange) ErrorI               // save the params in effect from change.Period
	GetParamsChange(period uint64) (*ParamsChange, ErrorI)    // the latest change at or before period; nil if none
	LatestParamsChange() (*ParamsChange, ErrorI)              // the most recent change; nil if none
	SetEfficiency(period uint64, efficiency uint16) ErrorI    // save an efficiency sample for a period
	GetEfficiencies(limit int) (samples []uint16, err ErrorI) // the most recent samples, oldest first
	SetLastFinalized(period uint64) ErrorI                    // save the last period applied to the history
	LastFinalized() (period uint64, ok bool, err ErrorI)      // the last applied period; ok is false if none
	Close() ErrorI                                            // gracefully stop the database
}
