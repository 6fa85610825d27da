package sortition

import (
	"math"
	"sync"

	"github.com/canopy-network/sortition/lib"
)

/*
	SORTITION PARAMETER ADJUSTMENT

	The DAG efficiency of a period is the share of transactions included in its DAG blocks that were unique, in basis
	points. Many proposers on the same level duplicate transactions and drive the efficiency down; few proposers leave
	the DAG thin.

	Every ComputationInterval periods an efficiency sample is recorded. Every ChangingInterval periods, once
	ChangesCountForAverage samples exist, their average is compared to the DagEfficiencyTargets band. Outside the band
	ThresholdUpper is rescaled by average/target: a lower ThresholdUpper makes more sortitions stale and so reduces
	the number of proposers. A single adjustment moves ThresholdUpper by at most MaxChangePercent.

	All arithmetic is integer so every node derives identical parameters.
*/

const (
	// EfficiencyScale is 100% in basis points
	EfficiencyScale = 10000
	// ThresholdUpperMin is the floor of an adjusted threshold upper
	ThresholdUpperMin = 80
)

// DagEfficiency() returns unique/total in basis points; ok is false for a period without transactions
func DagEfficiency(uniqueTxs, totalTxs uint64) (efficiency uint16, ok bool) {
	if totalTxs == 0 {
		return 0, false
	}
	uniqueTxs = min(uniqueTxs, totalTxs)
	return uint16(uniqueTxs * EfficiencyScale / totalTxs), true
}

// AdjustThresholdUpper() rescales the threshold upper by average/target, bounded per step and overall
func AdjustThresholdUpper(current, average, target, maxChangePercent, floor uint16) uint16 {
	if target == 0 {
		return current
	}
	proposed := uint64(current) * uint64(average) / uint64(target)
	// bound the relative change of a single step
	maxDelta := max(uint64(current)*uint64(maxChangePercent)/100, 1)
	lower, upper := uint64(0), uint64(current)+maxDelta
	if uint64(current) > maxDelta {
		lower = uint64(current) - maxDelta
	}
	proposed = min(max(proposed, lower), upper)
	// bound the absolute value
	return uint16(min(max(proposed, uint64(floor)), math.MaxUint16))
}

// ParamsManager tracks the sortition parameters in effect and adjusts them from the DAG efficiency
type ParamsManager struct {
	config  lib.SortitionConfig
	store   lib.ParamsStoreI
	current lib.ParamsChange
	// the last period applied, replays at or below it are ignored
	lastFinalized uint64
	hasFinalized  bool
	metrics       *lib.Metrics
	log           lib.LoggerI
	mu            sync.RWMutex
}

// NewParamsManager() loads the latest params change or seeds the history with the configured params
func NewParamsManager(config lib.SortitionConfig, store lib.ParamsStoreI, metrics *lib.Metrics, log lib.LoggerI) (*ParamsManager, lib.ErrorI) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	m := &ParamsManager{config: config, store: store, metrics: metrics, log: log.WithModule("params")}
	latest, err := store.LatestParamsChange()
	if err != nil {
		return nil, err
	}
	if latest == nil {
		latest = &lib.ParamsChange{Period: 0, Params: config.Params}
		if err = store.SetParamsChange(*latest); err != nil {
			return nil, err
		}
	}
	m.current = *latest
	if m.lastFinalized, m.hasFinalized, err = store.LastFinalized(); err != nil {
		return nil, err
	}
	m.metrics.UpdateParams(latest.Params.VRF.ThresholdUpper)
	m.log.Infof("Sortition params from period %d: threshold upper %d", latest.Period, latest.Params.VRF.ThresholdUpper)
	return m, nil
}

// Params() returns the most recent parameters
func (m *ParamsManager) Params() lib.SortitionParams {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Params
}

// Current() returns the most recent change
func (m *ParamsManager) Current() lib.ParamsChange {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// ParamsForPeriod() returns the parameters in effect at a period
func (m *ParamsManager) ParamsForPeriod(period uint64) (lib.SortitionParams, lib.ErrorI) {
	change, err := m.store.GetParamsChange(period)
	if err != nil {
		return lib.SortitionParams{}, err
	}
	if change == nil {
		return m.config.Params, nil
	}
	return change.Params, nil
}

// OnPeriodFinalized() records the efficiency of a finalized period and adjusts the parameters when due
// A change takes effect from the following period. A period at or below the last finalized one is ignored.
func (m *ParamsManager) OnPeriodFinalized(period, uniqueTxs, totalTxs uint64) (changed bool, err lib.ErrorI) {
	if m.config.ChangingInterval == 0 {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if (m.hasFinalized && period <= m.lastFinalized) || period < m.current.Period {
		m.log.Debugf("Period %d was already finalized", period)
		return false, nil
	}
	if changed, err = m.finalize(period, uniqueTxs, totalTxs); err != nil {
		return false, err
	}
	if err = m.store.SetLastFinalized(period); err != nil {
		return false, err
	}
	m.lastFinalized, m.hasFinalized = period, true
	return changed, nil
}

// finalize() samples the efficiency and applies an adjustment when due; the caller holds the lock
func (m *ParamsManager) finalize(period, uniqueTxs, totalTxs uint64) (changed bool, err lib.ErrorI) {
	// sample
	if period%m.config.ComputationInterval == 0 {
		if efficiency, ok := DagEfficiency(uniqueTxs, totalTxs); ok {
			if err = m.store.SetEfficiency(period, efficiency); err != nil {
				return false, err
			}
			m.metrics.UpdateEfficiency(efficiency)
		}
	}
	// adjust
	if period == 0 || period%m.config.ChangingInterval != 0 {
		return false, nil
	}
	samples, err := m.store.GetEfficiencies(int(m.config.ChangesCountForAverage))
	if err != nil {
		return false, err
	}
	if len(samples) < int(m.config.ChangesCountForAverage) {
		return false, nil
	}
	var sum uint64
	for _, s := range samples {
		sum += uint64(s)
	}
	average := uint16(sum / uint64(len(samples)))
	if average >= m.config.DagEfficiencyTargets[0] && average <= m.config.DagEfficiencyTargets[1] {
		return false, nil
	}
	params := m.current.Params
	floor := uint16(max(ThresholdUpperMin, min(params.NumberOfDifficulties(), math.MaxUint16)))
	upper := AdjustThresholdUpper(params.VRF.ThresholdUpper, average, m.config.TargetEfficiency(), m.config.MaxChangePercent, floor)
	if upper == params.VRF.ThresholdUpper {
		return false, nil
	}
	params.VRF.ThresholdUpper = upper
	change := lib.ParamsChange{Period: period + 1, Params: params}
	if err = m.store.SetParamsChange(change); err != nil {
		return false, err
	}
	m.log.Infof("Average DAG efficiency %d at period %d: threshold upper %d -> %d", average, period, m.current.Params.VRF.ThresholdUpper, upper)
	m.current = change
	m.metrics.UpdateParams(upper)
	return true, nil
}
