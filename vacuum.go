package slimsearch

import (
	"math"
	"time"
)

// vacuumConditions are the thresholds a vacuum request becomes eligible
// under: dirtCount and dirtFactor must both meet or exceed these before a
// pass actually traverses the dictionary.
type vacuumConditions struct {
	minDirtCount  int
	minDirtFactor float64
}

// minConditions folds two requests' thresholds into the most permissive of
// the two, per the "coalesce by minimum" scheduling rule.
func minConditions(a, b vacuumConditions) vacuumConditions {
	return vacuumConditions{
		minDirtCount:  minInt(a.minDirtCount, b.minDirtCount),
		minDirtFactor: math.Min(a.minDirtFactor, b.minDirtFactor),
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Vacuum runs a compaction pass over tombstoned postings, ignoring the
// dirt thresholds that gate automatic vacuums, and blocks until the pass
// this call contributed to has completed. If a vacuum is already running,
// this call's (zero) thresholds are folded into the queued follow-up
// rather than starting a second pass concurrently.
func (idx *Index) Vacuum() {
	done := make(chan struct{})
	idx.scheduleVacuum(vacuumConditions{}, done)
	<-done
}

// maybeScheduleVacuum is called after Discard: if auto-vacuum is enabled
// and its thresholds are currently met, a background pass is scheduled.
func (idx *Index) maybeScheduleVacuum() {
	if !idx.cfg.AutoVacuum.Enabled {
		return
	}
	idx.mu.Lock()
	dirtCount := idx.store.dirtCount
	dirtFactor := idx.store.dirtFactor()
	idx.mu.Unlock()
	cond := vacuumConditions{
		minDirtCount:  idx.cfg.AutoVacuum.MinDirtCount,
		minDirtFactor: idx.cfg.AutoVacuum.MinDirtFactor,
	}
	if dirtCount < cond.minDirtCount || dirtFactor < cond.minDirtFactor {
		return
	}
	idx.scheduleVacuum(cond, nil)
}

// scheduleVacuum implements the at-most-one-running, at-most-one-queued
// coalescing rule: start immediately if nothing is running; otherwise fold
// into (or create) the single queued follow-up.
func (idx *Index) scheduleVacuum(cond vacuumConditions, done chan struct{}) {
	idx.vacuumMu.Lock()
	if !idx.vacuumRunning {
		idx.vacuumRunning = true
		idx.vacuumMu.Unlock()
		var waiters []chan struct{}
		if done != nil {
			waiters = []chan struct{}{done}
		}
		go idx.vacuumLoop(vacuumRequest{conditions: cond, done: waiters})
		return
	}
	if idx.vacuumQueued == nil {
		idx.vacuumQueued = &vacuumRequest{conditions: cond}
	} else {
		idx.vacuumQueued.conditions = minConditions(idx.vacuumQueued.conditions, cond)
	}
	if done != nil {
		idx.vacuumQueued.done = append(idx.vacuumQueued.done, done)
	}
	idx.vacuumMu.Unlock()
}

// vacuumLoop runs one pass, then — as long as a follow-up was queued and
// its conditions still hold against the post-pass counters — runs the
// next, all on the same goroutine, until the queue runs dry.
func (idx *Index) vacuumLoop(req vacuumRequest) {
	for {
		idx.runVacuumPass(req.conditions)
		for _, d := range req.done {
			close(d)
		}

		idx.vacuumMu.Lock()
		next := idx.vacuumQueued
		idx.vacuumQueued = nil
		if next == nil {
			idx.vacuumRunning = false
			idx.vacuumMu.Unlock()
			return
		}
		idx.vacuumMu.Unlock()

		// runVacuumPass skips the pass when next's conditions no longer
		// hold; the queue is checked again afterwards either way.
		req = *next
	}
}

// runVacuumPass traverses the term dictionary in batches, yielding
// batchWait between batches so interleaved reads and writes stay
// responsive, then resets dirtCount and recomputes avgFieldLength to
// absorb the drift its incremental updates accumulate.
func (idx *Index) runVacuumPass(cond vacuumConditions) {
	idx.mu.Lock()
	dirtCount := idx.store.dirtCount
	dirtFactor := idx.store.dirtFactor()
	if dirtCount < cond.minDirtCount || dirtFactor < cond.minDirtFactor {
		idx.mu.Unlock()
		return
	}
	terms := idx.store.terms.Keys()
	idx.mu.Unlock()

	batchSize := idx.cfg.AutoVacuum.BatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}
	wait := time.Duration(idx.cfg.AutoVacuum.BatchWait) * time.Millisecond

	for start := 0; start < len(terms); start += batchSize {
		end := start + batchSize
		if end > len(terms) {
			end = len(terms)
		}
		idx.mu.Lock()
		for _, term := range terms[start:end] {
			idx.store.sweepTerm(term)
		}
		idx.mu.Unlock()
		idx.cfg.Logger.Debug("vacuum batch swept", "from", start, "to", end, "terms", len(terms))
		if end < len(terms) && wait > 0 {
			time.Sleep(wait)
		}
	}

	idx.mu.Lock()
	idx.store.dirtCount = 0
	idx.store.recomputeAvgFieldLength()
	idx.mu.Unlock()
}
