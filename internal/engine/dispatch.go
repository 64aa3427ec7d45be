package engine

import (
	"fmt"

	"github.com/phylogo/beagle/pkg/beagle"
)

// dispatch drains the instance's job queue, executing batches strictly in
// submission order. Queued work always runs to completion; a fault is
// latched and surfaced at the caller's next blocking point rather than lost.
func (in *Instance) dispatch() {
	for batch := range in.jobs {
		err := in.runBatchSafe(batch)
		in.mu.Lock()
		in.completed = batch.seq
		if err != nil && in.fault == nil {
			in.fault = err
		}
		in.cond.Broadcast()
		in.mu.Unlock()
	}
}

// runBatchSafe converts a panic during queued execution into an
// UnidentifiedExceptionError. Input validation already happened at
// submission, so anything caught here is an internal fault.
func (in *Instance) runBatchSafe(batch opBatch) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = beagle.Internalf("propagation fault: %v", r)
		}
	}()
	return in.runBatch(batch.ops, batch.rescale)
}

// WaitForPartials blocks until the most recent queued operation writing each
// named destination has completed. Under a synchronous binding it only
// validates the indices; indices that were never a destination return
// immediately.
func (in *Instance) WaitForPartials(destinations []int) error {
	for _, idx := range destinations {
		if err := in.store.CheckPartialsIndex(idx); err != nil {
			return err
		}
	}
	if !in.async {
		return nil
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	var target uint64
	for _, idx := range destinations {
		if seq := in.lastWriter[idx]; seq > target {
			target = seq
		}
	}
	for in.completed < target {
		in.cond.Wait()
	}
	return in.takeFault()
}

// quiesce waits for every queued batch to finish. The integrators use it to
// honor their await-inputs contract.
func (in *Instance) quiesce() error {
	if !in.async {
		return nil
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	for in.completed < in.submitted {
		in.cond.Wait()
	}
	return in.takeFault()
}

// takeFault returns and clears the latched asynchronous fault. Caller holds
// in.mu.
func (in *Instance) takeFault() error {
	if in.fault == nil {
		return nil
	}
	err := in.fault
	in.fault = nil
	return fmt.Errorf("queued execution: %w", err)
}
