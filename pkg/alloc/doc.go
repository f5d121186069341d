// Package alloc assigns board pins to peripheral requirements.
//
// Allocation is a greedy, most-constrained-first loop. Pin requirements are
// committed up front. Each iteration then rebuilds the candidate blocks of
// every pending requirement against the remaining pool, scores them by the
// ratio of requested units to candidate blocks, and commits the requirement
// with the highest ratio. Committing a pin that is a required member of a
// port removes the entire port from the pool.
//
// Validate performs the capacity and consistency checks that should precede
// a run; Planner.Plan combines both steps.
package alloc
