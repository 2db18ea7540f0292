package dispatcher

import "sync"

// routineGroup tracks a set of goroutines so the dispatcher can join the
// accountant goroutines it spawns per job before declaring itself drained.
// Adapted from appleboy/graceful's own routineGroup.
type routineGroup struct {
	waitGroup sync.WaitGroup
}

func newRoutineGroup() *routineGroup {
	return new(routineGroup)
}

// Run launches fn in a new goroutine tracked by the group.
func (g *routineGroup) Run(fn func()) {
	g.waitGroup.Add(1)

	go func() {
		defer g.waitGroup.Done()
		fn()
	}()
}

// Wait blocks until every goroutine launched via Run has returned.
func (g *routineGroup) Wait() {
	g.waitGroup.Wait()
}
