//go:build !spislavedebug

package spislave

type Stats struct{}

func (d *Driver[W]) DebugReset()       {}
func (d *Driver[W]) DebugStats() Stats { return Stats{} }
