//go:build !spislavedebug

package spislave

func (d *Driver[W]) dbgISR()         {}
func (d *Driver[W]) dbgRx(bool, int) {}
func (d *Driver[W]) dbgTx()          {}
func (d *Driver[W]) dbgTxDone()      {}
func (d *Driver[W]) dbgBusy()        {}
func (d *Driver[W]) dbgReadWait()    {}
