package vm

// undoDepth is the number of undo states kept.
const undoDepth = 2

// undoRing holds the most recent snapshots taken by saveundo, newest last.
type undoRing struct {
	slots []*snapshot
}

func (u *undoRing) push(s *snapshot) {
	if len(u.slots) == undoDepth {
		copy(u.slots, u.slots[1:])
		u.slots = u.slots[:undoDepth-1]
	}
	u.slots = append(u.slots, s)
}

func (u *undoRing) pop() *snapshot {
	if len(u.slots) == 0 {
		return nil
	}
	s := u.slots[len(u.slots)-1]
	u.slots = u.slots[:len(u.slots)-1]
	return s
}

func (u *undoRing) has() bool { return len(u.slots) > 0 }
func (u *undoRing) discard()  { u.pop() }
func (u *undoRing) clear()    { u.slots = nil }

func (vm *VM) saveUndo(d dest) {
	vm.pushCallstub(d.kind, d.addr)
	vm.undo.push(vm.takeSnapshot())
	vm.popCallstub(0)
}

func (vm *VM) restoreUndo(d dest) {
	s := vm.undo.pop()
	if s == nil {
		vm.log.Debugf("restoreundo: %v", ErrNoUndo)
		vm.store(d, 1)
		return
	}
	if err := vm.applySnapshot(s); err != nil {
		vm.log.Warningf("restoreundo failed: %v", err)
		vm.store(d, 1)
		return
	}
	vm.popCallstub(0xFFFFFFFF)
}
