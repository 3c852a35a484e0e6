// Copyright 2026 Google LLC. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package handoff transfers execution from a bootloader to an application
// image resident in memory on a Cortex-M class core.
//
// The handoff resets the core's interrupt, timer and fault machinery to the
// architectural defaults, installs the application's vector table and branches
// to the application's reset handler on the application's initial stack. The
// order of those mutations is the whole contract: see Boot.
//
// Nothing here validates the image. Callers must only hand over addresses of
// images that have already been verified.
package handoff

// Core is the set of core-peripheral operations needed to hand off control.
//
// Implementations must perform each operation with volatile semantics and
// must not reorder them; on hardware each write must have taken effect before
// the method returns.
type Core interface {
	// Privileged returns true if the current thread of execution is privileged.
	Privileged() bool
	// ElevatePrivilege switches the current thread of execution to privileged mode.
	ElevatePrivilege()
	// DisableInterrupts disables every interrupt source at the NVIC.
	DisableInterrupts()
	// ClearPendingInterrupts clears every pending flag at the NVIC.
	ClearPendingInterrupts()
	// DisableSysTick stops the system timer and clears its pending exception.
	DisableSysTick()
	// DisableFaultHandlers disables the MemManage, BusFault and UsageFault
	// handlers so that those faults escalate to HardFault.
	DisableFaultHandlers()
	// UseMainStack selects the main stack pointer as the active stack pointer.
	UseMainStack()
	// SetVectorTable points VTOR at the given address.
	SetVectorTable(base uint32)
	// ReadWord returns the 32-bit word stored at addr.
	ReadWord(addr uint32) uint32
	// Transfer loads sp into the main stack pointer and branches to entry
	// without saving a return address.
	//
	// Transfer never returns.
	Transfer(sp, entry uint32)
}

// Peripheral disables interrupt generation in a device specific peripheral.
//
// The set of peripherals which latch their own interrupt enables is platform
// dependent, so platforms supply them to New.
type Peripheral interface {
	DisableInterrupts()
}

// PeripheralFunc adapts a plain function to the Peripheral interface.
type PeripheralFunc func()

// DisableInterrupts calls f.
func (f PeripheralFunc) DisableInterrupts() { f() }

// Opts configures a Sequencer.
type Opts struct {
	// Peripherals are quiesced, in order, after the NVIC has been disabled.
	Peripherals []Peripheral
	// Observer, if set, is handed the completed transition record immediately
	// before control is transferred.
	Observer func(Transition)
}

// Sequencer performs the ordered handoff against a Core.
type Sequencer struct {
	core        Core
	peripherals []Peripheral
	observer    func(Transition)
}

// New creates a Sequencer which drives the given core.
func New(c Core, opts Opts) *Sequencer {
	return &Sequencer{
		core:        c,
		peripherals: opts.Peripherals,
		observer:    opts.Observer,
	}
}

// BootJump hands off to the application whose vector table lives at base,
// using a Sequencer with no device specific peripherals.
//
// BootJump never returns.
func BootJump(c Core, base uint32) {
	New(c, Opts{}).Boot(base)
}

// Boot hands off control to the application whose vector table lives at base.
//
// base must be non-zero, word aligned and address a valid vector table, and
// any I/O which must finish before the handoff must already have completed.
// None of this is checked: a bad image faults inside the application.
//
// The steps run strictly in the order listed by Steps. Boot never returns.
func (s *Sequencer) Boot(base uint32) {
	t := &Transition{Base: base}
	for _, st := range sequence {
		st.run(s, t)
		t.Completed = append(t.Completed, st.step)
	}
	if s.observer != nil {
		s.observer(*t)
	}
	s.core.Transfer(t.Stack, t.Entry)
	panic("handoff: control transfer returned")
}

// sequence is the handoff. Each entry relies on the state established by the
// entries before it.
var sequence = []struct {
	step Step
	run  func(*Sequencer, *Transition)
}{
	{StepNormalizePrivilege, func(s *Sequencer, t *Transition) {
		if !s.core.Privileged() {
			t.WasUnprivileged = true
			s.core.ElevatePrivilege()
		}
	}},
	{StepDisableInterrupts, func(s *Sequencer, _ *Transition) {
		s.core.DisableInterrupts()
	}},
	{StepDisablePeripherals, func(s *Sequencer, _ *Transition) {
		for _, p := range s.peripherals {
			p.DisableInterrupts()
		}
	}},
	{StepClearPending, func(s *Sequencer, _ *Transition) {
		s.core.ClearPendingInterrupts()
	}},
	{StepDisableSysTick, func(s *Sequencer, _ *Transition) {
		s.core.DisableSysTick()
	}},
	{StepDisableFaultHandlers, func(s *Sequencer, _ *Transition) {
		s.core.DisableFaultHandlers()
	}},
	// An exception taken between the VTOR write and the branch must find
	// the stack the application expects at reset.
	{StepSelectMainStack, func(s *Sequencer, _ *Transition) {
		s.core.UseMainStack()
	}},
	{StepSetVectorTable, func(s *Sequencer, t *Transition) {
		s.core.SetVectorTable(t.Base)
	}},
	{StepLoadStack, func(s *Sequencer, t *Transition) {
		t.Stack = s.core.ReadWord(t.Base + StackSlot)
	}},
	{StepTransfer, func(s *Sequencer, t *Transition) {
		t.Entry = s.core.ReadWord(t.Base + EntrySlot)
	}},
}

// Steps returns the handoff steps in the order Boot performs them.
func Steps() []Step {
	r := make([]Step, 0, len(sequence))
	for _, st := range sequence {
		r = append(r, st.step)
	}
	return r
}
