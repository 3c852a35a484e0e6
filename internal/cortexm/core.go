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

// Package cortexm implements the handoff core operations in terms of the
// Cortex-M system control space.
//
// The register accesses go through a Bus and the special registers through a
// CPU, so the same code drives real hardware and the simulator.
package cortexm

import (
	"github.com/google/cortexm-handoff/handoff"
)

// Bus provides 32-bit volatile access to the memory map.
type Bus interface {
	Read(addr uint32) uint32
	Write(addr uint32, val uint32)
}

// CPU provides access to the core's special registers and branch primitive.
type CPU interface {
	// Control returns the CONTROL register.
	Control() uint32
	// SetControl writes the CONTROL register. Writes to nPRIV from
	// unprivileged code are ignored by the architecture.
	SetControl(v uint32)
	// Elevate makes thread mode privileged.
	Elevate()
	// Barrier completes outstanding memory accesses and flushes the
	// pipeline (DSB; ISB).
	Barrier()
	// Transfer loads MSP and branches to entry. It never returns.
	Transfer(sp, entry uint32)
}

// Core drives a Cortex-M core through the handoff.
type Core struct {
	bus    Bus
	cpu    CPU
	layout Layout
}

var _ handoff.Core = (*Core)(nil)

// New returns a Core for the given memory map, special registers and layout.
func New(bus Bus, cpu CPU, l Layout) *Core {
	return &Core{bus: bus, cpu: cpu, layout: l}
}

// Layout returns the layout the core was created with.
func (c *Core) Layout() Layout {
	return c.layout
}

// Privileged implements handoff.Core.
func (c *Core) Privileged() bool {
	return c.cpu.Control()&CONTROL_nPRIV == 0
}

// ElevatePrivilege implements handoff.Core.
func (c *Core) ElevatePrivilege() {
	c.cpu.Elevate()
}

// DisableInterrupts implements handoff.Core.
func (c *Core) DisableInterrupts() {
	for n := 0; n < c.layout.NVICBanks; n++ {
		c.bus.Write(ICER(n), 0xffffffff)
	}
	c.cpu.Barrier()
}

// ClearPendingInterrupts implements handoff.Core.
func (c *Core) ClearPendingInterrupts() {
	for n := 0; n < c.layout.NVICBanks; n++ {
		c.bus.Write(ICPR(n), 0xffffffff)
	}
	c.cpu.Barrier()
}

// DisableSysTick implements handoff.Core.
func (c *Core) DisableSysTick() {
	c.bus.Write(SYST_CSR, 0)
	c.bus.Write(SCB_ICSR, ICSR_PENDSTCLR)
}

// DisableFaultHandlers implements handoff.Core.
//
// On layouts without configurable fault handlers every fault is already a
// HardFault and SHCSR is left untouched.
func (c *Core) DisableFaultHandlers() {
	if !c.layout.FaultHandlers {
		return
	}
	v := c.bus.Read(SCB_SHCSR)
	c.bus.Write(SCB_SHCSR, v&^SHCSR_FAULTENA)
}

// UseMainStack implements handoff.Core.
func (c *Core) UseMainStack() {
	c.cpu.SetControl(c.cpu.Control() &^ CONTROL_SPSEL)
	c.cpu.Barrier()
}

// SetVectorTable implements handoff.Core.
func (c *Core) SetVectorTable(base uint32) {
	c.bus.Write(SCB_VTOR, base)
	c.cpu.Barrier()
}

// ReadWord implements handoff.Core.
func (c *Core) ReadWord(addr uint32) uint32 {
	return c.bus.Read(addr)
}

// Transfer implements handoff.Core.
func (c *Core) Transfer(sp, entry uint32) {
	c.cpu.Transfer(sp, entry)
}
