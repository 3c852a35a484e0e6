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

// Package sim is a register level model of the parts of a Cortex-M core that
// the handoff touches.
//
// A Machine records every access made to it, refuses protected accesses made
// while unprivileged, and intercepts the final branch so that the state of the
// core immediately before the application starts can be inspected.
package sim

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/golang/glog"
	"github.com/google/cortexm-handoff/handoff"
	"github.com/google/cortexm-handoff/internal/cortexm"
)

// ErrNoTransfer is returned by Run if the handoff finished without branching.
var ErrNoTransfer = errors.New("handoff did not transfer control")

// State is the state of the core when the handoff is invoked.
type State struct {
	// Unprivileged starts thread mode with CONTROL.nPRIV set.
	Unprivileged bool
	// ProcessStack starts with CONTROL.SPSEL set.
	ProcessStack bool

	MSP uint32
	PSP uint32

	// Enabled and Pending are the initial NVIC banks, bank 0 first.
	Enabled []uint32
	Pending []uint32

	SysTickCSR     uint32
	SysTickPending bool

	SHCSR uint32
	VTOR  uint32
}

// Machine is a simulated core.
//
// A Machine is not safe for concurrent use.
type Machine struct {
	layout cortexm.Layout

	control  uint32
	msp, psp uint32

	enabled [cortexm.MaxNVICBanks]uint32
	pending [cortexm.MaxNVICBanks]uint32

	syst      uint32
	stPending bool
	shcsr     uint32
	vtor      uint32

	branched bool
	entry    uint32

	mem         map[uint32]uint32
	peripherals []PeripheralReg
	trace       []Event
	faults      []Fault
}

// New creates a machine with the given layout and initial state.
func New(l cortexm.Layout, s State) (*Machine, error) {
	if l.NVICBanks < 1 || l.NVICBanks > cortexm.MaxNVICBanks {
		return nil, fmt.Errorf("layout %q has %d NVIC banks, want 1..%d", l.Name, l.NVICBanks, cortexm.MaxNVICBanks)
	}
	if len(s.Enabled) > l.NVICBanks || len(s.Pending) > l.NVICBanks {
		return nil, fmt.Errorf("initial state has %d enable and %d pending banks, layout %q has %d", len(s.Enabled), len(s.Pending), l.Name, l.NVICBanks)
	}
	m := &Machine{
		layout:    l,
		msp:       s.MSP,
		psp:       s.PSP,
		syst:      s.SysTickCSR,
		stPending: s.SysTickPending,
		vtor:      s.VTOR,
		mem:       make(map[uint32]uint32),
	}
	if l.FaultHandlers {
		m.shcsr = s.SHCSR
	}
	if s.Unprivileged {
		m.control |= cortexm.CONTROL_nPRIV
	}
	if s.ProcessStack {
		m.control |= cortexm.CONTROL_SPSEL
	}
	copy(m.enabled[:], s.Enabled)
	copy(m.pending[:], s.Pending)
	return m, nil
}

// Layout returns the machine's layout.
func (m *Machine) Layout() cortexm.Layout {
	return m.layout
}

// Load places img in memory at base, one little-endian word at a time.
// A trailing partial word is zero padded.
func (m *Machine) Load(base uint32, img []byte) error {
	if base%4 != 0 {
		return fmt.Errorf("load address %#x is not word aligned", base)
	}
	for off := 0; off < len(img); off += 4 {
		var w [4]byte
		copy(w[:], img[off:])
		m.mem[base+uint32(off)] = binary.LittleEndian.Uint32(w[:])
	}
	glog.V(1).Infof("sim: loaded %d bytes at %#08x", len(img), base)
	return nil
}

// Core returns the handoff core backed by this machine.
func (m *Machine) Core() *cortexm.Core {
	return cortexm.New(m, m, m.layout)
}

// transferred is thrown by Transfer and caught by Run.
type transferred struct{}

// Run performs the handoff to the image at base and returns the state of the
// machine at the moment control was transferred.
//
// Any Observer in opts is still called.
func (m *Machine) Run(base uint32, opts handoff.Opts) (r Result, err error) {
	var tr handoff.Transition
	obs := opts.Observer
	opts.Observer = func(t handoff.Transition) {
		tr = t
		if obs != nil {
			obs(t)
		}
	}

	defer func() {
		switch p := recover().(type) {
		case transferred:
			r = m.result(base, tr)
		case nil:
			err = ErrNoTransfer
		default:
			err = fmt.Errorf("%w: %v", ErrNoTransfer, p)
		}
	}()
	handoff.New(m.Core(), opts).Boot(base)
	return
}

func (m *Machine) result(base uint32, tr handoff.Transition) Result {
	return Result{
		Base:       base,
		Transition: tr,
		Snapshot:   m.Snapshot(),
		Trace:      append([]Event(nil), m.trace...),
		Faults:     append([]Fault(nil), m.faults...),
	}
}

// Peripheral returns a device peripheral whose interrupt enables live in the
// bits of mask at addr. Disabling it clears those bits.
//
// The register is included in every later Snapshot, and Verify requires the
// masked bits to be clear.
func (m *Machine) Peripheral(name string, addr, mask uint32) handoff.Peripheral {
	m.peripherals = append(m.peripherals, PeripheralReg{Name: name, Addr: addr, Mask: mask})
	return handoff.PeripheralFunc(func() {
		m.record(Event{Kind: EventPeripheral, Addr: addr, Note: name})
		m.Write(addr, m.Read(addr)&^mask)
	})
}

// Word returns the word at addr without recording an access.
func (m *Machine) Word(addr uint32) uint32 {
	return m.mem[addr]
}

func (m *Machine) privileged() bool {
	return m.control&cortexm.CONTROL_nPRIV == 0
}

// protected refuses accesses to the system control space from unprivileged
// code, as the bus would.
func (m *Machine) protected(addr uint32, what string) bool {
	if m.privileged() || !cortexm.IsSystemControlSpace(addr) {
		return false
	}
	m.fault(addr, fmt.Sprintf("unprivileged %s of system control space", what))
	return true
}

func (m *Machine) fault(addr uint32, reason string) {
	f := Fault{Seq: len(m.trace), Addr: addr, Reason: reason}
	glog.Warningf("sim: fault at %#08x: %s", addr, reason)
	m.faults = append(m.faults, f)
	m.record(Event{Kind: EventFault, Addr: addr, Note: reason})
}

func (m *Machine) record(e Event) {
	e.Seq = len(m.trace)
	glog.V(2).Infof("sim: %s", e)
	m.trace = append(m.trace, e)
}

// nvicBank returns the bank index of addr within the register array at base,
// or -1 if addr is not in that array.
func (m *Machine) nvicBank(base, addr uint32) int {
	if addr < base || addr >= base+cortexm.MaxNVICBanks*4 || addr%4 != 0 {
		return -1
	}
	return int(addr-base) / 4
}

// Read implements cortexm.Bus.
func (m *Machine) Read(addr uint32) uint32 {
	if m.protected(addr, "read") {
		return 0
	}
	v := m.peek(addr)
	m.record(Event{Kind: EventRead, Addr: addr, Value: v})
	return v
}

func (m *Machine) peek(addr uint32) uint32 {
	for _, base := range []uint32{cortexm.NVIC_ISER, cortexm.NVIC_ICER} {
		if n := m.nvicBank(base, addr); n >= 0 {
			if n >= m.layout.NVICBanks {
				return 0
			}
			return m.enabled[n]
		}
	}
	for _, base := range []uint32{cortexm.NVIC_ISPR, cortexm.NVIC_ICPR} {
		if n := m.nvicBank(base, addr); n >= 0 {
			if n >= m.layout.NVICBanks {
				return 0
			}
			return m.pending[n]
		}
	}
	switch addr {
	case cortexm.SYST_CSR:
		return m.syst
	case cortexm.SCB_ICSR:
		if m.stPending {
			return cortexm.ICSR_PENDSTSET
		}
		return 0
	case cortexm.SCB_VTOR:
		return m.vtor
	case cortexm.SCB_SHCSR:
		if !m.layout.FaultHandlers {
			return 0
		}
		return m.shcsr
	}
	return m.mem[addr]
}

// Write implements cortexm.Bus.
func (m *Machine) Write(addr uint32, val uint32) {
	if m.protected(addr, "write") {
		return
	}
	m.record(Event{Kind: EventWrite, Addr: addr, Value: val})

	if m.writeNVIC(addr, val) {
		return
	}
	switch addr {
	case cortexm.SYST_CSR:
		m.syst = val & (cortexm.SYST_CSR_ENABLE | cortexm.SYST_CSR_TICKINT | cortexm.SYST_CSR_CLKSOURCE)
	case cortexm.SCB_ICSR:
		if val&cortexm.ICSR_PENDSTSET != 0 {
			m.stPending = true
		}
		if val&cortexm.ICSR_PENDSTCLR != 0 {
			m.stPending = false
		}
	case cortexm.SCB_VTOR:
		m.vtor = val &^ (cortexm.VTOR_ALIGN - 1)
	case cortexm.SCB_SHCSR:
		if m.layout.FaultHandlers {
			m.shcsr = val
		}
	default:
		m.mem[addr] = val
	}
}

// writeNVIC applies write-one-to-set and write-one-to-clear semantics to the
// NVIC banks. Banks beyond the layout read as zero and ignore writes.
func (m *Machine) writeNVIC(addr, val uint32) bool {
	for _, r := range []struct {
		base  uint32
		banks *[cortexm.MaxNVICBanks]uint32
		set   bool
	}{
		{cortexm.NVIC_ISER, &m.enabled, true},
		{cortexm.NVIC_ICER, &m.enabled, false},
		{cortexm.NVIC_ISPR, &m.pending, true},
		{cortexm.NVIC_ICPR, &m.pending, false},
	} {
		n := m.nvicBank(r.base, addr)
		if n < 0 {
			continue
		}
		if n < m.layout.NVICBanks {
			if r.set {
				r.banks[n] |= val
			} else {
				r.banks[n] &^= val
			}
		}
		return true
	}
	return false
}

// Control implements cortexm.CPU.
func (m *Machine) Control() uint32 {
	return m.control
}

// SetControl implements cortexm.CPU. Unprivileged writes are ignored.
func (m *Machine) SetControl(v uint32) {
	m.record(Event{Kind: EventControl, Value: v})
	if !m.privileged() {
		m.fault(0, "unprivileged write to CONTROL ignored")
		return
	}
	m.control = v & (cortexm.CONTROL_nPRIV | cortexm.CONTROL_SPSEL)
}

// Elevate implements cortexm.CPU, behaving like a supervisor call whose
// handler clears CONTROL.nPRIV.
func (m *Machine) Elevate() {
	m.record(Event{Kind: EventElevate})
	m.control &^= cortexm.CONTROL_nPRIV
}

// Barrier implements cortexm.CPU.
func (m *Machine) Barrier() {
	m.record(Event{Kind: EventBarrier})
}

// Transfer implements cortexm.CPU. The branch is intercepted: Transfer unwinds
// back to Run instead of returning.
func (m *Machine) Transfer(sp, entry uint32) {
	m.record(Event{Kind: EventLoadStack, Value: sp})
	m.msp = sp
	m.record(Event{Kind: EventBranch, Value: entry})
	m.branched = true
	m.entry = entry
	panic(transferred{})
}

// Snapshot returns the current register state.
func (m *Machine) Snapshot() Snapshot {
	s := Snapshot{
		Control:        m.control,
		MSP:            m.msp,
		PSP:            m.psp,
		VTOR:           m.vtor,
		Enabled:        append([]uint32(nil), m.enabled[:m.layout.NVICBanks]...),
		Pending:        append([]uint32(nil), m.pending[:m.layout.NVICBanks]...),
		SysTickCSR:     m.syst,
		SysTickPending: m.stPending,
		SHCSR:          m.shcsr,
	}
	for _, p := range m.peripherals {
		p.Value = m.peek(p.Addr)
		s.Peripherals = append(s.Peripherals, p)
	}
	if m.branched {
		s.Entry = m.entry
	}
	return s
}
