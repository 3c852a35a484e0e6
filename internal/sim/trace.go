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

package sim

import (
	"fmt"

	"github.com/google/cortexm-handoff/handoff"
	"github.com/google/go-cmp/cmp"
)

// EventKind classifies a recorded access.
type EventKind string

// Kinds of recorded events.
const (
	EventRead       EventKind = "read"
	EventWrite      EventKind = "write"
	EventControl    EventKind = "control"
	EventElevate    EventKind = "elevate"
	EventBarrier    EventKind = "barrier"
	EventPeripheral EventKind = "peripheral"
	EventLoadStack  EventKind = "load-msp"
	EventBranch     EventKind = "branch"
	EventFault      EventKind = "fault"
)

// Event is one access to the machine, in the order it happened.
type Event struct {
	Seq   int       `json:"seq"`
	Kind  EventKind `json:"kind"`
	Addr  uint32    `json:"addr,omitempty"`
	Value uint32    `json:"value,omitempty"`
	Note  string    `json:"note,omitempty"`
}

func (e Event) String() string {
	s := fmt.Sprintf("#%d %s", e.Seq, e.Kind)
	switch e.Kind {
	case EventRead, EventWrite:
		s += fmt.Sprintf(" %#08x=%#08x", e.Addr, e.Value)
	case EventControl, EventLoadStack, EventBranch:
		s += fmt.Sprintf(" %#08x", e.Value)
	case EventPeripheral, EventFault:
		s += fmt.Sprintf(" %#08x", e.Addr)
	}
	if e.Note != "" {
		s += " (" + e.Note + ")"
	}
	return s
}

// Fault is a protected access refused by the machine.
type Fault struct {
	Seq    int    `json:"seq"`
	Addr   uint32 `json:"addr"`
	Reason string `json:"reason"`
}

func (f Fault) Error() string {
	return fmt.Sprintf("fault at #%d addr %#08x: %s", f.Seq, f.Addr, f.Reason)
}

// Snapshot is the register state of the machine.
type Snapshot struct {
	Control        uint32   `json:"control"`
	MSP            uint32   `json:"msp"`
	PSP            uint32   `json:"psp"`
	VTOR           uint32   `json:"vtor"`
	Enabled        []uint32 `json:"nvic_enabled"`
	Pending        []uint32 `json:"nvic_pending"`
	SysTickCSR     uint32   `json:"syst_csr"`
	SysTickPending bool     `json:"systick_pending"`
	SHCSR          uint32   `json:"shcsr"`
	// Peripherals holds the registers handed out by Machine.Peripheral.
	Peripherals []PeripheralReg `json:"peripherals,omitempty"`
	// Entry is the branch target, zero if no branch has happened.
	Entry uint32 `json:"entry"`
}

// PeripheralReg is a device register holding interrupt enable bits.
type PeripheralReg struct {
	Name  string `json:"name"`
	Addr  uint32 `json:"addr"`
	Mask  uint32 `json:"mask"`
	Value uint32 `json:"value"`
}

// Diff returns a human readable diff between two snapshots, or the empty
// string if they are identical.
func Diff(a, b Snapshot) string {
	return cmp.Diff(a, b)
}

// Result is the outcome of a handoff on a Machine.
type Result struct {
	Base       uint32             `json:"base"`
	Transition handoff.Transition `json:"transition"`
	Snapshot   Snapshot           `json:"snapshot"`
	Trace      []Event            `json:"trace,omitempty"`
	Faults     []Fault            `json:"faults,omitempty"`
}
