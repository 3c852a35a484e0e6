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
	"errors"
	"fmt"

	"github.com/google/cortexm-handoff/handoff"
	"github.com/google/cortexm-handoff/internal/cortexm"
	"github.com/google/go-cmp/cmp"
)

// Verify checks that r describes a correct handoff on this machine: the core
// was left in its reset-like state and the trace shows the accesses happening
// in the required order. It returns every violation found.
//
// A handoff which leaves the right final values behind but got there in the
// wrong order still fails.
func (m *Machine) Verify(r Result) error {
	var errs []error
	for _, f := range r.Faults {
		errs = append(errs, f)
	}
	errs = append(errs, m.verifyState(r)...)
	errs = append(errs, verifyOrder(r.Trace, r.Transition, m.layout)...)
	if diff := cmp.Diff(handoff.Steps(), r.Transition.Completed); diff != "" {
		errs = append(errs, fmt.Errorf("completed steps diff (-want +got):\n%s", diff))
	}
	return errors.Join(errs...)
}

func (m *Machine) verifyState(r Result) []error {
	var errs []error
	s := r.Snapshot
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	for n, v := range s.Enabled {
		check(v == 0, "NVIC_ISER%d = %#08x, want 0", n, v)
	}
	for n, v := range s.Pending {
		check(v == 0, "NVIC_ISPR%d = %#08x, want 0", n, v)
	}
	for _, p := range s.Peripherals {
		check(p.Value&p.Mask == 0, "peripheral %s at %#08x = %#08x, enable bits %#08x still set", p.Name, p.Addr, p.Value, p.Value&p.Mask)
	}
	check(s.SysTickCSR == 0, "SYST_CSR = %#x, want 0", s.SysTickCSR)
	check(!s.SysTickPending, "SysTick still pending")
	check(s.SHCSR&cortexm.SHCSR_FAULTENA == 0, "SHCSR = %#08x, fault handlers still enabled", s.SHCSR)
	check(s.Control&cortexm.CONTROL_nPRIV == 0, "CONTROL = %#x, still unprivileged", s.Control)
	check(s.Control&cortexm.CONTROL_SPSEL == 0, "CONTROL = %#x, process stack still selected", s.Control)
	check(s.VTOR == r.Base, "VTOR = %#08x, want %#08x", s.VTOR, r.Base)
	wantSP := m.Word(r.Base + handoff.StackSlot)
	check(s.MSP == wantSP, "MSP = %#08x, want %#08x", s.MSP, wantSP)
	wantEntry := m.Word(r.Base + handoff.EntrySlot)
	check(s.Entry == wantEntry, "branched to %#08x, want %#08x", s.Entry, wantEntry)
	return errs
}

// indices returns the positions in trace of events matching f.
func indices(trace []Event, f func(Event) bool) []int {
	var r []int
	for i, e := range trace {
		if f(e) {
			r = append(r, i)
		}
	}
	return r
}

func writeTo(lo, hi uint32) func(Event) bool {
	return func(e Event) bool {
		return e.Kind == EventWrite && e.Addr >= lo && e.Addr < hi
	}
}

func isKind(k EventKind) func(Event) bool {
	return func(e Event) bool { return e.Kind == k }
}

func verifyOrder(trace []Event, t handoff.Transition, l cortexm.Layout) []error {
	var errs []error
	fail := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	first := func(is []int) int {
		if len(is) == 0 {
			return -1
		}
		return is[0]
	}
	last := func(is []int) int {
		if len(is) == 0 {
			return -1
		}
		return is[len(is)-1]
	}
	// before requires that a and b both happened and that a came first.
	before := func(a int, aName string, b int, bName string) {
		switch {
		case a < 0:
			fail("%s never happened", aName)
		case b < 0:
			fail("%s never happened", bName)
		case a >= b:
			fail("%s (#%d) must happen before %s (#%d)", aName, a, bName, b)
		}
	}

	scs := indices(trace, func(e Event) bool {
		return (e.Kind == EventWrite || e.Kind == EventRead) && cortexm.IsSystemControlSpace(e.Addr)
	})
	elevate := indices(trace, isKind(EventElevate))
	if t.WasUnprivileged {
		if len(elevate) != 1 {
			fail("privilege elevated %d times, want once", len(elevate))
		}
		before(first(elevate), "privilege elevation", first(scs), "first system control space access")
	} else if len(elevate) != 0 {
		fail("privilege elevated %d times while already privileged", len(elevate))
	}

	icer := first(indices(trace, writeTo(cortexm.NVIC_ICER, cortexm.NVIC_ICER+cortexm.MaxNVICBanks*4)))
	icpr := first(indices(trace, writeTo(cortexm.NVIC_ICPR, cortexm.NVIC_ICPR+cortexm.MaxNVICBanks*4)))
	before(icer, "NVIC disable", icpr, "NVIC pending clear")
	for _, p := range indices(trace, isKind(EventPeripheral)) {
		before(icer, "NVIC disable", p, "peripheral disable")
		before(p, "peripheral disable", icpr, "NVIC pending clear")
	}

	syst := first(indices(trace, writeTo(cortexm.SYST_CSR, cortexm.SYST_CSR+4)))
	pendst := first(indices(trace, func(e Event) bool {
		return e.Kind == EventWrite && e.Addr == cortexm.SCB_ICSR && e.Value&cortexm.ICSR_PENDSTCLR != 0
	}))
	before(icpr, "NVIC pending clear", syst, "SysTick disable")
	before(syst, "SysTick disable", pendst, "SysTick pending clear")

	control := last(indices(trace, func(e Event) bool {
		return e.Kind == EventControl && e.Value&cortexm.CONTROL_SPSEL == 0
	}))
	if l.FaultHandlers {
		shcsr := first(indices(trace, writeTo(cortexm.SCB_SHCSR, cortexm.SCB_SHCSR+4)))
		before(pendst, "SysTick pending clear", shcsr, "fault handler disable")
		before(shcsr, "fault handler disable", control, "main stack select")
	} else {
		before(pendst, "SysTick pending clear", control, "main stack select")
	}

	vtors := indices(trace, writeTo(cortexm.SCB_VTOR, cortexm.SCB_VTOR+4))
	if len(vtors) != 1 {
		fail("VTOR written %d times, want once", len(vtors))
	}
	vtor := first(vtors)
	load := first(indices(trace, isKind(EventLoadStack)))
	branch := first(indices(trace, isKind(EventBranch)))
	before(control, "main stack select", vtor, "VTOR write")
	before(vtor, "VTOR write", load, "stack pointer load")
	before(load, "stack pointer load", branch, "branch")
	if branch >= 0 && branch != len(trace)-1 {
		fail("%d events recorded after the branch", len(trace)-1-branch)
	}
	if load >= 0 && branch >= 0 && branch != load+1 {
		fail("%d events between stack pointer load and branch", branch-load-1)
	}
	return errs
}
