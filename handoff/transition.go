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

package handoff

import "fmt"

const (
	// StackSlot is the offset of the initial stack pointer in a vector table.
	StackSlot = 0
	// EntrySlot is the offset of the reset handler in a vector table.
	EntrySlot = 4
)

// Step identifies one stage of the handoff.
type Step int

// Handoff steps, in the order they are performed.
const (
	StepNormalizePrivilege Step = iota + 1
	StepDisableInterrupts
	StepDisablePeripherals
	StepClearPending
	StepDisableSysTick
	StepDisableFaultHandlers
	StepSelectMainStack
	StepSetVectorTable
	StepLoadStack
	StepTransfer
)

var stepNames = map[Step]string{
	StepNormalizePrivilege:   "normalize-privilege",
	StepDisableInterrupts:    "disable-interrupts",
	StepDisablePeripherals:   "disable-peripherals",
	StepClearPending:         "clear-pending",
	StepDisableSysTick:       "disable-systick",
	StepDisableFaultHandlers: "disable-fault-handlers",
	StepSelectMainStack:      "select-main-stack",
	StepSetVectorTable:       "set-vector-table",
	StepLoadStack:            "load-stack",
	StepTransfer:             "transfer",
}

func (s Step) String() string {
	if n, ok := stepNames[s]; ok {
		return n
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Step) UnmarshalText(b []byte) error {
	for st, n := range stepNames {
		if n == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown handoff step %q", b)
}

// Transition is the record threaded through the handoff steps.
//
// By the time it is handed to an Observer, Stack and Entry hold the values
// the terminal transfer will load into MSP and PC.
type Transition struct {
	// Base is the address of the application's vector table.
	Base uint32
	// WasUnprivileged is true if the handoff had to elevate privilege.
	WasUnprivileged bool
	// Stack is the application's initial main stack pointer (slot 0).
	Stack uint32
	// Entry is the application's reset handler (slot 1).
	Entry uint32
	// Completed lists the steps performed so far, in order.
	Completed []Step
}
