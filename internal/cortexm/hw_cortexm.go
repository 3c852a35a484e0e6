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

//go:build tinygo && cortexm
// +build tinygo,cortexm

package cortexm

import (
	"device/arm"
	"runtime/volatile"
	"unsafe"
)

// Hardware returns a Core which drives the core this code is running on.
func Hardware(l Layout) *Core {
	return New(mmio{}, cpu{}, l)
}

type mmio struct{}

func (mmio) Read(addr uint32) uint32 {
	return volatile.LoadUint32((*uint32)(unsafe.Pointer(uintptr(addr))))
}

func (mmio) Write(addr uint32, val uint32) {
	volatile.StoreUint32((*uint32)(unsafe.Pointer(uintptr(addr))), val)
}

type cpu struct{}

func (cpu) Control() uint32 {
	return uint32(arm.AsmFull("mrs {}, CONTROL", nil))
}

func (cpu) SetControl(v uint32) {
	arm.AsmFull("msr CONTROL, {v}", map[string]interface{}{"v": v})
}

// Elevate raises a supervisor call; the handler below clears nPRIV since
// thread mode cannot do so itself.
func (cpu) Elevate() {
	arm.Asm("svc #0")
}

func (cpu) Barrier() {
	arm.Asm("dsb\nisb")
}

func (cpu) Transfer(sp, entry uint32) {
	arm.AsmFull(`
		msr MSP, {sp}
		isb
		bx {entry}
	`, map[string]interface{}{
		"sp":    sp,
		"entry": entry,
	})
	for {
	}
}

//export SVC_Handler
func svcHandler() {
	ctl := uint32(arm.AsmFull("mrs {}, CONTROL", nil))
	arm.AsmFull(`
		msr CONTROL, {ctl}
		isb
	`, map[string]interface{}{"ctl": ctl &^ CONTROL_nPRIV})
}
