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

package cortexm

// System control space register addresses (ARMv7-M ARM, B3.2 and B3.4).
const (
	SYST_CSR = 0xe000e010

	NVIC_ISER = 0xe000e100
	NVIC_ICER = 0xe000e180
	NVIC_ISPR = 0xe000e200
	NVIC_ICPR = 0xe000e280

	SCB_ICSR  = 0xe000ed04
	SCB_VTOR  = 0xe000ed08
	SCB_SHCSR = 0xe000ed24
)

// MaxNVICBanks is the architectural limit on 32-bit NVIC enable/pending banks.
const MaxNVICBanks = 16

// ICSR bits.
const (
	ICSR_PENDSTCLR = 1 << 25
	ICSR_PENDSTSET = 1 << 26
)

// SYST_CSR bits.
const (
	SYST_CSR_ENABLE    = 1 << 0
	SYST_CSR_TICKINT   = 1 << 1
	SYST_CSR_CLKSOURCE = 1 << 2
)

// SHCSR enable bits for the configurable fault handlers.
const (
	SHCSR_MEMFAULTENA = 1 << 16
	SHCSR_BUSFAULTENA = 1 << 17
	SHCSR_USGFAULTENA = 1 << 18

	SHCSR_FAULTENA = SHCSR_MEMFAULTENA | SHCSR_BUSFAULTENA | SHCSR_USGFAULTENA
)

// CONTROL special register bits.
const (
	CONTROL_nPRIV = 1 << 0
	CONTROL_SPSEL = 1 << 1
)

// VTOR_ALIGN is the minimum vector table alignment the VTOR can express.
const VTOR_ALIGN = 0x80

// bank returns the address of the n'th register in a 32-bit NVIC bank array.
func bank(base uint32, n int) uint32 {
	return base + uint32(n)*4
}

// ISER returns the address of NVIC_ISERn.
func ISER(n int) uint32 { return bank(NVIC_ISER, n) }

// ICER returns the address of NVIC_ICERn.
func ICER(n int) uint32 { return bank(NVIC_ICER, n) }

// ISPR returns the address of NVIC_ISPRn.
func ISPR(n int) uint32 { return bank(NVIC_ISPR, n) }

// ICPR returns the address of NVIC_ICPRn.
func ICPR(n int) uint32 { return bank(NVIC_ICPR, n) }

// IsSystemControlSpace returns true if addr falls inside the private
// peripheral bus region which is only writable while privileged.
func IsSystemControlSpace(addr uint32) bool {
	return addr >= 0xe000e000 && addr < 0xe000f000
}
