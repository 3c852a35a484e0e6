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

import (
	"fmt"
	"sort"
	"strings"
)

// Layout describes the differences between Cortex-M architecture profiles
// which matter to the handoff.
type Layout struct {
	Name string

	// NVICBanks is the number of 32-bit enable/pending banks to clear.
	NVICBanks int

	// FaultHandlers is true if MemManage, BusFault and UsageFault can be
	// individually enabled through SHCSR.
	FaultHandlers bool
}

// Known layouts.
var (
	// ARMv6M covers Cortex-M0/M0+/M1: 32 external interrupts and no
	// configurable fault handlers.
	ARMv6M = Layout{Name: "armv6m", NVICBanks: 1}

	// ARMv7M covers Cortex-M3/M4/M7, clearing the 8 banks CMSIS declares.
	ARMv7M = Layout{Name: "armv7m", NVICBanks: 8, FaultHandlers: true}

	// ARMv8M covers the Mainline profile, Cortex-M23 excluded.
	ARMv8M = Layout{Name: "armv8m", NVICBanks: 16, FaultHandlers: true}
)

var layouts = map[string]Layout{
	ARMv6M.Name: ARMv6M,
	ARMv7M.Name: ARMv7M,
	ARMv8M.Name: ARMv8M,
}

// LayoutByName returns the named layout.
func LayoutByName(name string) (Layout, error) {
	l, ok := layouts[strings.ToLower(name)]
	if !ok {
		names := make([]string, 0, len(layouts))
		for n := range layouts {
			names = append(names, n)
		}
		sort.Strings(names)
		return Layout{}, fmt.Errorf("unknown architecture %q, want one of %v", name, names)
	}
	return l, nil
}
