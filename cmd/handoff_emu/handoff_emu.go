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

// handoff_emu runs the bootloader-to-application handoff against a simulated
// Cortex-M core and prints the register state the application would start in.
//
// Usage:
//
//	go run ./cmd/handoff_emu --logtostderr --image=app.bin --base=0x08010000 \
//	  --arch=armv7m --unprivileged --psp --systick --fault_handlers \
//	  --enabled_irqs=0xffffffff --pending_irqs=0x10 \
//	  --peripheral=usart1@0x4001100c/0x1f0 --trials=8 --regress_db=/tmp/handoff.db
//
// A non-zero exit status means the handoff would not have left the core in a
// reset-like state, or that repeated runs disagreed.
package main

import (
	"context"
	"flag"
	"os"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/google/cortexm-handoff/cmd/handoff_emu/impl"
)

type peripheralFlags []string

func (p *peripheralFlags) String() string { return strings.Join(*p, ",") }

func (p *peripheralFlags) Set(v string) error {
	*p = append(*p, v)
	return nil
}

var (
	imagePath     = flag.String("image", "", "Path to the application image")
	format        = flag.String("format", "bin", "Image format, one of [bin, elf, ext4]")
	ext4Path      = flag.String("ext4_path", "/boot/app.bin", "Path of the image inside the ext4 filesystem when --format=ext4")
	ext4Offset    = flag.Int64("ext4_offset", 0, "Byte offset of the ext4 filesystem inside --image")
	base          = flag.String("base", "0x08010000", "Load address of the application's vector table; 0 selects the lowest ELF segment")
	arch          = flag.String("arch", "armv7m", "Core architecture, one of [armv6m, armv7m, armv8m]")
	unprivileged  = flag.Bool("unprivileged", false, "Start the handoff from unprivileged thread mode")
	psp           = flag.Bool("psp", false, "Start the handoff on the process stack")
	enabledIRQs   = flag.String("enabled_irqs", "", "Comma separated NVIC enable banks the bootloader left set")
	pendingIRQs   = flag.String("pending_irqs", "", "Comma separated NVIC pending banks left latched")
	sysTick       = flag.Bool("systick", false, "Start with SysTick running and pending")
	faultHandlers = flag.Bool("fault_handlers", false, "Start with MemManage, BusFault and UsageFault handlers enabled")
	trials        = flag.Int("trials", 1, "Number of independent runs which must agree")
	regressDB     = flag.String("regress_db", "", "Connection string of the snapshot regression database; empty disables it")
	dbDriver      = flag.String("db_driver", "sqlite3", "Regression database driver, one of [sqlite3, mysql]")
	trace         = flag.Bool("trace", false, "Include the register access trace in the report")

	peripherals peripheralFlags
)

func main() {
	flag.Var(&peripherals, "peripheral", "Device interrupt enable register as name@addr/mask; may be repeated")
	flag.Parse()

	b, err := strconv.ParseUint(*base, 0, 32)
	if err != nil {
		glog.Exitf("Invalid --base: %v", err)
	}
	en, err := impl.ParseWords(*enabledIRQs)
	if err != nil {
		glog.Exitf("Invalid --enabled_irqs: %v", err)
	}
	pend, err := impl.ParseWords(*pendingIRQs)
	if err != nil {
		glog.Exitf("Invalid --pending_irqs: %v", err)
	}
	var ps []impl.PeripheralSpec
	for _, p := range peripherals {
		spec, err := impl.ParsePeripheral(p)
		if err != nil {
			glog.Exitf("Invalid --peripheral: %v", err)
		}
		ps = append(ps, spec)
	}

	if err := impl.Main(context.Background(), impl.EmuOpts{
		ImagePath:     *imagePath,
		Format:        *format,
		Ext4Path:      *ext4Path,
		Ext4Offset:    *ext4Offset,
		Base:          uint32(b),
		Arch:          *arch,
		Unprivileged:  *unprivileged,
		ProcessStack:  *psp,
		EnabledIRQs:   en,
		PendingIRQs:   pend,
		SysTick:       *sysTick,
		FaultHandlers: *faultHandlers,
		Peripherals:   ps,
		Trials:        *trials,
		RegressDB:     *regressDB,
		DBDriver:      *dbDriver,
		Trace:         *trace,
		Out:           os.Stdout,
	}); err != nil {
		glog.Exit(err.Error())
	}
}
