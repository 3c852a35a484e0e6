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

// Package impl is the implementation of the handoff emulator, which runs the
// boot handoff against a simulated core and reports the state the application
// would start in.
package impl

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/google/cortexm-handoff/handoff"
	"github.com/google/cortexm-handoff/internal/cortexm"
	"github.com/google/cortexm-handoff/internal/loader"
	"github.com/google/cortexm-handoff/internal/sim"
	"github.com/google/cortexm-handoff/internal/snapdb"
	"golang.org/x/sync/errgroup"
)

// EmuOpts encapsulates emulator parameters.
type EmuOpts struct {
	ImagePath  string
	Format     string
	Ext4Path   string
	Ext4Offset int64
	Base       uint32

	Arch          string
	Unprivileged  bool
	ProcessStack  bool
	EnabledIRQs   []uint32
	PendingIRQs   []uint32
	SysTick       bool
	FaultHandlers bool
	Peripherals   []PeripheralSpec

	Trials    int
	RegressDB string
	DBDriver  string
	Trace     bool

	Out io.Writer
}

// PeripheralSpec describes a device register holding interrupt enable bits.
type PeripheralSpec struct {
	Name string `json:"name"`
	Addr uint32 `json:"addr"`
	Mask uint32 `json:"mask"`
}

// ParsePeripheral parses a peripheral of the form name@addr/mask, where addr
// and mask use Go integer literal syntax.
func ParsePeripheral(s string) (PeripheralSpec, error) {
	name, rest, ok := strings.Cut(s, "@")
	if !ok || name == "" {
		return PeripheralSpec{}, fmt.Errorf("peripheral %q: want name@addr/mask", s)
	}
	a, m, ok := strings.Cut(rest, "/")
	if !ok {
		return PeripheralSpec{}, fmt.Errorf("peripheral %q: want name@addr/mask", s)
	}
	addr, err := strconv.ParseUint(a, 0, 32)
	if err != nil {
		return PeripheralSpec{}, fmt.Errorf("peripheral %q: bad address: %w", s, err)
	}
	if addr%4 != 0 || cortexm.IsSystemControlSpace(uint32(addr)) {
		return PeripheralSpec{}, fmt.Errorf("peripheral %q: address must be word aligned and outside the system control space", s)
	}
	mask, err := strconv.ParseUint(m, 0, 32)
	if err != nil {
		return PeripheralSpec{}, fmt.Errorf("peripheral %q: bad mask: %w", s, err)
	}
	return PeripheralSpec{Name: name, Addr: uint32(addr), Mask: uint32(mask)}, nil
}

// ParseWords parses a comma separated list of 32-bit values.
func ParseWords(s string) ([]uint32, error) {
	if s == "" {
		return nil, nil
	}
	var r []uint32
	for _, f := range strings.Split(s, ",") {
		v, err := strconv.ParseUint(strings.TrimSpace(f), 0, 32)
		if err != nil {
			return nil, fmt.Errorf("bad word %q: %w", f, err)
		}
		r = append(r, uint32(v))
	}
	return r, nil
}

// Report is the emulator's output.
type Report struct {
	Arch   string     `json:"arch"`
	Base   uint32     `json:"base"`
	Stack  uint32     `json:"stack"`
	Entry  uint32     `json:"entry"`
	Trials int        `json:"trials"`
	RunKey string     `json:"run_key"`
	Result sim.Result `json:"result"`
}

// Main loads the image, runs the handoff and writes a Report to opts.Out.
func Main(ctx context.Context, opts EmuOpts) error {
	if opts.Trials < 1 {
		return errors.New("trials must be at least 1")
	}
	if opts.Out == nil {
		return errors.New("no output writer")
	}
	layout, err := cortexm.LayoutByName(opts.Arch)
	if err != nil {
		return err
	}

	img, err := loader.Load(loader.Opts{
		Path:       opts.ImagePath,
		Format:     loader.Format(opts.Format),
		Base:       opts.Base,
		Ext4Path:   opts.Ext4Path,
		Ext4Offset: opts.Ext4Offset,
	})
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}
	sp, entry, err := img.Vectors()
	if err != nil {
		return err
	}
	glog.Infof("Loaded %d byte image at %#08x: sp=%#08x entry=%#08x", len(img.Data), img.Base, sp, entry)
	if entry&1 == 0 {
		glog.Warningf("Reset vector %#08x is not a Thumb address; the application will fault", entry)
	}

	state := initialState(opts, layout)
	results := make([]sim.Result, opts.Trials)
	machines := make([]*sim.Machine, opts.Trials)
	g, gctx := errgroup.WithContext(ctx)
	for i := range results {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m, r, err := runTrial(layout, state, img, opts.Peripherals)
			if err != nil {
				return fmt.Errorf("trial %d: %w", i, err)
			}
			machines[i], results[i] = m, r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := machines[0].Verify(results[0]); err != nil {
		return fmt.Errorf("handoff left the core in a bad state: %w", err)
	}
	for i := 1; i < len(results); i++ {
		if diff := sim.Diff(results[0].Snapshot, results[i].Snapshot); diff != "" {
			return fmt.Errorf("trial %d is not deterministic (-trial 0 +trial %d):\n%s", i, i, diff)
		}
	}
	glog.Infof("%d trial(s) agree, handoff to %#08x verified", opts.Trials, entry)

	key := runKey(img, layout, state, opts.Peripherals)
	if opts.RegressDB != "" {
		if err := recordRun(ctx, opts.DBDriver, opts.RegressDB, key, results[0].Snapshot); err != nil {
			return err
		}
	}

	res := results[0]
	if !opts.Trace {
		res.Trace = nil
	}
	out, err := json.MarshalIndent(Report{
		Arch:   layout.Name,
		Base:   img.Base,
		Stack:  sp,
		Entry:  entry,
		Trials: opts.Trials,
		RunKey: key,
		Result: res,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	_, err = fmt.Fprintln(opts.Out, string(out))
	return err
}

func initialState(opts EmuOpts, l cortexm.Layout) sim.State {
	s := sim.State{
		Unprivileged: opts.Unprivileged,
		ProcessStack: opts.ProcessStack,
		Enabled:      opts.EnabledIRQs,
		Pending:      opts.PendingIRQs,
		// Somewhere in the bootloader's own RAM.
		MSP: 0x20000400,
		PSP: 0x20000200,
	}
	if opts.SysTick {
		s.SysTickCSR = cortexm.SYST_CSR_ENABLE | cortexm.SYST_CSR_TICKINT | cortexm.SYST_CSR_CLKSOURCE
		s.SysTickPending = true
	}
	if opts.FaultHandlers && l.FaultHandlers {
		s.SHCSR = cortexm.SHCSR_FAULTENA
	}
	return s
}

func runTrial(l cortexm.Layout, s sim.State, img loader.Image, specs []PeripheralSpec) (*sim.Machine, sim.Result, error) {
	m, err := sim.New(l, s)
	if err != nil {
		return nil, sim.Result{}, err
	}
	if err := m.Load(img.Base, img.Data); err != nil {
		return nil, sim.Result{}, err
	}
	var ps []handoff.Peripheral
	for _, p := range specs {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], p.Mask)
		if err := m.Load(p.Addr, b[:]); err != nil {
			return nil, sim.Result{}, fmt.Errorf("peripheral %s: %w", p.Name, err)
		}
		ps = append(ps, m.Peripheral(p.Name, p.Addr, p.Mask))
	}
	r, err := m.Run(img.Base, handoff.Opts{Peripherals: ps})
	if err != nil {
		return nil, sim.Result{}, err
	}
	return m, r, nil
}

// runKey identifies a run by its inputs: the same key must always produce the
// same snapshot.
func runKey(img loader.Image, l cortexm.Layout, s sim.State, ps []PeripheralSpec) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s/%08x/", l.Name, img.Base)
	h.Write(img.Data)
	// Marshalling plain structs cannot fail.
	st, _ := json.Marshal(s)
	h.Write(st)
	pj, _ := json.Marshal(ps)
	h.Write(pj)
	return hex.EncodeToString(h.Sum(nil))
}

func recordRun(ctx context.Context, driver, conn, key string, s sim.Snapshot) error {
	db, err := snapdb.NewDatabase(driver, conn)
	if err != nil {
		return fmt.Errorf("failed to open regression database: %w", err)
	}
	defer db.Close()

	added, err := db.Record(ctx, key, s)
	if err != nil {
		return fmt.Errorf("regression check failed: %w", err)
	}
	if added {
		glog.Infof("Recorded new snapshot for run %s", key)
	} else {
		glog.Infof("Snapshot matches recorded run %s", key)
	}
	return nil
}
