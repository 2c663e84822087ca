// Package main provides the entry point for rvsim, a cycle-level RV64
// privileged-architecture simulator.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/sarchlab/rvsim/loader"
	"github.com/sarchlab/rvsim/mem"
	"github.com/sarchlab/rvsim/timing/cache"
	"github.com/sarchlab/rvsim/timing/core"
	"github.com/sarchlab/rvsim/timing/csr"
)

func main() {
	app := &cli.App{
		Name:  "rvsim",
		Usage: "cycle-level RV64 simulator with M/S/U privilege support",
		Commands: []*cli.Command{
			runCommand(),
			stateCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "run an RV64 program",
		ArgsUsage: "<program>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to platform configuration JSON file",
			},
			&cli.BoolFlag{
				Name:  "flat",
				Usage: "treat the program as a raw binary image instead of ELF",
			},
			&cli.Uint64Flag{
				Name:  "base",
				Usage: "load address for raw binary images",
				Value: 0x80000000,
			},
			&cli.Uint64Flag{
				Name:  "max-cycles",
				Usage: "stop after this many cycles (0 means unlimited)",
			},
			&cli.BoolFlag{
				Name:  "icache",
				Usage: "attach an L1 instruction cache",
				Value: true,
			},
			&cli.Uint64Flag{
				Name:  "timer-interval",
				Usage: "raise the timer interrupt line every N cycles (0 disables)",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "print run statistics",
			},
		},
		Action: runAction,
	}
}

func runAction(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return fmt.Errorf("missing program path")
	}
	path := ctx.Args().First()

	cfg := csr.DefaultConfig()
	if p := ctx.String("config"); p != "" {
		loaded, err := csr.LoadConfigFromFile(p)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	var prog *loader.Program
	var err error
	if ctx.Bool("flat") {
		prog, err = loader.LoadFlat(path, ctx.Uint64("base"))
	} else {
		prog, err = loader.Load(path)
	}
	if err != nil {
		return fmt.Errorf("loading program: %w", err)
	}

	memory := mem.NewMemory()
	prog.Install(memory)

	cfg.BootAddr = prog.EntryPoint

	opts := []core.Option{core.WithCSRConfig(cfg)}
	if ctx.Bool("icache") {
		opts = append(opts, core.WithICache(cache.DefaultL1IConfig()))
	}

	c := core.NewCore(memory, opts...)
	c.RegFile().Write(2, prog.InitialSP)

	exitCode := runLoop(c, ctx.Uint64("max-cycles"), ctx.Uint64("timer-interval"))

	stats := c.Stats()
	if ctx.Bool("verbose") {
		fmt.Printf("\nProgram: %s\n", path)
		fmt.Printf("Exit code: %d\n", exitCode)
		fmt.Printf("Cycles: %d\n", stats.Cycles)
		fmt.Printf("Instructions: %d\n", stats.Instructions)
		if stats.Instructions > 0 {
			fmt.Printf("CPI: %.2f\n", float64(stats.Cycles)/float64(stats.Instructions))
		}
		fmt.Printf("Stalls: %d\n", stats.Stalls)
		fmt.Printf("Flushes: %d\n", stats.Flushes)
		fmt.Printf("Traps: %d (interrupts: %d)\n", stats.Traps, stats.Interrupts)
		if ic := c.ICache(); ic != nil {
			cs := ic.Stats()
			fmt.Printf("I-cache: %d fetches, %d hits, %d misses, %d bypasses\n",
				cs.Fetches, cs.Hits, cs.Misses, cs.Bypasses)
		}
	}

	os.Exit(int(exitCode))
	return nil
}

// runLoop drives the core tick by tick so the external timer line can be
// toggled on a fixed interval.
func runLoop(c *core.Core, maxCycles, timerInterval uint64) int64 {
	for !c.Halted() {
		if maxCycles != 0 && c.Stats().Cycles >= maxCycles {
			break
		}
		if timerInterval != 0 {
			cyc := c.Stats().Cycles
			c.SetTimerIrq(cyc != 0 && cyc%timerInterval == 0)
		}
		c.Tick()
	}
	return c.ExitCode()
}

func stateCommand() *cli.Command {
	return &cli.Command{
		Name:  "state",
		Usage: "print the architectural reset state",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to platform configuration JSON file",
			},
		},
		Action: stateAction,
	}
}

func stateAction(ctx *cli.Context) error {
	cfg := csr.DefaultConfig()
	if p := ctx.String("config"); p != "" {
		loaded, err := csr.LoadConfigFromFile(p)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	c := core.NewCore(mem.NewMemory(), core.WithCSRConfig(cfg))

	regs := []struct {
		name string
		addr uint16
	}{
		{"mstatus", csr.AddrMStatus},
		{"misa", csr.AddrMISA},
		{"medeleg", csr.AddrMEDeleg},
		{"mideleg", csr.AddrMIDeleg},
		{"mie", csr.AddrMIE},
		{"mtvec", csr.AddrMTVec},
		{"mepc", csr.AddrMEPC},
		{"mcause", csr.AddrMCause},
		{"mip", csr.AddrMIP},
		{"stvec", csr.AddrSTVec},
		{"satp", csr.AddrSATP},
		{"mhartid", csr.AddrMHartID},
		{"icachectl", csr.AddrICache},
		{"dcachectl", csr.AddrDCache},
	}

	fmt.Printf("hart %d, privilege %v\n", cfg.HartID(), c.Unit().State().Priv)
	for _, r := range regs {
		fmt.Printf("%-10s 0x%016x\n", r.name, c.DebugRead(r.addr))
	}
	return nil
}
