// Package cmd is the top-level "driver" package for the clamc middle-end: it
// contains all the functionality for parsing command-line arguments, loading
// project configuration, and running the phases of a lowering.
package cmd

import (
	"fmt"

	"clamc/clam"
	"clamc/common"
	"clamc/report"
)

// Driver represents the overall state and configuration of a clamc run.
type Driver struct {
	// The command to run.  This must be one of the enumerated commands.
	command string

	// The path to the serialized input program.
	inputPath string

	// The path to the project configuration file, if one was given explicitly.
	configPath string

	// Whether debug location wrappers should be emitted during lowering.
	debug bool

	// Whether S-expression output should include location subtrees.
	showLoc bool
}

// Enumeration of driver commands.
const (
	CmdCheck   = "check"   // Run the well-formedness pre-pass only.
	CmdLower   = "lower"   // Lower the program and print its S-expression form.
	CmdInspect = "inspect" // Lower the program and open an interactive inspector.
	CmdVersion = "version" // Display the current clamc version.
)

// Run is the main entry point for clamc.  This should be called directly from
// main.
func Run() int {
	// Create a new driver from the given command-line arguments.
	d := NewDriverFromArgs()

	switch d.command {
	case CmdVersion:
		fmt.Println("clamc " + common.ClamcVersion)
		return 0
	case CmdCheck:
		if _, ok := d.loadProgram(); !ok {
			return 1
		}

		report.DisplayInfoMessage("check", "no errors")
		return 0
	case CmdLower:
		prog, cfg, ok := d.lowerInput()
		if !ok {
			return 1
		}

		fmt.Println(clam.ProgSexp(prog, clam.SexpConfig{ShowLoc: cfg.ShowLoc}))
		return 0
	default:
		// CmdInspect
		prog, cfg, ok := d.lowerInput()
		if !ok {
			return 1
		}

		return runInspector(prog, clam.SexpConfig{ShowLoc: cfg.ShowLoc})
	}
}
