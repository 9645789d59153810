package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"clamc/common"
	"clamc/report"
)

const usage = `Usage: clamc <command> [flags|options] <path to serialized program>

Commands:
---------
check     Runs the well-formedness pre-pass and reports diagnostics.
lower     Lowers the program and prints its S-expression form.
inspect   Lowers the program and opens an interactive inspector.
version   Displays the current clamc version.

Flags:
------
-h, --help      Displays usage information (ie. this text).
-v, --version   Displays the current clamc version.
-d, --debug     Whether debug location wrappers should be emitted.
-sl, --showloc  Whether S-expression output includes location subtrees.

Options:
--------
-c,  --config     Sets the path to the project configuration file.  Defaults
                  to ` + common.ConfigFileName + ` next to the input file if
                  unspecified.
-ll, --loglevel   Sets the compiler's log-level.  Valid values are:
                    - "verbose" for outputting all messages (default)
                    - "warn" for outputting errors and warnings
                    - "error" for outputting errors only
                    - "silent" for no output
`

// Prints the usage message and exits the program with the given exit code.
func printUsage(exitCode int) {
	fmt.Print(usage, "\n")
	os.Exit(exitCode)
}

// argParser is a command-line argument parser.
type argParser struct {
	// The arguments being parsed.
	args []string

	// The argument parser's position within those arguments.
	ndx int
}

// Set containing all the argument names that correspond to options.
var options = map[string]struct{}{
	"c":         {},
	"ll":        {},
	"-config":   {},
	"-loglevel": {},
}

// Set containing all the valid driver commands.
var commands = map[string]struct{}{
	CmdCheck:   {},
	CmdLower:   {},
	CmdInspect: {},
	CmdVersion: {},
}

// argumentError displays an argument error and exits the program.
func argumentError(message string, args ...interface{}) {
	fmt.Print("argument error: ", fmt.Sprintf(message, args...), "\n\n")
	printUsage(1)
}

// nextArg parses the next command-line argument if one exists.  The first value
// is the name of the argument.  If this argument is positional, this value is
// empty.  The second value is the value of argument. If this value is empty,
// the argument is a flag.  If an argument exists, at least one of the returned
// values will be non-empty.  The final value indicates whether or not there was
// an argument to parse.
func (ap *argParser) nextArg() (string, string, bool) {
	if ap.ndx < len(ap.args) {
		arg := ap.args[ap.ndx]
		ap.ndx++

		if strings.HasPrefix(arg, "-") { // flag or option
			name := arg[1:]

			if _, ok := options[name]; ok { // option
				// Make sure the option value exists.
				if ap.ndx < len(ap.args) && !strings.HasPrefix(ap.args[ap.ndx], "-") {
					value := ap.args[ap.ndx]
					ap.ndx++
					return name, value, true
				} else {
					argumentError("option %s requires an argument", strings.TrimLeft(name, "-"))
				}
			} else { // flag
				return name, "", true
			}

		} else { // positional
			return "", arg, true
		}
	}

	// No arguments to parse.
	return "", "", false
}

// useArg attempts to use a single command-line argument to initialize the
// driver.  If the argument is invalid, the program will exit.
func useArg(d *Driver, name, value string) {
	switch name {
	case "h", "-help":
		printUsage(0)
	case "v", "-version":
		fmt.Println("clamc " + common.ClamcVersion)
		os.Exit(0)
	case "d", "-debug":
		d.debug = true
	case "sl", "-showloc":
		d.showLoc = true
	case "ll", "-loglevel":
		{
			var logLevel int
			switch value {
			case "silent":
				logLevel = report.LogLevelSilent
			case "error":
				logLevel = report.LogLevelError
			case "warn":
				logLevel = report.LogLevelWarn
			case "verbose":
				logLevel = report.LogLevelVerbose
			default:
				argumentError("invalid log level")
			}

			report.InitReporter(logLevel)
		}
	case "c", "-config":
		{
			absPath, err := filepath.Abs(value)
			if err != nil {
				argumentError("invalid config path: %s", value)
			}

			d.configPath = absPath
		}
	case "":
		if d.command == "" {
			if _, ok := commands[value]; !ok {
				argumentError("unknown command: %s", value)
			}

			d.command = value
		} else if d.inputPath == "" {
			absPath, err := filepath.Abs(value)
			if err != nil {
				argumentError("invalid input path: %s", value)
			}

			d.inputPath = absPath
		} else {
			argumentError("input path specified multiple times")
		}
	default:
		argumentError("unknown flag: %s", name)
	}
}

// NewDriverFromArgs creates a new driver instance based on the given command
// line arguments if the arguments are valid and the run should continue: ie.
// if the user requests the compiler version, then no run happens.
func NewDriverFromArgs() *Driver {
	d := &Driver{}

	ap := argParser{args: os.Args[1:], ndx: 0}

	// Parse all command line arguments.
	for {
		if name, value, ok := ap.nextArg(); ok {
			useArg(d, name, value)
		} else {
			break
		}
	}

	// Check to make sure a command was specified.
	if d.command == "" {
		argumentError("a command must be specified")
	}

	// Every command except `version` operates on an input program.
	if d.command != CmdVersion && d.inputPath == "" {
		argumentError("the %s command requires an input path", d.command)
	}

	// Set default values for any optional unspecified flags.
	report.InitReporter(report.LogLevelVerbose)

	return d
}
