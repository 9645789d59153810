package report

import (
	"fmt"
	"os"
	"sync"
)

// Reporter is responsible for displaying errors, warnings, and other kinds of
// messages to the user during compilation.  The reporter respects the set log
// level and is synchronized: its methods can be safely called from multiple
// goroutines.
type Reporter struct {
	// The mutex used to synchronize different display method calls.
	m *sync.Mutex

	// The selected log level of the reporter.  This must be one of the
	// enumerated log levels below.
	logLevel int

	// Indicates whether or not an error has been displayed.
	isErr bool
}

// Enumeration of the different possible log levels.
const (
	LogLevelSilent  = iota // Displays no output.
	LogLevelError          // Displays only errors to the user.
	LogLevelWarn           // Displays only warnings and errors to the user.
	LogLevelVerbose        // Displays all compilation messages to the user (default).
)

// rep is the global reporter instance.
var rep *Reporter

// InitReporter initializes the global reporter to the given log level.  If the
// reporter has already been initialized, this function does nothing.
func InitReporter(logLevel int) {
	if rep == nil {
		rep = &Reporter{
			m:        &sync.Mutex{},
			logLevel: logLevel,
		}
	}
}

// -----------------------------------------------------------------------------

// FlushBag displays every diagnostic accumulated in the bag, honoring the log
// level.  reprPath is the representative path of the input program.
func FlushBag(reprPath string, bag *Bag) {
	for _, d := range bag.Diagnostics() {
		if d.IsError {
			ReportCompileError(reprPath, d)
		} else {
			ReportCompileWarning(reprPath, d)
		}
	}
}

// ReportCompileError displays a single error diagnostic.
func ReportCompileError(reprPath string, d *Diagnostic) {
	if rep.logLevel > LogLevelSilent {
		rep.m.Lock()
		defer rep.m.Unlock()

		rep.isErr = true

		displayCompileMessage("error", reprPath, d)
	}
}

// ReportCompileWarning displays a single warning diagnostic.
func ReportCompileWarning(reprPath string, d *Diagnostic) {
	if rep.logLevel >= LogLevelWarn {
		rep.m.Lock()
		defer rep.m.Unlock()

		displayCompileMessage("warning", reprPath, d)
	}
}

// ReportICE reports an internal compiler error.  These are errors that result
// from a bug or unexpected condition within the compiler itself: they are not
// intended to ever happen.  ICEs are always displayed regardless of log level.
func ReportICE(message string, args ...interface{}) {
	rep.m.Lock()
	defer rep.m.Unlock()

	displayICE(fmt.Sprintf(message, args...))

	os.Exit(-1)
}

// ReportFatal reports a fatal error.  These errors cause compilation to stop
// immediately but are expected: they generally result from invalid
// configuration of some form, such as a malformed internal parameter string.
func ReportFatal(message string, args ...interface{}) {
	if rep.logLevel > LogLevelSilent {
		rep.m.Lock()
		defer rep.m.Unlock()

		displayFatal(fmt.Sprintf(message, args...))
	}

	os.Exit(1)
}

// DisplayInfoMessage displays a tagged informational message.
func DisplayInfoMessage(tag, msg string) {
	if rep.logLevel == LogLevelVerbose {
		rep.m.Lock()
		defer rep.m.Unlock()

		displayInfoMessage(tag, msg)
	}
}

// AnyErrors returns whether or not any errors were displayed.
func AnyErrors() bool {
	return rep.isErr
}
