package report

import (
	"fmt"

	"github.com/pterm/pterm"
)

var (
	warnColorFG  = pterm.FgYellow
	warnStyleBG  = pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	errorColorFG = pterm.FgRed
	errorStyleBG = pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	infoColorFG  = pterm.FgLightGreen
	infoStyleBG  = pterm.NewStyle(pterm.BgLightGreen, pterm.FgBlack)
)

// displayICE displays an internal compiler error message.
func displayICE(message string) {
	errorStyleBG.Print("internal compiler error")
	errorColorFG.Println(" " + message)
	fmt.Print("This error was not supposed to happen: please open an issue on the issue tracker\n\n")
}

// displayFatal displays a fatal error message.
func displayFatal(message string) {
	errorStyleBG.Print("fatal error")
	errorColorFG.Println(" " + message)
}

// displayCompileMessage displays a compilation error or warning.  The label is
// the string to prefix the message with: eg. if we want to display an error,
// the label is "error".
func displayCompileMessage(label, reprPath string, d *Diagnostic) {
	headStyle, bodyColor := errorStyleBG, errorColorFG
	if label == "warning" {
		headStyle, bodyColor = warnStyleBG, warnColorFG
	}

	headStyle.Print(label)

	if d.Span == nil {
		bodyColor.Printf(" %s: [%s] %s\n", reprPath, d.Kind, d.Message)
	} else {
		bodyColor.Printf(
			" %s:%d:%d: [%s] %s\n",
			reprPath, d.Span.StartLine+1, d.Span.StartCol+1, d.Kind, d.Message,
		)
	}
}

// displayInfoMessage displays a tagged informational message.
func displayInfoMessage(tag, msg string) {
	infoStyleBG.Print(tag)
	infoColorFG.Println(" " + msg)
}
