package logging

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"
)

var (
	SuccessColorFG = pterm.FgLightGreen
	SuccessStyleBG = pterm.NewStyle(pterm.BgLightGreen, pterm.FgBlack)
	WarnColorFG    = pterm.FgYellow
	WarnStyleBG    = pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	ErrorColorFG   = pterm.FgRed
	ErrorStyleBG   = pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	InfoColorFG    = SuccessColorFG
	InfoStyleBG    = SuccessStyleBG
)

// PrintErrorMessage prints a standard Go error to the console.
func PrintErrorMessage(tag string, err error) {
	ErrorStyleBG.Print(tag)
	ErrorColorFG.Println(" " + err.Error())
}

// PrintWarningMessage prints a warning message to the console.
func PrintWarningMessage(tag, msg string) {
	WarnStyleBG.Print(tag)
	WarnColorFG.Println(" " + msg)
}

// PrintInfoMessage prints an informational message to the user.
func PrintInfoMessage(tag, msg string) {
	InfoStyleBG.Print(tag)
	InfoColorFG.Println(" " + msg)
}

// -----------------------------------------------------------------------------
// This section contains the display functions for the different kinds of
// diagnostics that can be logged -- these are called to print a diagnostic to
// the screen.

func (ce *ConfigError) display() {
	PrintErrorMessage(ce.Kind+" Error", errors.New(ce.Message))
}

func (cm *CompileMessage) display() {
	cm.displayBanner()
	fmt.Println(cm.Message)

	if cm.Hint != "" {
		InfoColorFG.Println("hint: " + cm.Hint)
	}

	if cm.Position != nil && cm.Context != nil {
		cm.displayCodeSelection()
	}
}

// displayBanner displays the banner on top of a compilation message.
func (cm *CompileMessage) displayBanner() {
	fmt.Print("\n\n-- ")
	kindStr := categoryNames[cm.Category]
	kindLen := len(kindStr)
	if cm.isError() {
		ErrorStyleBG.Print(kindStr + " Error")
		kindLen += 7
	} else {
		WarnStyleBG.Print(kindStr + " Warning")
		kindLen += 9
	}

	fmt.Print(" ")

	fileName := ""
	if cm.Context != nil {
		fileName = filepath.Base(cm.Context.FilePath)
	}

	bannerLen := pterm.GetTerminalWidth() / 2
	if bannerLen > 50 {
		bannerLen = 50
	}
	dashCount := bannerLen - len(fileName) - kindLen - 1
	if dashCount < 1 {
		dashCount = 1
	}

	fmt.Print(strings.Repeat("-", dashCount) + " ")
	InfoColorFG.Println(fileName)
}

// displayCodeSelection displays the offending source text (with line numbers)
// and highlights the selected span with carets.
func (cm *CompileMessage) displayCodeSelection() {
	fmt.Println()

	f, err := os.Open(cm.Context.FilePath)
	if err != nil {
		// the file may have been synthesized (eg. an inlined function body);
		// just skip the code selection rather than failing the whole display.
		return
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Split(bufio.ScanLines)
	lines := make([]string, cm.Position.EndLn-cm.Position.StartLn+1)
	for lineNumber := 1; sc.Scan(); lineNumber++ {
		if lineNumber >= cm.Position.StartLn && lineNumber <= cm.Position.EndLn {
			lines[lineNumber-cm.Position.StartLn] = sc.Text()
		}
	}

	minWhitespace := -1
	for _, line := range lines {
		leadingWhitespace := 0
		for _, c := range line {
			if c == ' ' {
				leadingWhitespace++
			} else if c == '\t' {
				leadingWhitespace += 4
			} else {
				break
			}
		}

		if minWhitespace == -1 {
			minWhitespace = leadingWhitespace
		} else if minWhitespace > leadingWhitespace {
			minWhitespace = leadingWhitespace
		}
	}

	if minWhitespace < 0 {
		minWhitespace = 0
	}

	maxLineNumberWidth := len(strconv.Itoa(cm.Position.EndLn)) + 1
	lineNumberFmtStr := "%-" + strconv.Itoa(maxLineNumberWidth) + "v"

	for i, line := range lines {
		trimmed := strings.ReplaceAll(line, "\t", "    ")
		if minWhitespace < len(trimmed) {
			trimmed = trimmed[minWhitespace:]
		}

		InfoColorFG.Print(fmt.Sprintf(lineNumberFmtStr, i+cm.Position.StartLn))
		fmt.Print("|  ")
		fmt.Println(trimmed)

		fmt.Print(strings.Repeat(" ", maxLineNumberWidth), "|  ")
		if i == 0 {
			fmt.Print(strings.Repeat(" ", max(0, cm.Position.StartCol-minWhitespace)))

			if i == len(lines)-1 {
				ErrorColorFG.Print(strings.Repeat("^", max(1, cm.Position.EndCol-cm.Position.StartCol)))
				fmt.Println()
			} else {
				ErrorColorFG.Println(strings.Repeat("^", max(1, len(line)-cm.Position.StartCol-minWhitespace)))
			}
		} else if i == len(lines)-1 {
			ErrorColorFG.Println(strings.Repeat("^", max(1, cm.Position.EndCol-minWhitespace)))
		} else {
			ErrorColorFG.Println(strings.Repeat("^", max(1, len(line)-minWhitespace)))
		}
	}

	fmt.Println()
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// -----------------------------------------------------------------------------

// DisplayHeader displays translator identification before translation begins.
func DisplayHeader(version, target string) {
	fmt.Print("rumoca ")
	InfoColorFG.Print("v" + version)
	fmt.Print(" -- target: ")
	InfoColorFG.Println(target)
}

var phaseSpinner *pterm.SpinnerPrinter
var currentPhase string
var phaseStartTime time.Time

const maxPhaseLength = len("Flattening")

// DisplayBeginPhase displays the beginning of a translation phase (parse,
// resolve, flatten, build DAE, serialize).
func DisplayBeginPhase(phase string) {
	currentPhase = phase
	pad := maxPhaseLength - len(phase)
	if pad < 0 {
		pad = 0
	}
	phaseText := phase + "..." + strings.Repeat(" ", pad+2)
	phaseSpinner = pterm.DefaultSpinner.WithStyle(pterm.NewStyle(InfoColorFG))

	phaseSpinner.SuccessPrinter = &pterm.PrefixPrinter{
		MessageStyle: pterm.NewStyle(pterm.FgDefault),
		Prefix: pterm.Prefix{
			Style: SuccessStyleBG,
			Text:  "Done",
		},
	}

	phaseSpinner.FailPrinter = &pterm.PrefixPrinter{
		MessageStyle: pterm.NewStyle(pterm.FgDefault),
		Prefix: pterm.Prefix{
			Style: ErrorStyleBG,
			Text:  "Fail",
		},
	}

	phaseSpinner.Start(phaseText)
	phaseStartTime = time.Now()
}

// DisplayEndPhase displays the end of a translation phase.
func DisplayEndPhase(success bool) {
	if phaseSpinner != nil {
		pad := maxPhaseLength - len(currentPhase)
		if pad < 0 {
			pad = 0
		}

		if success {
			phaseSpinner.Success(
				currentPhase+strings.Repeat(" ", pad+2),
				fmt.Sprintf("(%.3fs)", time.Since(phaseStartTime).Seconds()),
			)
		} else {
			phaseSpinner.Fail(currentPhase + strings.Repeat(" ", pad+2))
		}

		phaseSpinner = nil
	}
}

// DisplayFinished displays the closing summary of a translation request.
func DisplayFinished(success bool, errorCount, warningCount int) {
	fmt.Print("\n")

	if success {
		SuccessColorFG.Print("All done! ")
	} else {
		ErrorColorFG.Print("Translation failed. ")
	}

	fmt.Print("(")

	switch errorCount {
	case 0:
		SuccessColorFG.Print(0)
		fmt.Print(" errors, ")
	case 1:
		ErrorColorFG.Print(1)
		fmt.Print(" error, ")
	default:
		ErrorColorFG.Print(errorCount)
		fmt.Print(" errors, ")
	}

	switch warningCount {
	case 0:
		SuccessColorFG.Print(0)
		fmt.Println(" warnings)")
	case 1:
		WarnColorFG.Print(1)
		fmt.Println(" warning)")
	default:
		WarnColorFG.Print(warningCount)
		fmt.Println(" warnings)")
	}
}
