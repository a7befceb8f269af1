package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ComedicChimera/olive"
	"github.com/pterm/pterm"

	"github.com/mhcho1994/rumoca/common"
	"github.com/mhcho1994/rumoca/logging"
	"github.com/mhcho1994/rumoca/mods"
	"github.com/mhcho1994/rumoca/serialize"
	"github.com/mhcho1994/rumoca/translate"
)

// Execute runs the main `rumoca` application and returns the process exit
// code: 0 on success (balance warnings included), nonzero on parse,
// resolve, flatten, or classify errors.
func Execute() int {
	// diagnostics go to stderr so stdout carries only the selected artifact
	pterm.SetDefaultOutput(os.Stderr)

	// set up the argument parser and all its extended commands and arguments
	cli := olive.NewCLI("rumoca", "rumoca translates Modelica models into a flat DAE representation", true)
	logLvlArg := cli.AddSelectorArg("loglevel", "ll", "the translator log level", false, []string{"silent", "error", "warn", "verbose"})
	logLvlArg.SetDefaultValue("verbose")

	translateCmd := cli.AddSubcommand("translate", "translate a model to a DAE artifact", true)
	translateCmd.AddPrimaryArg("source-path", "the path to the source file or package directory", true)
	translateCmd.AddStringArg("root", "r", "the name of the root class to flatten", false)
	translateCmd.AddStringArg("include", "i", "comma-separated additional source files", false)
	targetArg := translateCmd.AddSelectorArg("target", "t", "the output artifact kind", false, []string{"json", "template"})
	targetArg.SetDefaultValue("json")
	translateCmd.AddStringArg("template", "tp", "the path of the template to render (target=template)", false)

	cli.AddSubcommand("version", "print the rumoca version", false)

	// run the argument parser
	result, err := olive.ParseArgs(cli, os.Args)
	if err != nil {
		logging.PrintErrorMessage("CLI Usage Error", err)
		return 1
	}

	// process the inputed command line
	subcmdName, subResult, _ := result.Subcommand()
	switch subcmdName {
	case "translate":
		return execTranslateCommand(subResult, result.Arguments["loglevel"].(string))
	case "version":
		logging.PrintInfoMessage("Rumoca Version", common.Version)
	}

	return 0
}

// execTranslateCommand executes the translate subcommand and handles all
// errors related to it.
func execTranslateCommand(result *olive.ArgParseResult, loglevel string) int {
	sourceRelPath, _ := result.PrimaryArg()

	sourcePath, err := filepath.Abs(sourceRelPath)
	if err != nil {
		logging.PrintErrorMessage("Path Error", err)
		return 1
	}

	rootClass := stringArg(result, "root")
	target := "json"
	if tv, ok := result.Arguments["target"]; ok {
		target = tv.(string)
	}
	templatePath := stringArg(result, "template")
	if target == "template" && templatePath == "" {
		logging.PrintErrorMessage("CLI Usage Error", fmt.Errorf("target %q requires a --template path", target))
		return 1
	}

	var includes []string
	for _, inc := range strings.Split(stringArg(result, "include"), ",") {
		if inc = strings.TrimSpace(inc); inc != "" {
			includes = append(includes, inc)
		}
	}

	// an optional rumoca.toml next to the source supplies a default root
	// class and extra search roots
	cfg, err := mods.LoadConfig(configDir(sourcePath))
	if err != nil {
		logging.PrintErrorMessage("Config Error", err)
		return 1
	}
	if rootClass == "" {
		rootClass = cfg.RootClass
	}

	logger := logging.NewLogger(logging.ParseLogLevel(loglevel))
	t := translate.New(logger)
	t.SetSearchRoots(mods.DefaultSearchRoots(cfg))
	t.SetShowPhases(logger.LogLevel >= logging.LogLevelVerbose)

	if logger.LogLevel >= logging.LogLevelVerbose {
		logging.DisplayHeader(common.Version, target)
	}

	res, ok := t.Translate(sourcePath, rootClass, includes)

	if logger.LogLevel >= logging.LogLevelVerbose {
		warningCount := len(logger.Messages()) - logger.ErrorCount()
		logging.DisplayFinished(ok, logger.ErrorCount(), warningCount)
	}

	if !ok {
		return 1
	}

	switch target {
	case "json":
		if err := serialize.WriteJSON(os.Stdout, res.Document); err != nil {
			logging.PrintErrorMessage("Output Error", err)
			return 1
		}
	case "template":
		if err := serialize.RenderFile(os.Stdout, res.Document, templatePath); err != nil {
			logging.PrintErrorMessage("Output Error", err)
			return 1
		}
	}

	return 0
}

func stringArg(result *olive.ArgParseResult, name string) string {
	if v, ok := result.Arguments[name]; ok {
		return v.(string)
	}
	return ""
}

// configDir is the directory a rumoca.toml would sit in for sourcePath: the
// package directory itself, or a file's parent.
func configDir(sourcePath string) string {
	if fi, err := os.Stat(sourcePath); err == nil && fi.IsDir() {
		return sourcePath
	}
	return filepath.Dir(sourcePath)
}
