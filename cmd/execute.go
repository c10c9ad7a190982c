package cmd

import (
	"os"
	"path/filepath"

	"github.com/ComedicChimera/olive"

	"github.com/quivent/fast-forth/build"
	"github.com/quivent/fast-forth/common"
	"github.com/quivent/fast-forth/logging"
	"github.com/quivent/fast-forth/mods"
	"github.com/quivent/fast-forth/optimize"
)

// Execute runs the main `fastforth` application
func Execute() {
	// set up the argument parser and all its extended commands and arguments
	cli := olive.NewCLI("fastforth", "fastforth is a tool for building Forth projects", true)
	logLvlArg := cli.AddSelectorArg("loglevel", "ll", "the compiler log level", false, []string{"silent", "error", "warn", "verbose"})
	logLvlArg.SetDefaultValue("verbose")

	buildCmd := cli.AddSubcommand("build", "compile source code", true)
	buildCmd.AddPrimaryArg("module-path", "the path to the module to build", true)
	buildCmd.AddStringArg("profile", "p", "the name of the profile to build", false)
	buildCmd.AddSelectorArg("opt", "O", "override the profile's optimization level", false, []string{"none", "basic", "standard", "aggressive"})
	buildCmd.AddFlag("stats", "s", "display optimization statistics after building")

	modCmd := cli.AddSubcommand("mod", "manage modules", true)
	modInitCmd := modCmd.AddSubcommand("init", "initialize a module", true)
	modInitCmd.AddPrimaryArg("module-name", "the name of the new module", true)

	cli.AddSubcommand("version", "print the compiler version", false)

	// run the argument parser
	result, err := olive.ParseArgs(cli, os.Args)
	if err != nil {
		logging.PrintErrorMessage("CLI Usage Error", err)
		return
	}

	// process the inputed command line
	subcmdName, subResult, _ := result.Subcommand()
	switch subcmdName {
	case "build":
		execBuildCommand(subResult, result.Arguments["loglevel"].(string))
	case "mod":
		execModCommand(subResult)
	case "version":
		logging.PrintInfoMessage("FastForth Version", common.ForthVersion)
	}
}

// execBuildCommand executes the build subcommand and handles all errors
func execBuildCommand(result *olive.ArgParseResult, loglevel string) {
	moduleRelPath, _ := result.PrimaryArg()

	modulePath, err := filepath.Abs(moduleRelPath)
	if err != nil {
		logging.PrintErrorMessage("Path Error", err)
		return
	}

	selectedProfile := ""
	if profArgVal, ok := result.Arguments["profile"]; ok {
		selectedProfile = profArgVal.(string)
	}

	// attempt to load the module
	buildProfile := &mods.BuildProfile{}
	mod, err := mods.LoadModule(modulePath, selectedProfile, buildProfile)
	if err != nil {
		logging.PrintErrorMessage("Module Load Error", err)
		return
	}

	// command line overrides on top of the profile
	if optArgVal, ok := result.Arguments["opt"]; ok {
		if level, ok := optimize.ParseLevel(optArgVal.(string)); ok {
			buildProfile.OptLevel = level
		}
	}
	if result.HasFlag("stats") {
		buildProfile.ShowStats = true
	}

	// initialize the logger
	logging.Initialize(mod.ModuleRoot, loglevel)

	// build the main project
	c := build.NewCompiler(mod, buildProfile)
	c.Compile()
}

// execModCommand executes the `mod` subcommand and its subcommands.  It
// handles all errors related to this command.
func execModCommand(result *olive.ArgParseResult) {
	subcmdName, subResult, _ := result.Subcommand()

	workDir, err := os.Getwd()
	if err != nil {
		logging.PrintErrorMessage("Path Error", err)
		return
	}

	switch subcmdName {
	case "init":
		modName, _ := subResult.PrimaryArg()
		if err := mods.InitModule(workDir, modName); err != nil {
			logging.PrintErrorMessage("Module Init Error", err)
		}
	}
}
