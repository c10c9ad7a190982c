package build

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/quivent/fast-forth/common"
	"github.com/quivent/fast-forth/generate"
	"github.com/quivent/fast-forth/ir"
	"github.com/quivent/fast-forth/logging"
	"github.com/quivent/fast-forth/mods"
	"github.com/quivent/fast-forth/optimize"
	"github.com/quivent/fast-forth/ssa"
	"github.com/quivent/fast-forth/syntax"
)

// Compiler is the data structure responsible for maintaining all high-level
// state of the compiler as it moves a module through the pipeline
type Compiler struct {
	// rootMod is the root module of the project being built
	rootMod *mods.ForthModule

	// buildProfile is the profile that is being used to build the project
	buildProfile *mods.BuildProfile

	// program is the merged parse result of every source file in the module
	program *syntax.Program

	// functions is the program in SSA form, one function per word plus the
	// synthetic main
	functions []*ssa.Function

	// env records the top-level constants and variables, shared between SSA
	// construction and code generation
	env *ssa.Env

	// optimized is the flat IR after the optimizer ran; it determines which
	// word definitions survive into the generated module
	optimized *ir.Program
}

// NewCompiler creates a new compiler for a given root module and build
// profile
func NewCompiler(rootMod *mods.ForthModule, buildProfile *mods.BuildProfile) *Compiler {
	return &Compiler{
		rootMod:      rootMod,
		buildProfile: buildProfile,
	}
}

// formatTargets maps output formats onto their display names
var formatTargets = map[int]string{
	mods.FormatBin:  "native",
	mods.FormatLLVM: "llvm",
	mods.FormatASM:  "asm",
}

// Compile runs the full compilation algorithm on the root module and build
// profile.  It handles all compilation errors appropriately.
func (c *Compiler) Compile() {
	logging.DisplayCompileHeader(common.ForthVersion, formatTargets[c.buildProfile.OutputFormat], false)

	if !c.parse() {
		logging.Finish(false)
		return
	}

	if !c.transform() {
		logging.Finish(false)
		return
	}

	if !c.optimize() {
		logging.Finish(false)
		return
	}

	ok := c.generate()
	logging.Finish(ok && logging.ShouldProceed())
}

// parse discovers the module's source files and parses them into one merged
// program.  Parsing continues through per-file errors so every file gets
// reported in a single run.
func (c *Compiler) parse() bool {
	logging.BeginPhase("Parsing")

	srcFiles, err := c.discoverSources()
	if err != nil {
		logging.EndPhase(false)
		logging.LogConfigError("Module", err.Error())
		return false
	}

	if len(srcFiles) == 0 {
		logging.EndPhase(false)
		logging.LogConfigError("Module",
			fmt.Sprintf("module `%s` contains no `%s` source files", c.rootMod.Name, common.SrcFileExtension))
		return false
	}

	c.program = &syntax.Program{}
	for _, fpath := range srcFiles {
		fileProg, err := syntax.ParseFile(fpath)
		if err != nil {
			logParseError(fpath, err)
			continue
		}

		c.program.Definitions = append(c.program.Definitions, fileProg.Definitions...)
		c.program.TopLevel = append(c.program.TopLevel, fileProg.TopLevel...)
	}

	ok := logging.ShouldProceed()
	logging.EndPhase(ok)
	return ok
}

// transform converts the parsed program into SSA form.  Construction
// continues through per-definition errors so every failing word gets reported
// in a single run.
func (c *Compiler) transform() bool {
	logging.BeginPhase("Transforming")

	functions, env, failures := ssa.BuildProgram(c.program)
	for _, failure := range failures {
		logging.LogCompileError(
			&logging.LogContext{FilePath: c.rootMod.ModuleRoot, WordName: failure.WordName},
			failure.Err.Error(),
			logging.LMKEffect,
			nil,
		)
	}

	c.functions = functions
	c.env = env

	ok := logging.ShouldProceed()
	logging.EndPhase(ok)
	return ok
}

// optimize lowers the program to the flat IR and runs the optimizer pipeline
// at the profile's level
func (c *Compiler) optimize() bool {
	logging.BeginPhase("Optimizing")

	flat := ir.FromProgram(c.program)

	opt := optimize.NewOptimizer(c.buildProfile.OptLevel)
	optimized, err := opt.OptimizeToFixpoint(flat)
	if err != nil {
		logging.EndPhase(false)
		logging.LogCompileError(
			&logging.LogContext{FilePath: c.rootMod.ModuleRoot},
			err.Error(),
			logging.LMKOptim,
			nil,
		)
		return false
	}

	c.optimized = optimized
	logging.EndPhase(true)

	if c.buildProfile.ShowStats {
		stats := optimize.NewInliner(c.buildProfile.OptLevel).Stats(flat, optimized)
		logging.PrintInfoMessage("Optimizer", "\n"+stats.String())
	}

	return true
}

// generate emits the LLVM module and writes it to the profile's output path.
// Word definitions the optimizer proved unreachable are not emitted.
func (c *Compiler) generate() bool {
	logging.BeginPhase("Generating")

	var live []*ssa.Function
	for _, f := range c.functions {
		if f.Name == "main" {
			live = append(live, f)
			continue
		}
		if _, ok := c.optimized.Word(f.Name); ok {
			live = append(live, f)
		}
	}

	llMod := generate.NewGenerator(c.env).Generate(live)

	outPath := c.buildProfile.OutputPath
	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(c.rootMod.ModuleRoot, outPath)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		logging.EndPhase(false)
		logging.LogConfigError("Output", err.Error())
		return false
	}

	f, err := os.Create(outPath)
	if err != nil {
		logging.EndPhase(false)
		logging.LogConfigError("Output", err.Error())
		return false
	}
	defer f.Close()

	if _, err := llMod.WriteTo(f); err != nil {
		logging.EndPhase(false)
		logging.LogConfigError("Output", err.Error())
		return false
	}

	logging.EndPhase(true)

	if c.buildProfile.OutputFormat != mods.FormatLLVM {
		// native lowering runs outside the compiler: the emitted module is
		// handed to `opt` and `llc`
		logging.PrintWarningMessage("Output",
			fmt.Sprintf("`%s` output requires an LLVM toolchain; wrote LLVM IR to %s", formatTargets[c.buildProfile.OutputFormat], outPath))
	}

	return true
}

// discoverSources walks the module's source directories collecting source
// files in walk order
func (c *Compiler) discoverSources() ([]string, error) {
	dirs := c.rootMod.SourceDirs
	if len(dirs) == 0 {
		dirs = []string{"."}
	}

	var srcFiles []string
	for _, dir := range dirs {
		root := filepath.Join(c.rootMod.ModuleRoot, dir)
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			if !info.IsDir() && filepath.Ext(path) == common.SrcFileExtension {
				srcFiles = append(srcFiles, path)
			}

			return nil
		})

		if err != nil {
			return nil, err
		}
	}

	return srcFiles, nil
}

// logParseError reports one file's scan or parse failure
func logParseError(fpath string, err error) {
	var pe *syntax.ParseError
	if errors.As(err, &pe) {
		logging.LogCompileError(
			&logging.LogContext{FilePath: fpath},
			pe.Message,
			logging.LMKSyntax,
			pe.Pos,
		)
		return
	}

	logging.LogCompileError(
		&logging.LogContext{FilePath: fpath},
		err.Error(),
		logging.LMKToken,
		nil,
	)
}
