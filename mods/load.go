package mods

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml"

	"github.com/quivent/fast-forth/common"
	"github.com/quivent/fast-forth/logging"
	"github.com/quivent/fast-forth/optimize"
)

// tomlModuleFile represents the module file as it is encoded in TOML
type tomlModuleFile struct {
	Module *tomlModule `toml:"module"`
}

// tomlModule represents a module as it is encoded in TOML
type tomlModule struct {
	Name          string         `toml:"name"`
	SourceDirs    []string       `toml:"source-dirs,omitempty"`
	BuildProfiles []*tomlProfile `toml:"profiles"`
	Version       string         `toml:"forth-version"`
}

// tomlProfile represents a build profile as it is encoded in TOML
type tomlProfile struct {
	Name        string `toml:"name"`
	OutputPath  string `toml:"output"`
	Format      string `toml:"format"`
	OptLevel    string `toml:"opt-level"`
	Debug       bool   `toml:"debug"`
	ShowStats   bool   `toml:"show-stats"`
	DefaultProf bool   `toml:"default"` // in absence of a selection, choose this profile
}

// LoadModule loads and validates a module as well as selecting the build
// profile.  `path` is the path to the module directory; `selectedProfile`
// may be empty, in which case the profile marked default is used.  The
// `rootProfile` argument is populated with the selected profile's data.
func LoadModule(path, selectedProfile string, rootProfile *BuildProfile) (*ForthModule, error) {
	f, err := os.Open(filepath.Join(path, common.ModuleFileName))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buff, err := ioutil.ReadAll(f)
	if err != nil {
		return nil, err
	}
	tmf := &tomlModuleFile{}
	if err := toml.Unmarshal(buff, tmf); err != nil {
		return nil, err
	}

	if tmf.Module == nil {
		return nil, fmt.Errorf("missing `[module]` table in module at %s", path)
	}

	fmod := &ForthModule{
		// module root is the directory enclosing the module file
		ModuleRoot: path,
	}

	if err := validateModule(fmod, tmf.Module); err != nil {
		return nil, err
	}

	if err := selectProfile(tmf.Module, selectedProfile, rootProfile); err != nil {
		return nil, err
	}

	fmod.Name = tmf.Module.Name
	fmod.SourceDirs = tmf.Module.SourceDirs

	return fmod, nil
}

// validateModule checks that the top level module contents are valid
func validateModule(fmod *ForthModule, mod *tomlModule) error {
	if mod.Name == "" {
		return fmt.Errorf("missing module name for module at %s", fmod.ModuleRoot)
	}

	if !IsValidIdentifier(mod.Name) {
		return errors.New("module name must be a valid identifier")
	}

	if mod.Version != common.ForthVersion {
		logging.PrintWarningMessage(
			"module",
			fmt.Sprintf("version of module `%s` (v%s) does not match current compiler version (v%s)", mod.Name, mod.Version, common.ForthVersion),
		)
	}

	return nil
}

// selectProfile picks the named profile, or the default profile if no name
// was given, and copies it into the root profile
func selectProfile(mod *tomlModule, selectedProfile string, rootProfile *BuildProfile) error {
	if len(mod.BuildProfiles) == 0 {
		return fmt.Errorf("module %s must provide at least one build profile", mod.Name)
	}

	for _, prof := range mod.BuildProfiles {
		if prof.Name == selectedProfile || (selectedProfile == "" && prof.DefaultProf) {
			convProf, err := convertProfile(prof)
			if err != nil {
				return fmt.Errorf("%s in module %s", err.Error(), mod.Name)
			}

			*rootProfile = *convProf
			return nil
		}
	}

	if selectedProfile == "" {
		return fmt.Errorf("module `%s` does not specify a default profile; `--profile` argument is required", mod.Name)
	}

	return fmt.Errorf("module `%s` has no profile `%s`", mod.Name, selectedProfile)
}

// formatNames maps TOML format name strings to enumerated format values
var formatNames = map[string]int{
	"bin":  FormatBin,
	"llvm": FormatLLVM,
	"asm":  FormatASM,
}

// convertProfile converts a TOML build profile into a `*BuildProfile`
func convertProfile(tprof *tomlProfile) (*BuildProfile, error) {
	if tprof.Name == "" {
		return nil, errors.New("profile must specify a name")
	}

	if tprof.OutputPath == "" {
		return nil, errors.New("profile must specify an output path")
	}

	newProfile := &BuildProfile{
		Name:       tprof.Name,
		OutputPath: tprof.OutputPath,
		Debug:      tprof.Debug,
		ShowStats:  tprof.ShowStats,
	}

	if tprof.Format == "" {
		newProfile.OutputFormat = FormatLLVM
	} else if formatVal, ok := formatNames[tprof.Format]; ok {
		newProfile.OutputFormat = formatVal
	} else {
		return nil, fmt.Errorf("%s is not a valid output format", tprof.Format)
	}

	if tprof.OptLevel == "" {
		newProfile.OptLevel = optimize.Standard
	} else if level, ok := optimize.ParseLevel(tprof.OptLevel); ok {
		newProfile.OptLevel = level
	} else {
		return nil, fmt.Errorf("%s is not a valid optimization level", tprof.OptLevel)
	}

	return newProfile, nil
}
