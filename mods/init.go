package mods

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml"

	"github.com/quivent/fast-forth/common"
)

// InitModule creates a new module file in the given directory with one
// default profile.  It fails if the directory already contains a module.
func InitModule(path, name string) error {
	if !IsValidIdentifier(name) {
		return fmt.Errorf("`%s` is not a valid module name", name)
	}

	modFilePath := filepath.Join(path, common.ModuleFileName)
	if _, err := os.Stat(modFilePath); err == nil {
		return fmt.Errorf("module already exists at %s", path)
	}

	tmf := &tomlModuleFile{
		Module: &tomlModule{
			Name:    name,
			Version: common.ForthVersion,
			BuildProfiles: []*tomlProfile{
				{
					Name:        "debug",
					OutputPath:  filepath.Join("out", name+".ll"),
					Format:      "llvm",
					OptLevel:    "none",
					Debug:       true,
					DefaultProf: true,
				},
				{
					Name:       "release",
					OutputPath: filepath.Join("out", name+".ll"),
					Format:     "llvm",
					OptLevel:   "aggressive",
					ShowStats:  true,
				},
			},
		},
	}

	buff, err := toml.Marshal(*tmf)
	if err != nil {
		return err
	}

	return ioutil.WriteFile(modFilePath, buff, 0644)
}
