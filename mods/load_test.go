package mods

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quivent/fast-forth/common"
	"github.com/quivent/fast-forth/optimize"
)

func writeModuleFile(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	err := ioutil.WriteFile(filepath.Join(dir, common.ModuleFileName), []byte(content), 0644)
	require.NoError(t, err)
	return dir
}

const sampleModuleFile = `
[module]
name = "calc"
forth-version = "` + common.ForthVersion + `"
source-dirs = ["src"]

[[module.profiles]]
name = "debug"
output = "out/calc.ll"
format = "llvm"
opt-level = "none"
debug = true
default = true

[[module.profiles]]
name = "release"
output = "out/calc.ll"
opt-level = "aggressive"
show-stats = true
`

func TestLoadModuleDefaultProfile(t *testing.T) {
	dir := writeModuleFile(t, sampleModuleFile)

	var prof BuildProfile
	mod, err := LoadModule(dir, "", &prof)
	require.NoError(t, err)

	assert.Equal(t, "calc", mod.Name)
	assert.Equal(t, dir, mod.ModuleRoot)
	assert.Equal(t, []string{"src"}, mod.SourceDirs)

	assert.Equal(t, "debug", prof.Name)
	assert.Equal(t, optimize.None, prof.OptLevel)
	assert.True(t, prof.Debug)
	assert.Equal(t, FormatLLVM, prof.OutputFormat)
}

func TestLoadModuleNamedProfile(t *testing.T) {
	dir := writeModuleFile(t, sampleModuleFile)

	var prof BuildProfile
	_, err := LoadModule(dir, "release", &prof)
	require.NoError(t, err)

	assert.Equal(t, "release", prof.Name)
	assert.Equal(t, optimize.Aggressive, prof.OptLevel)
	assert.True(t, prof.ShowStats)
	assert.Equal(t, FormatLLVM, prof.OutputFormat, "format defaults to llvm when omitted")
}

func TestLoadModuleUnknownProfile(t *testing.T) {
	dir := writeModuleFile(t, sampleModuleFile)

	var prof BuildProfile
	_, err := LoadModule(dir, "bench", &prof)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bench")
}

func TestLoadModuleNoDefaultProfile(t *testing.T) {
	dir := writeModuleFile(t, `
[module]
name = "calc"
forth-version = "`+common.ForthVersion+`"

[[module.profiles]]
name = "release"
output = "out/calc.ll"
`)

	var prof BuildProfile
	_, err := LoadModule(dir, "", &prof)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default")
}

func TestLoadModuleInvalidOptLevel(t *testing.T) {
	dir := writeModuleFile(t, `
[module]
name = "calc"
forth-version = "`+common.ForthVersion+`"

[[module.profiles]]
name = "debug"
output = "out/calc.ll"
opt-level = "turbo"
default = true
`)

	var prof BuildProfile
	_, err := LoadModule(dir, "", &prof)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "turbo")
}

func TestLoadModuleInvalidFormat(t *testing.T) {
	dir := writeModuleFile(t, `
[module]
name = "calc"
forth-version = "`+common.ForthVersion+`"

[[module.profiles]]
name = "debug"
output = "out/calc.wasm"
format = "wasm"
default = true
`)

	var prof BuildProfile
	_, err := LoadModule(dir, "", &prof)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wasm")
}

func TestLoadModuleBadName(t *testing.T) {
	dir := writeModuleFile(t, `
[module]
name = "9lives"
forth-version = "`+common.ForthVersion+`"

[[module.profiles]]
name = "debug"
output = "out/x.ll"
default = true
`)

	var prof BuildProfile
	_, err := LoadModule(dir, "", &prof)
	require.Error(t, err)
}

func TestLoadModuleMissingFile(t *testing.T) {
	var prof BuildProfile
	_, err := LoadModule(t.TempDir(), "", &prof)
	require.Error(t, err)
}

func TestInitModuleRoundTrip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, InitModule(dir, "my-tool"))

	var prof BuildProfile
	mod, err := LoadModule(dir, "", &prof)
	require.NoError(t, err)

	assert.Equal(t, "my-tool", mod.Name)
	assert.Equal(t, "debug", prof.Name)
	assert.Equal(t, optimize.None, prof.OptLevel)
	assert.True(t, prof.Debug)

	_, err = LoadModule(dir, "release", &prof)
	require.NoError(t, err)
	assert.Equal(t, optimize.Aggressive, prof.OptLevel)
	assert.True(t, prof.ShowStats)
}

func TestInitModuleRefusesExisting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, InitModule(dir, "once"))
	require.Error(t, InitModule(dir, "twice"))
}

func TestInitModuleRejectsBadName(t *testing.T) {
	require.Error(t, InitModule(t.TempDir(), "no spaces"))
}

func TestIsValidIdentifier(t *testing.T) {
	valid := []string{"calc", "my-tool", "x2", "_private", "CamelMod"}
	for _, name := range valid {
		assert.True(t, IsValidIdentifier(name), "`%s` should be valid", name)
	}

	invalid := []string{"", "9lives", "-lead", "has space", "dot.name"}
	for _, name := range invalid {
		assert.False(t, IsValidIdentifier(name), "`%s` should be invalid", name)
	}
}
