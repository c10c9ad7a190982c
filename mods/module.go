package mods

import "github.com/quivent/fast-forth/optimize"

// ForthModule represents a module -- specifically, the module configuration
// loaded from its `forth-mod.toml`.
type ForthModule struct {
	// Name is the name of the module
	Name string

	// ModuleRoot is the path to the root directory of the module
	ModuleRoot string

	// SourceDirs is the list of directories, relative to the module root,
	// searched for source files.  Empty means the module root itself.
	SourceDirs []string
}

// BuildProfile represents the configuration the compiler will use to build.
// It is returned from `LoadModule`.
type BuildProfile struct {
	// Name is the profile's name as written in the module file
	Name string

	// OutputPath is the path to the final output file
	OutputPath string

	// OutputFormat is the type of output the compiler should produce.  This
	// should be one of the enumerated formats (prefixed `Format`).
	OutputFormat int

	// OptLevel selects the optimization level used for the build
	OptLevel optimize.Level

	// Debug indicates whether the build is for debug or release
	Debug bool

	// ShowStats indicates whether optimization statistics are displayed
	// after the optimizer runs
	ShowStats bool
}

// Available Output Formats
const (
	FormatBin  = iota // Executable
	FormatLLVM        // LLVM IR source text
	FormatASM         // Assembly
)

// IsValidIdentifier returns whether or not a given string would be a valid
// module name
func IsValidIdentifier(idstr string) bool {
	if idstr == "" {
		return false
	}

	if idstr[0] == '_' || ('a' <= idstr[0] && idstr[0] <= 'z') || ('A' <= idstr[0] && idstr[0] <= 'Z') {
		for _, c := range idstr[1:] {
			if c == '_' || c == '-' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') {
				continue
			}

			return false
		}

		return true
	}

	return false
}
