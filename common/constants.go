package common

const (
	SrcFileExtension = ".fs"
	ModuleFileName   = "forth-mod.toml"
	ForthVersion     = "0.1.0"
)
