package logging

// TextPosition represents a selection of text in a source file over which a
// message applies.  Lines and columns are one-indexed.
type TextPosition struct {
	StartLn, StartCol int
	EndLn, EndCol     int
}

// LogContext stores the context in which a compile message occurred
type LogContext struct {
	// FilePath is the path to the source file the message applies to
	FilePath string

	// WordName is the name of the word definition being compiled when the
	// message was produced; empty for top-level code
	WordName string
}

// LogMessage is the interface implemented by everything the logger can process
type LogMessage interface {
	display()
	isError() bool
}

// Enumeration of the different kinds of compile messages
const (
	LMKSyntax = iota // malformed source text
	LMKToken         // unexpected or invalid token
	LMKDef           // word definition errors (redefinition, unterminated, etc.)
	LMKEffect        // stack effect violations (underflow, overflow, mismatch)
	LMKOptim         // optimizer structural failures
	LMKUsage         // misuse of a built-in word
)

// CompileMessage is a message (error or warning) produced while compiling user
// code.  It carries a position so the offending source can be displayed.
type CompileMessage struct {
	Message  string
	Kind     int
	Position *TextPosition
	Context  *LogContext
	IsError  bool
}

func (cm *CompileMessage) isError() bool {
	return cm.IsError
}

// ConfigError is an error related to project or compiler configuration; it has
// no associated source position
type ConfigError struct {
	Kind    string
	Message string
}

func (ce *ConfigError) isError() bool {
	return true
}
