package rhdlapi

// These consts are used in various places across the compiler packages.
// Instead of scattering bool flags across every file, we define them here
// so there's one place to flip when debugging a miscompilation.

// ----- Validations -----
// MIRValidationEnabled makes mirpass.Run verify the Object before and
// after every pass; it stays enabled by default. CoherenceLoggingEnabled
// is off by default. SymtabValidationEnabled is not read by any package.

const (
	SymtabValidationEnabled = true
	MIRValidationEnabled    = true
	CoherenceLoggingEnabled = false
)

// ----- Output prints -----
// Disabled by default; flip on only when debugging a specific stage.

const (
	PrintMIR = false
	PrintRTL = false
	PrintNTL = false
	PrintHDL = false
)
