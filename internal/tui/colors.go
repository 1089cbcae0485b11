package tui

// Color constants for the worklens timer theme
const (
	// Text Colors
	ColorPrimaryText   = "#E6EAF2" // Titles and the clock
	ColorSecondaryText = "#B1B8C7" // Session info line
	ColorHelpText      = "240"     // Dark grey for the help bar

	// Accent Colors
	ColorAccentMain   = "#7C3AED" // Accent elements
	ColorAccentBright = "#A78BFA" // Tracking header

	// State Colors
	ColorError   = "#EF4444" // Errors
	ColorSuccess = "#22C55E" // Stop confirmation
	ColorWarning = "#F59E0B" // Paused header
)
