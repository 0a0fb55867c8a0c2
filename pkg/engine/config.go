package engine

import (
	"runtime"
	"time"

	"github.com/wildfunctions/calcblocks/pkg/calc"
)

// Config holds all parameters for a run over one or more notes.
type Config struct {
	Interpreter string        // registered interpreter name
	Command     []string      // program for the process interpreter
	Timeout     time.Duration // per block
	StorePath   string        // variable snapshot file; empty keeps state in memory
	Display     calc.DisplayOptions
	Format      string // "text", "json" or "latex"
	LogLevel    string
	Workers     int    // notes run in parallel
	OutDir      string // write a .tex per note when set
	PDF         bool   // also compile the .tex with pdflatex
	AssignIDs   bool   // give blocks without an id a fresh one and rewrite the note
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interpreter: "native",
		Timeout:     30 * time.Second,
		StorePath:   ".calcblocks.json",
		Display:     calc.DefaultDisplay(),
		Format:      "text",
		LogLevel:    "info",
		Workers:     runtime.NumCPU(),
	}
}
