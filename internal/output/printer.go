// Package output formats CLI output for the terminal.
package output

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fatih/color"

	"github.com/trackify-app/trackify/internal/domain/inspector"
	"github.com/trackify-app/trackify/internal/domain/location"
	"github.com/trackify-app/trackify/internal/port/outbound"
)

// Printer handles formatted output to the terminal
type Printer struct {
	out       io.Writer
	err       io.Writer
	useColors bool
}

// ResolveColors determines whether to use colors from config and environment
func ResolveColors(configColors bool) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return configColors
}

// NewPrinter creates a printer on stdout/stderr.
func NewPrinter(useColors bool) *Printer {
	return NewPrinterWithWriters(os.Stdout, os.Stderr, useColors)
}

// NewPrinterWithWriters creates a printer on custom writers.
func NewPrinterWithWriters(out, errOut io.Writer, useColors bool) *Printer {
	return &Printer{out: out, err: errOut, useColors: useColors}
}

// Out returns the standard output writer.
func (p *Printer) Out() io.Writer {
	return p.out
}

// Info prints an informational message
func (p *Printer) Info(format string, args ...interface{}) {
	if p.useColors {
		color.New(color.FgCyan).Fprintf(p.out, format+"\n", args...)
	} else {
		fmt.Fprintf(p.out, format+"\n", args...)
	}
}

// Success prints a success message
func (p *Printer) Success(format string, args ...interface{}) {
	if p.useColors {
		color.New(color.FgGreen).Fprintf(p.out, "✓ "+format+"\n", args...)
	} else {
		fmt.Fprintf(p.out, "[OK] "+format+"\n", args...)
	}
}

// Warning prints a warning message
func (p *Printer) Warning(format string, args ...interface{}) {
	if p.useColors {
		color.New(color.FgYellow).Fprintf(p.err, "⚠ "+format+"\n", args...)
	} else {
		fmt.Fprintf(p.err, "[WARN] "+format+"\n", args...)
	}
}

// Error prints an error message
func (p *Printer) Error(format string, args ...interface{}) {
	if p.useColors {
		color.New(color.FgRed).Fprintf(p.err, "✗ "+format+"\n", args...)
	} else {
		fmt.Fprintf(p.err, "[ERROR] "+format+"\n", args...)
	}
}

// Header prints a section header
func (p *Printer) Header(title string) {
	if p.useColors {
		color.New(color.FgWhite, color.Bold).Fprintf(p.out, "\n%s\n", title)
		color.New(color.FgWhite).Fprintf(p.out, "%s\n", repeatChar('─', len([]rune(title))))
	} else {
		fmt.Fprintf(p.out, "\n%s\n%s\n", title, repeatChar('-', len([]rune(title))))
	}
}

// Presence returns the Online/Offline badge.
func (p *Printer) Presence(online bool) string {
	label := "Offline"
	if online {
		label = "Online"
	}
	if !p.useColors {
		return label
	}
	if online {
		return color.GreenString("● " + label)
	}
	return color.RedString("● " + label)
}

// Sample prints one acknowledged position.
func (p *Printer) Sample(s location.PositionSample) {
	p.Info("Latitude: %s  Longitude: %s  Accuracy: %sm  Speed: %s",
		formatCoord(s.Latitude), formatCoord(s.Longitude),
		strconv.FormatFloat(s.Accuracy, 'f', -1, 64), s.SpeedLabel())
}

// Inspection prints the inspector view. mv is printed when the map overlay is open.
func (p *Printer) Inspection(v *inspector.View, mv *outbound.MapView) {
	if v.Loading() {
		p.Info("Loading...")
		return
	}

	p.Header(v.Title())
	if v.Profile.Err != "" {
		p.Error("%s", v.Profile.Err)
	} else if prof := v.Profile.Profile; prof != nil {
		fmt.Fprintf(p.out, "Name:   %s\n", joinName(prof.FirstName, prof.LastName))
		fmt.Fprintf(p.out, "Email:  %s\n", prof.EmailID)
		fmt.Fprintf(p.out, "Status: %s\n", p.Presence(prof.IsOnline))
	}

	p.Header("Last Known Location")
	switch v.Location.State {
	case inspector.LocationFetching:
		p.Info("Fetching location...")
	case inspector.LocationError:
		p.Error("%s", v.Location.Err)
	case inspector.LocationNoData:
		p.Info("No location data available.")
	case inspector.LocationAvailable:
		p.Sample(*v.Location.Sample)
	}

	if mv != nil {
		p.Header(mapTitle(v))
		fmt.Fprintf(p.out, "%s\n", mv.Popup)
		fmt.Fprintf(p.out, "Map:   %s\n", mv.LinkURL)
		fmt.Fprintf(p.out, "Embed: %s\n", mv.EmbedURL)
	} else if v.MapAvailable() {
		fmt.Fprintf(p.out, "%s\n", p.Dim("Run with --map to open the map."))
	}
}

// Dim returns dimmed text
func (p *Printer) Dim(text string) string {
	if p.useColors {
		return color.New(color.Faint).Sprint(text)
	}
	return text
}

func mapTitle(v *inspector.View) string {
	name := ""
	if v.Profile.Profile != nil {
		name = v.Profile.Profile.FirstName
	}
	return name + "'s Location Map"
}

func joinName(first, last string) string {
	if last == "" {
		return first
	}
	return first + " " + last
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func repeatChar(char rune, count int) string {
	result := make([]rune, count)
	for i := range result {
		result[i] = char
	}
	return string(result)
}
