package ui

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
)

// Table displays data in a formatted table.
func Table(headers []string, rows [][]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, strings.Join(headers, "\t"))

	separator := make([]string, len(headers))
	for i := range separator {
		separator[i] = strings.Repeat("-", len(headers[i]))
	}
	fmt.Fprintln(w, strings.Join(separator, "\t"))

	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	_ = w.Flush()
}

// Section displays a section header.
func Section(title string) {
	fmt.Fprintf(os.Stdout, "\n%s\n%s\n\n", title, strings.Repeat("=", len(title)))
}

// Success displays a success message.
func Success(format string, args ...interface{}) {
	if noColorFlag {
		fmt.Printf("✓ %s\n", fmt.Sprintf(format, args...))
		return
	}
	color.New(color.FgGreen).Printf("✓ %s\n", fmt.Sprintf(format, args...))
}

// Error displays an error message to stderr.
func Error(format string, args ...interface{}) {
	if noColorFlag {
		fmt.Fprintf(os.Stderr, "✗ %s\n", fmt.Sprintf(format, args...))
		return
	}
	color.New(color.FgRed).Fprintf(os.Stderr, "✗ %s\n", fmt.Sprintf(format, args...))
}

// Warning displays a warning message.
func Warning(format string, args ...interface{}) {
	if noColorFlag {
		fmt.Printf("⚠ %s\n", fmt.Sprintf(format, args...))
		return
	}
	color.New(color.FgYellow).Printf("⚠ %s\n", fmt.Sprintf(format, args...))
}

// Info displays an informational message.
func Info(format string, args ...interface{}) {
	fmt.Printf("ℹ %s\n", fmt.Sprintf(format, args...))
}

// Message displays a plain message.
func Message(format string, args ...interface{}) {
	fmt.Printf(format+"\n", args...)
}
