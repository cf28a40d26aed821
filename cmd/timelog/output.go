package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// emph renders s in bold. fatih/color drops the escape codes when stdout is
// not a terminal.
var emph = color.New(color.Bold).SprintFunc()

var warnColor = color.New(color.FgYellow)

func info(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, format+"\n", args...)
}

func warn(w io.Writer, format string, args ...interface{}) {
	warnColor.Fprintf(w, "warning: "+format+"\n", args...)
}

func projectSuffix(project string) string {
	if project == "" {
		return ""
	}
	return " in project " + emph(project)
}
