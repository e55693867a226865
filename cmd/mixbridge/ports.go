package main

import (
	"fmt"
	"io"

	"github.com/germanamz/mixbridge/pkg/surfaces/midisurface"
)

func runPorts(w io.Writer) {
	ins, outs := midisurface.Ports()
	printPorts(w, "Inputs", ins)
	printPorts(w, "Outputs", outs)
}

func printPorts(w io.Writer, title string, ports []string) {
	fmt.Fprintf(w, "%s:\n", title)
	if len(ports) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for i, p := range ports {
		fmt.Fprintf(w, "  %d: %s\n", i, p)
	}
}
