package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/swind/go-prettytrace/prettytrace"
)

func main() {
	noColor := flag.Bool("no-color", false, "disable ANSI colors in the report")
	flag.Parse()

	colorEnabled := !*noColor && prettytrace.TerminalSupportsColor(os.Stderr)

	interceptor := prettytrace.New().
		WithColor(colorEnabled).
		WithReraise(false)

	if err := interceptor.Call(funcA); err != nil {
		fmt.Fprintln(os.Stderr, "demo finished:", err)
		os.Exit(1)
	}
}

func funcA(tr *prettytrace.Trace) (err error) {
	fr := tr.Enter("funcA")
	defer fr.End(&err)

	a := 1
	fr.Set("a", a)
	return funcB(tr, a)
}

func funcB(tr *prettytrace.Trace, a int) (err error) {
	fr := tr.Enter("funcB")
	defer fr.End(&err)

	b := "two"
	fr.Set("a", a).Set("b", b)
	return funcC(tr, a)
}

func funcC(tr *prettytrace.Trace, a int) (err error) {
	fr := tr.Enter("funcC")
	defer fr.End(&err)

	c := []int{3}
	zero := len(c) - 1
	fr.Set("c", c).Set("zero", zero)
	_ = a / zero
	return nil
}
