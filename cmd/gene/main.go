// Command gene runs a fibonacci example through the parser, compiler and
// register-based virtual machine and prints the resulting value.
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"

	"gene/internal/compregister"
	"gene/internal/parser"
	"gene/internal/vmregister"
)

const fibonacciSource = `
(fn fib [n]
	(if (n < 2) n else ((fib (n - 1)) + (fib (n - 2)))))
(fib %d)
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "gene: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: gene <n>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return errors.Wrap(err, "invalid argument")
	}

	start := time.Now()
	source := fmt.Sprintf(fibonacciSource, n)

	parsed, err := parser.Parse(source)
	if err != nil {
		return errors.Wrap(err, "parse error")
	}
	module, err := compregister.Compile(parsed)
	if err != nil {
		return errors.Wrap(err, "compile error")
	}
	result, err := vmregister.New(module).Run()
	if err != nil {
		return errors.Wrap(err, "runtime error")
	}

	fmt.Println(result.String())
	if isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Fprintf(os.Stderr, "fib(%d) started %s\n", n, humanize.Time(start))
	}
	return nil
}
