// Command formula evaluates mathematical expressions.
//
// Expressions come from the command line arguments, from the file named by
// -in, from the expressions list of a -config file, or from standard input
// when there are no others. Each is evaluated and its result printed on its
// own line.
package main

import "os"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
