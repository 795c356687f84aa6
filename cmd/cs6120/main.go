// The cs6120 command runs the optimizer pipeline over a bril program read
// from standard input.
package main

import (
	"os"

	"github.com/he-andy/cs6120/driver"
)

func main() {
	os.Exit(driver.Run(os.Stdin, os.Stdout, os.Stderr, os.Args))
}
