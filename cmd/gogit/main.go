// Command gogit is a small, standalone implementation of a handful of
// git plumbing and porcelain commands: enough to init a repository,
// hash and inspect objects, build trees and commits by hand, and clone
// a remote repository over smart-HTTP.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
