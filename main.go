// Package main is the entry point for the indexopt application
package main

import "github.com/ethpandaops/indexopt/cmd"

func main() {
	cmd.Execute()
}
