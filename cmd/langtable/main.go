// Package main provides the entry point for the langtable CLI.
//
// langtable collects item names and their English, Japanese and Vietnamese
// translations from a wiki index page and its detail pages.
//
// Usage:
//
//	langtable run [flags]
//	langtable serve
//
// See --help for all available options.
package main

func main() {
	Execute()
}
