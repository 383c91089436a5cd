// Package main is the entry point for recordbase.
package main

func main() {
	Execute()
}
