// Package main provides the plugwarden CLI for plugin capability management.
package main

func main() {
	Execute()
}
