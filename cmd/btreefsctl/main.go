/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/ssargent/btreefs/cmd/btreefsctl/cmd"

func main() {
	cmd.Execute()
}
