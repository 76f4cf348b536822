package main

import "github.com/ukogan/removebadphotos/cmd"

func main() {
	cmd.Execute()
}
