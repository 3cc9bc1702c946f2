package main

import "clinicsync/cmd/client/cmd"

func main() {
	cmd.Execute()
}
