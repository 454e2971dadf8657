package main

import "github.com/trackify-app/trackify/cmd/trackify/cmd"

func main() {
	cmd.Execute()
}
