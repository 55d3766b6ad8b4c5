package main

import "github.com/andresmejia3/faceguard/cmd"

func main() {
	cmd.Execute()
}
