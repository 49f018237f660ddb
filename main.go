package main

import "github.com/saadjs/foodkit/cmd/foodkit"

func main() {
	foodkit.Execute()
}
