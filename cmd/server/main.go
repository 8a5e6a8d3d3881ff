package main

import "github.com/franckalain/fooddiary/internal/cli"

func main() {
	cli.Execute()
}
