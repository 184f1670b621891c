package main

import "github.com/user/datadesk/internal/cli"

func main() {
	cli.Execute()
}
