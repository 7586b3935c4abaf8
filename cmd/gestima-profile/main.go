package main

import "github.com/kg46sp8kps-web/gestima-sub000/internal/cli"

func main() {
	cli.Execute()
}
