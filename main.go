package main

import "github.com/frahmantamala/asubt-console/cmd"

func main() {
	cmd.Execute()
}
