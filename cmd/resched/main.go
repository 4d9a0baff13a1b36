package main

import "github.com/schedlab/resched/cmd/resched/cmd"

func main() {
	cmd.Execute()
}
