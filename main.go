package main

import "github.com/JakeTRogers/hpoBuddy/cmd"

func main() {
	cmd.Execute()
}
