package main

import "github.com/KaramelBytes/csvinsight/cmd"

func main() {
	cmd.Execute()
}
