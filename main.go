package main

import "github.com/qrave1/InterviewRoom/cmd"

func main() {
	cmd.Execute()
}
