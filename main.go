package main

import (
	"fmt"

	"github.com/webitel/typing-tournament/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		fmt.Println(err.Error())
		return
	}
}
