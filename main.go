package main

import "github.com/finadmin/expense-authorization/cmd"

func main() {
	cmd.Execute()
}
