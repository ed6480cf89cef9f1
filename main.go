package main

import (
	_ "github.com/microsoft/go-mssqldb"

	"github.com/meridian-db/meridian/cmd"
)

func main() {
	cmd.Execute()
}
