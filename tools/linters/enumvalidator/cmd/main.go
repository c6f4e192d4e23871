package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"dealroom.app/broker/tools/linters/enumvalidator"
)

func main() {
	singlechecker.Main(enumvalidator.Analyzer)
}
