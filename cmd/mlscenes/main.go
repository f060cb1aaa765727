// Command mlscenes runs agents in the cross-the-road and Pyramids
// scenarios and inspects the statistics of finished runs.
//
// Usage:
//
//	mlscenes run -config configs/crossroad.yaml -episodes 100 -db runs.db
//	mlscenes stats -db runs.db [-run ID]
//	mlscenes validate configs/*.yaml
package main

import (
	"fmt"
	"log"
	"os"
)

var logger = log.New(os.Stderr, "mlscenes: ", log.LstdFlags)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: mlscenes <run|stats|validate> [flags]")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = runCmd(os.Args[2:])
	case "stats":
		err = statsCmd(os.Args[2:])
	case "validate":
		err = validateCmd(os.Args[2:])
	case "-h", "-help", "--help", "help":
		usage()
		return
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		logger.Fatal(err)
	}
}
