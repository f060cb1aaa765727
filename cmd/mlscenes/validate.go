package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/samuelfneumann/mlscenes/environment/envconfig"
)

func validateCmd(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() == 0 {
		return errors.New("validate: no config files given")
	}

	failed := 0
	for _, path := range fs.Args() {
		cfg, err := envconfig.Load(path)
		if err == nil {
			err = cfg.Validate()
		}
		if err != nil {
			failed++
			fmt.Printf("%s: %v\n", path, err)
			continue
		}
		fmt.Printf("%s: ok (%s)\n", path, cfg.Scenario)
	}

	if failed > 0 {
		return fmt.Errorf("validate: %d of %d configs invalid", failed,
			fs.NArg())
	}
	return nil
}
