package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/antoniostano/ironhand/internal/dice"
)

func runRoll(cmd *cobra.Command, args []string) error {
	roller := dice.NewRoller()
	if rollSeed != 0 {
		roller = dice.NewSeededRoller(rollSeed)
	}
	res, err := roller.Roll(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Rendering)
	return nil
}
