package game

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/antoniostano/ironhand/internal/rules"
	"github.com/antoniostano/ironhand/internal/session"
)

const missingNotationMessage = "Invalid roll command. Please provide dice notation (e.g., /r 1d100)."

var errNotRollCommand = errors.New("not a roll command")

// RollCommand is a parsed "/r <notation> [check name]" command.
type RollCommand struct {
	Notation string
	Check    string
}

// ParseRollCommand accepts "/r" or "/roll" followed by a notation and an
// optional check name that may span several words ("Melee (Basic)").
func ParseRollCommand(command string) (RollCommand, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return RollCommand{}, errNotRollCommand
	}
	switch strings.ToLower(fields[0]) {
	case "/r", "/roll":
	default:
		return RollCommand{}, errNotRollCommand
	}
	if len(fields) < 2 {
		return RollCommand{}, nil
	}
	return RollCommand{
		Notation: fields[1],
		Check:    strings.Join(fields[2:], " "),
	}, nil
}

// handleManualRoll records the command, rolls it, and when a check name is
// given resolves the rolled total against the character's score. No
// generator is involved.
func (o *Orchestrator) handleManualRoll(ctx context.Context, sessionID, command string) error {
	command = strings.TrimSpace(command)
	sess, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if _, err := o.appendEntry(ctx, sessionID, session.KindPlayer, command); err != nil {
		return err
	}

	cmd, err := ParseRollCommand(command)
	if err != nil {
		_, err := o.appendEntry(ctx, sessionID, session.KindSystem,
			fmt.Sprintf("Unrecognised roll command %q. Use /r <notation> [check].", command))
		return err
	}
	if cmd.Notation == "" {
		_, err := o.appendEntry(ctx, sessionID, session.KindSystem, missingNotationMessage)
		return err
	}

	result, err := o.roller.Roll(cmd.Notation)
	if err != nil {
		_, err := o.appendEntry(ctx, sessionID, session.KindSystem, fmt.Sprintf("Error processing roll: %v", err))
		return err
	}

	sheet, err := o.loadSheet(ctx, sess.CharacterID)
	if err != nil {
		return err
	}

	content := fmt.Sprintf("%s rolls %s", sheet.Name, result.Rendering)
	if cmd.Check != "" {
		check := rules.ResolveWithRoll(sheet, cmd.Check, 0, result.Total)
		o.countCheck("manual", check)
		outcome := "Failure"
		if check.Success {
			outcome = "Success"
		}
		content = fmt.Sprintf("%s rolls %s against a target of %d (%s). Result: %s (SL %d)",
			sheet.Name, result.Rendering, check.TargetNumber, strings.ToUpper(cmd.Check), outcome, check.SuccessLevel)
	}
	_, err = o.appendEntry(ctx, sessionID, session.KindRoll, content)
	return err
}
