package game

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/antoniostano/ironhand/internal/narrator"
	"github.com/antoniostano/ironhand/internal/session"
)

// handleAction runs a free-text action through classification and, when the
// generator asks for one, a percentile check.
func (o *Orchestrator) handleAction(ctx context.Context, sessionID, action string) error {
	action = strings.TrimSpace(action)
	sess, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	sheet, err := o.loadSheet(ctx, sess.CharacterID)
	if err != nil {
		return err
	}

	// The prompt context is the history before this action; the action
	// itself is passed separately.
	history := sess.Context()
	if _, err := o.appendEntry(ctx, sessionID, session.KindPlayer, action); err != nil {
		return err
	}

	response := o.narrator.Generate(ctx, narrator.ActionPrompt(narrator.ActionInput{
		Context:   history,
		Location:  sess.State.CurrentLocation,
		Character: sheet,
		Action:    action,
	}))

	switch c := narrator.Classify(response).(type) {
	case narrator.RequiresCheck:
		o.logger.Debug("action requires check",
			zap.String("session_id", sessionID),
			zap.String("skill", c.Skill),
			zap.Int("modifier", c.Modifier),
		)
		if _, err := o.appendEntry(ctx, sessionID, session.KindSystem, fmt.Sprintf("A %s check is required.", c.Skill)); err != nil {
			return err
		}
		check := o.resolver.Resolve(sheet, c.Skill, c.Modifier)
		o.countCheck("action", check)
		if _, err := o.appendEntry(ctx, sessionID, session.KindRoll, fmt.Sprintf(
			"%s rolls against a target of %d for %s. Roll: %d.",
			sheet.Name, check.TargetNumber, check.Name, check.Roll,
		)); err != nil {
			return err
		}
		if _, err := o.appendEntry(ctx, sessionID, session.KindSystem, fmt.Sprintf(
			"Success Level: %d. %s", check.SuccessLevel, verdict(check.Success),
		)); err != nil {
			return err
		}
		outcome := o.narrator.Generate(ctx, narrator.OutcomePrompt(sheet, check.Name, check.Success, check.SuccessLevel))
		if _, err := o.appendEntry(ctx, sessionID, session.KindNarrative, outcome); err != nil {
			return err
		}
	case narrator.DirectNarrative:
		if _, err := o.appendEntry(ctx, sessionID, session.KindNarrative, c.Text); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unexpected classification %T", c)
	}
	return nil
}

func verdict(success bool) string {
	if success {
		return "Success!"
	}
	return "Failure."
}
