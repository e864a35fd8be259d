package domain

import (
	"fmt"
	"strings"
)

// SequenceCommand names the kind of command sent by the observatory.
type SequenceCommand string

const (
	SequenceTest        SequenceCommand = "TEST"
	SequenceReboot      SequenceCommand = "REBOOT"
	SequenceInit        SequenceCommand = "INIT"
	SequenceDatum       SequenceCommand = "DATUM"
	SequencePark        SequenceCommand = "PARK"
	SequenceVerify      SequenceCommand = "VERIFY"
	SequenceEndVerify   SequenceCommand = "END_VERIFY"
	SequenceGuide       SequenceCommand = "GUIDE"
	SequenceEndGuide    SequenceCommand = "END_GUIDE"
	SequenceApply       SequenceCommand = "APPLY"
	SequenceObserve     SequenceCommand = "OBSERVE"
	SequenceEndObserve  SequenceCommand = "END_OBSERVE"
	SequencePause       SequenceCommand = "PAUSE"
	SequenceContinue    SequenceCommand = "CONTINUE"
	SequenceStop        SequenceCommand = "STOP"
	SequenceStopCycle   SequenceCommand = "STOP_CYCLE"
	SequenceAbort       SequenceCommand = "ABORT"
	SequenceEngineering SequenceCommand = "ENGINEERING"
)

var sequenceCommands = []SequenceCommand{
	SequenceTest, SequenceReboot, SequenceInit, SequenceDatum, SequencePark,
	SequenceVerify, SequenceEndVerify, SequenceGuide, SequenceEndGuide,
	SequenceApply, SequenceObserve, SequenceEndObserve, SequencePause,
	SequenceContinue, SequenceStop, SequenceStopCycle, SequenceAbort,
	SequenceEngineering,
}

// SequenceCommands returns every known sequence command.
func SequenceCommands() []SequenceCommand {
	return append([]SequenceCommand(nil), sequenceCommands...)
}

// ParseSequenceCommand parses a sequence command name, ignoring case.
func ParseSequenceCommand(name string) (SequenceCommand, error) {
	n := SequenceCommand(strings.ToUpper(strings.TrimSpace(name)))
	for _, sc := range sequenceCommands {
		if sc == n {
			return sc, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSequenceCommand, name)
}

// Activity is the execution mode requested for a sequence command.
type Activity string

const (
	ActivityPreset      Activity = "PRESET"
	ActivityStart       Activity = "START"
	ActivityPresetStart Activity = "PRESET_START"
	ActivityCancel      Activity = "CANCEL"
)

// ParseActivity parses an activity name, ignoring case.
func ParseActivity(name string) (Activity, error) {
	switch a := Activity(strings.ToUpper(strings.TrimSpace(name))); a {
	case ActivityPreset, ActivityStart, ActivityPresetStart, ActivityCancel:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownActivity, name)
}

// Command is a sequence command, its activity and its configuration.
type Command struct {
	SequenceCommand SequenceCommand
	Activity        Activity
	Configuration   Configuration
}

// NewCommand creates a Command.
func NewCommand(sc SequenceCommand, activity Activity, config Configuration) Command {
	return Command{SequenceCommand: sc, Activity: activity, Configuration: config}
}

// Equal compares commands structurally.
func (c Command) Equal(other Command) bool {
	return c.SequenceCommand == other.SequenceCommand &&
		c.Activity == other.Activity &&
		c.Configuration.Equal(other.Configuration)
}

func (c Command) String() string {
	return fmt.Sprintf("%s/%s %s", c.SequenceCommand, c.Activity, c.Configuration)
}
