package runtime

import (
	"strconv"

	"github.com/aretw0/gmp/pkg/domain"
)

// DefaultDestinationPrefix is prepended to the sequence command to name
// the destination of a message.
const DefaultDestinationPrefix = "GMP.SC."

// MessageBuilder projects Actions onto handler paths.
type MessageBuilder struct {
	prefix string
}

// NewMessageBuilder creates a MessageBuilder naming destinations with prefix.
func NewMessageBuilder(prefix string) *MessageBuilder {
	return &MessageBuilder{prefix: prefix}
}

// Destination returns the destination handling sc at path. An empty path
// addresses the handler of the whole sequence command.
func (b *MessageBuilder) Destination(sc domain.SequenceCommand, path domain.ConfigPath) string {
	if path.IsEmpty() {
		return b.prefix + string(sc)
	}
	return b.prefix + string(sc) + "/" + path.String()
}

// BuildActionMessage implements ports.ActionMessageBuilder. The data
// elements are the entries of the Action's configuration at or below path,
// keyed by their full path.
func (b *MessageBuilder) BuildActionMessage(action *domain.Action, path domain.ConfigPath) domain.ActionMessage {
	cmd := action.Command()
	return domain.ActionMessage{
		Destination:     b.Destination(cmd.SequenceCommand, path),
		ActionID:        action.ID(),
		SequenceCommand: cmd.SequenceCommand,
		Activity:        cmd.Activity,
		Path:            path,
		Properties: map[string]string{
			domain.PropActivity: string(cmd.Activity),
			domain.PropActionID: strconv.FormatInt(action.ID(), 10),
		},
		DataElements: cmd.Configuration.SubConfiguration(path).ToMap(),
	}
}
