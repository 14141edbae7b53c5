package teleop

import "github.com/open-teleop/console/pkg/observable"

// CommandState publishes the last fused command. The control loop is the only
// writer.
type CommandState struct {
	value *observable.Value[MovementCommand]
}

// NewCommandState creates a state holding the zero command.
func NewCommandState() *CommandState {
	return &CommandState{value: observable.NewValue(ZeroCommand)}
}

// Publish overwrites the latest command.
func (s *CommandState) Publish(cmd MovementCommand) {
	s.value.Set(cmd)
}

// Latest returns the most recently published command.
func (s *CommandState) Latest() MovementCommand {
	return s.value.Get()
}

// Subscribe streams published commands, latest wins.
func (s *CommandState) Subscribe() (<-chan MovementCommand, func()) {
	return s.value.Subscribe()
}
