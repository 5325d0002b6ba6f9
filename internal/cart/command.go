package cart

import (
	"context"
	"fmt"
)

// CommandKind enumerates the UI triggers the manager accepts.
type CommandKind int

const (
	CommandAdd CommandKind = iota + 1
	CommandIncrement
	CommandDecrement
	CommandClear
)

func (k CommandKind) String() string {
	switch k {
	case CommandAdd:
		return "add"
	case CommandIncrement:
		return "increment"
	case CommandDecrement:
		return "decrement"
	case CommandClear:
		return "clear"
	default:
		return fmt.Sprintf("CommandKind(%d)", int(k))
	}
}

// Command is one discrete UI trigger.
type Command struct {
	Kind  CommandKind
	ID    string
	Name  string
	Price float64
	Image string
}

// Add builds an add command. The display name doubles as the id.
func Add(name string, price float64, image string) Command {
	return Command{Kind: CommandAdd, ID: name, Name: name, Price: price, Image: image}
}

func Increment(id string) Command {
	return Command{Kind: CommandIncrement, ID: id}
}

func Decrement(id string) Command {
	return Command{Kind: CommandDecrement, ID: id}
}

func Clear() Command {
	return Command{Kind: CommandClear}
}

// Dispatch runs cmd to completion.
func (m *Manager) Dispatch(ctx context.Context, cmd Command) error {
	switch cmd.Kind {
	case CommandAdd:
		return m.AddItem(ctx, cmd.ID, cmd.Name, cmd.Price, cmd.Image)
	case CommandIncrement:
		return m.IncrementItem(ctx, cmd.ID)
	case CommandDecrement:
		return m.DecrementItem(ctx, cmd.ID)
	case CommandClear:
		return m.Clear(ctx)
	default:
		return fmt.Errorf("unknown command %s", cmd.Kind)
	}
}
