// Command machinectl is a small CLI that wires an in-memory persistence
// store and a stub echo charter together and drives runMachine end to end,
// grounded on the teacher's cmd/demo/main.go generalized into a cobra CLI
// (SPEC_FULL.md §C.5).
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/chartrun/machine/charter"
	"github.com/chartrun/machine/command"
	"github.com/chartrun/machine/executor"
	"github.com/chartrun/machine/instance"
	"github.com/chartrun/machine/machine"
	"github.com/chartrun/machine/persistence"
	"github.com/chartrun/machine/persistence/memory"
	"github.com/chartrun/machine/serializer"
	"github.com/chartrun/machine/telemetry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "machinectl",
		Short: "Drive a demo charter through the machine runtime",
	}
	root.AddCommand(newRunCmd(), newResumeCmd(), newCommandCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "run [message]",
		Short: "Start or continue a turn with a plain user message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTurn(cmd.Context(), sessionID, machine.UserInput(args[0]))
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "demo", "session id to persist the turn under")
	return cmd
}

func newResumeCmd() *cobra.Command {
	var sessionID, suspendID, payload string
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume a suspended instance with a payload string",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTurn(cmd.Context(), sessionID, machine.ResumeInput(suspendID, payload, false))
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "demo", "session id to persist the turn under")
	cmd.Flags().StringVar(&suspendID, "suspend-id", "", "suspend id to resume")
	cmd.Flags().StringVar(&payload, "payload", "", "resume payload")
	_ = cmd.MarkFlagRequired("suspend-id")
	return cmd
}

// newCommandCmd demonstrates the synchronous command path (§4.5): it runs
// the named command (the demo charter defines only "reset") against a fresh
// machine without touching inference at all.
func newCommandCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "command [name]",
		Short: "Invoke a synchronous command against a fresh machine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ch, err := buildDemoCharter()
			if err != nil {
				return err
			}
			root := instance.CreateInstance(ch.Nodes["greeter"], nil, nil)
			m, err := instance.CreateMachine(ch, instance.MachineConfig{Instance: root})
			if err != nil {
				return err
			}
			res, err := command.Run(cmd.Context(), m, args[0], nil, "")
			if err != nil {
				return err
			}
			fmt.Printf("command %q -> value=%v yield=%s\n", args[0], res.Value, res.YieldReason)
			return nil
		},
	}
	return cmd
}

// runTurn builds the demo charter and machine fresh each invocation (the
// in-memory store is process-local, so this CLI is a single-shot demo, not
// a durable multi-invocation session manager).
func runTurn(ctx context.Context, sessionID string, in machine.Input) error {
	ch, err := buildDemoCharter()
	if err != nil {
		return err
	}
	root := instance.CreateInstance(ch.Nodes["greeter"], nil, nil)
	m, err := instance.CreateMachine(ch, instance.MachineConfig{Instance: root})
	if err != nil {
		return err
	}

	store := memory.New()
	if _, err := store.Sessions().CreateSession(ctx, sessionID, time.Now().UTC()); err != nil {
		return err
	}

	log := telemetry.NewNoopLogger()
	turnID := charter.NewID()
	stepIndex := 0
	for step := range machine.Run(ctx, m, in, machine.Options{}, log) {
		fmt.Printf("step %d: yield=%s done=%v response=%q\n", stepIndex, step.YieldReason, step.Done, step.Response)
		if err := store.Steps().AddStep(ctx, persistence.StepRecord{
			TurnID: turnID, Index: stepIndex, YieldReason: step.YieldReason,
			Response: step.Response, Done: step.Done, Messages: step.Messages,
		}); err != nil {
			return err
		}
		stepIndex++
	}

	sm := serializer.SerializeMachine(m)
	if _, err := store.Turns().CreateTurn(ctx, persistence.Turn{
		ID: turnID, SessionID: sessionID, InstanceID: m.Root.ID,
		Instance: sm.Instance, Messages: sm.History,
	}); err != nil {
		return err
	}
	_, err = store.Sessions().PatchSession(ctx, sessionID, turnID)
	return err
}

// buildDemoCharter wires a single-node charter around an echo tool: the
// node replies by calling the echo tool, which is marked terminal so the
// turn ends after one tool round trip against echoBackend (backend.go)
// rather than a real provider.
func buildDemoCharter() (*charter.Charter, error) {
	echoTool := &charter.Tool{
		Name:        "echo",
		Description: "Echo the caller's input back as the tool result.",
		Terminal:    true,
		Execute: func(_ context.Context, input map[string]any, _ charter.ToolContext) (charter.ToolResult, error) {
			return charter.PlainToolResult(input), nil
		},
	}

	resetCmd := &charter.Command{
		Name:        "reset",
		Description: "Clear the greeter's state.",
		Execute: func(_ context.Context, _ map[string]any, _ charter.CommandContext) (charter.CommandResult, error) {
			return charter.ValueResult("reset", map[string]any{}), nil
		},
	}

	greeter := charter.NewNode("greeter")
	greeter.Instructions = "Greet the user and echo whatever they say using the echo tool."
	greeter.Tools["echo"] = echoTool
	greeter.Commands["reset"] = resetCmd
	greeter.InitialState = map[string]any{"greeted": false}

	exec, err := executor.New(newEchoBackend(), executor.Options{})
	if err != nil {
		return nil, err
	}

	return charter.CreateCharter(charter.CharterConfig{
		Name:     "demo",
		Executor: exec,
		Nodes:    []*charter.Node{greeter},
	})
}
