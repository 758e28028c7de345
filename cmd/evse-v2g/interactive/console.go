// Package interactive provides the control console of evse-v2g.
//
// Each console command becomes a control event pushed to the running
// sessions, standing in for the charger's power electronics and
// authorization backend.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/evse-go/iso15118/pkg/control"
	"github.com/evse-go/iso15118/pkg/message"
)

// ErrUsage reports a malformed command.
var ErrUsage = errors.New("usage")

// Controller is the part of the session manager the console drives.
type Controller interface {
	Broadcast(ev control.Event) error
	Push(id string, ev control.Event) error
	ActiveIDs() []string
}

// Console reads commands from a terminal.
type Console struct {
	ctrl Controller
	rl   *readline.Instance
}

// New creates a console with its own readline instance.
func New(ctrl Controller) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "secc> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("help"),
			readline.PcItem("sessions"),
			readline.PcItem("auth", readline.PcItem("accept"), readline.PcItem("reject")),
			readline.PcItem("cablecheck", readline.PcItem("ok"), readline.PcItem("fail")),
			readline.PcItem("present"),
			readline.PcItem("dclimits"),
			readline.PcItem("actarget"),
			readline.PcItem("acpresent"),
			readline.PcItem("pause"),
			readline.PcItem("resume"),
			readline.PcItem("stop"),
			readline.PcItem("quit"),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{ctrl: ctrl, rl: rl}, nil
}

// Stdout returns a writer that keeps log output off the prompt line.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Stderr returns a writer that keeps log output off the prompt line.
func (c *Console) Stderr() io.Writer {
	return c.rl.Stderr()
}

// Run reads commands until quit, EOF or ctx is cancelled.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}
		if quit := c.Execute(c.rl.Stdout(), line); quit {
			cancel()
			return
		}
	}
}

// Execute runs one command line and reports whether the console should
// exit.
func (c *Console) Execute(out io.Writer, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "help", "?":
		c.printHelpTo(out)
		return false
	case "quit", "exit", "q":
		fmt.Fprintln(out, "Exiting...")
		return true
	case "sessions", "s":
		ids := c.ctrl.ActiveIDs()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No active sessions")
		}
		for _, id := range ids {
			fmt.Fprintf(out, "  %s\n", id)
		}
		return false
	}

	// "@<conn-id> <command>" targets a single session.
	target := ""
	if strings.HasPrefix(cmd, "@") {
		if len(args) == 0 {
			fmt.Fprintln(out, "usage: @<connection-id> <command> [args]")
			return false
		}
		target = cmd[1:]
		cmd, args = strings.ToLower(args[0]), args[1:]
	}

	ev, err := ParseCommand(cmd, args)
	if err != nil {
		fmt.Fprintln(out, err)
		return false
	}

	if target != "" {
		err = c.ctrl.Push(target, ev)
	} else {
		err = c.ctrl.Broadcast(ev)
	}
	if err != nil {
		fmt.Fprintf(out, "%s: %v\n", ev.Kind(), err)
		return false
	}
	fmt.Fprintf(out, "%s sent\n", ev.Kind())
	return false
}

// ParseCommand turns a console command into a control event.
func ParseCommand(cmd string, args []string) (control.Event, error) {
	switch cmd {
	case "auth":
		ok, err := parseChoice(args, "accept", "reject")
		if err != nil {
			return nil, fmt.Errorf("%w: auth accept|reject", ErrUsage)
		}
		return control.AuthorizationResponse{Accepted: ok}, nil

	case "cablecheck":
		ok, err := parseChoice(args, "ok", "fail")
		if err != nil {
			return nil, fmt.Errorf("%w: cablecheck ok|fail", ErrUsage)
		}
		return control.CableCheckFinished{Success: ok}, nil

	case "present":
		v, err := parseFloats(args, 2)
		if err != nil {
			return nil, fmt.Errorf("%w: present <voltage V> <current A>", ErrUsage)
		}
		return control.PresentVoltageCurrent{Voltage: v[0], Current: v[1]}, nil

	case "dclimits":
		v, err := parseFloats(args, 3)
		if err != nil {
			return nil, fmt.Errorf("%w: dclimits <max power W> <max current A> <max voltage V>", ErrUsage)
		}
		return control.DCTransferLimits{Charge: message.DCEVSEChargeParameters{
			EVSEMaximumChargePower:   message.FromFloat(v[0]),
			EVSEMinimumChargePower:   message.FromFloat(0),
			EVSEMaximumChargeCurrent: message.FromFloat(v[1]),
			EVSEMinimumChargeCurrent: message.FromFloat(0),
			EVSEMaximumVoltage:       message.FromFloat(v[2]),
			EVSEMinimumVoltage:       message.FromFloat(0),
		}}, nil

	case "actarget":
		v, err := parseFloats(args, 1)
		if err != nil {
			return nil, fmt.Errorf("%w: actarget <power W>", ErrUsage)
		}
		return control.ACTargetPower{TargetActivePower: message.FromFloat(v[0])}, nil

	case "acpresent":
		v, err := parseFloats(args, 1)
		if err != nil {
			return nil, fmt.Errorf("%w: acpresent <power W>", ErrUsage)
		}
		return control.ACPresentPower{PresentActivePower: message.FromFloat(v[0])}, nil

	case "pause":
		return control.PauseCharging{Pause: true}, nil

	case "resume":
		return control.PauseCharging{Pause: false}, nil

	case "stop":
		return control.StopCharging{Stop: true}, nil

	default:
		return nil, fmt.Errorf("unknown command: %s (type 'help' for commands)", cmd)
	}
}

func parseChoice(args []string, yes, no string) (bool, error) {
	if len(args) != 1 {
		return false, ErrUsage
	}
	switch strings.ToLower(args[0]) {
	case yes:
		return true, nil
	case no:
		return false, nil
	}
	return false, ErrUsage
}

func parseFloats(args []string, n int) ([]float64, error) {
	if len(args) != n {
		return nil, ErrUsage
	}
	out := make([]float64, n)
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (c *Console) printHelp() {
	c.printHelpTo(c.rl.Stdout())
}

func (c *Console) printHelpTo(out io.Writer) {
	fmt.Fprintln(out, `
SECC Commands:
  Sessions:
    sessions                     - List active sessions
    @<conn-id> <command>         - Send a command to one session only

  Charging control:
    auth accept|reject           - Answer a pending authorization
    cablecheck ok|fail           - Finish the isolation check
    present <V> <A>              - Report measured DC voltage and current
    dclimits <W> <A> <V>         - Replace the DC maximum charge limits
    actarget <W>                 - Set the AC target power
    acpresent <W>                - Report the measured AC power
    pause | resume               - Request or withdraw a charging pause
    stop                         - Terminate charging

  General:
    help                         - Show this help
    quit                         - Exit`)
}
