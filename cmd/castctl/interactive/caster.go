// Package interactive provides the interactive command-line interface
// for the tvcast caster.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/tvcast-protocol/tvcast-go/pkg/cluster"
	"github.com/tvcast-protocol/tvcast-go/pkg/discovery"
	"github.com/tvcast-protocol/tvcast-go/pkg/service"
)

// Caster handles interactive mode for castctl.
type Caster struct {
	svc *service.CasterService
	rl  *readline.Instance

	// endpoint is the commissionee endpoint commands address.
	endpoint uint8
}

// New creates a new interactive caster handler.
func New(svc *service.CasterService) (*Caster, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "caster> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Caster{
		svc:      svc,
		rl:       rl,
		endpoint: 1,
	}, nil
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Caster) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Stderr returns a writer that properly coordinates with the readline input.
func (c *Caster) Stderr() io.Writer {
	return c.rl.Stderr()
}

// Run starts the interactive command loop.
func (c *Caster) Run(ctx context.Context, cancel context.CancelFunc) {
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
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "status":
			c.cmdStatus()

		case "payload":
			c.cmdPayload()

		case "discover":
			c.cmdDiscover()

		case "stop-discover":
			c.cmdStopDiscover()

		case "list", "ls":
			c.cmdList()

		case "udc":
			c.cmdUDC(args)

		case "window":
			c.cmdWindow(args)

		case "reconnect":
			c.cmdReconnect(args)

		case "endpoint", "ep":
			c.cmdEndpoint(args)

		case "play":
			c.invoke(cluster.MediaPlaybackPlay, nil)

		case "pause":
			c.invoke(cluster.MediaPlaybackPause, nil)

		case "stop":
			c.invoke(cluster.MediaPlaybackStop, nil)

		case "next":
			c.invoke(cluster.MediaPlaybackNext, nil)

		case "seek":
			c.cmdSeek(args)

		case "skip":
			c.cmdSkip(args)

		case "key":
			c.cmdKey(args)

		case "launch":
			c.cmdLaunch(args)

		case "url":
			c.cmdURL(args)

		case "content":
			c.cmdContent(args)

		case "navigate", "nav":
			c.cmdNavigate(args)

		case "level":
			c.cmdLevel(args)

		case "subscribe", "sub":
			c.cmdSubscribe(args)

		case "unsubscribe", "unsub":
			c.cmdUnsubscribe(args)

		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (c *Caster) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), `
tvcast Caster Commands:
  Discovery & Commissioning:
    discover                 - Start browsing for commissioners
    stop-discover            - Stop browsing
    list                     - List discovered commissioners
    udc <host> <port>        - Send a user-directed commissioning request
    window [seconds]         - Open the commissioning window
    reconnect [seconds]      - Redial the last commissioned peer
    payload                  - Show the onboarding payload

  Media Control:
    play | pause | stop | next
    seek <seconds>           - Seek to an absolute position
    skip <seconds>           - Skip forward (use skip -<s> for backward)
    key <name|hex>           - Send a key press (e.g. key select, key up)
    launch <vendor> <app>    - Launch an application by catalog ID
    url <content-url> [text] - Launch content by URL
    content <search terms>   - Launch content by search
    navigate <target>        - Navigate to a target identifier
    level <0-255>            - Set the output level (volume)

  Subscriptions:
    subscribe [min max]      - Subscribe to the playback state
    unsubscribe <id>         - Cancel a subscription

  General:
    endpoint <id>            - Set the target endpoint (default 1)
    status                   - Show caster status
    help                     - Show this help
    quit                     - Exit caster`)
}

// invoke sends a cluster command and prints the outcome when it
// arrives. Commands are asynchronous; the prompt stays responsive.
func (c *Caster) invoke(cmd cluster.Command, params any) {
	c.svc.Invoke(cmd, params, service.InvokeOptions{
		EndpointID: c.endpoint,
		OnSent: func(err error) {
			if err != nil {
				fmt.Fprintf(c.rl.Stdout(), "%s not sent: %v\n", cmd.String(), err)
				c.rl.Refresh()
			}
		},
		OnSuccess: func(result any) {
			if result != nil {
				fmt.Fprintf(c.rl.Stdout(), "%s: OK (%v)\n", cmd.String(), result)
			} else {
				fmt.Fprintf(c.rl.Stdout(), "%s: OK\n", cmd.String())
			}
			c.rl.Refresh()
		},
		OnFailure: func(err error) {
			fmt.Fprintf(c.rl.Stdout(), "%s: %v\n", cmd.String(), err)
			c.rl.Refresh()
		},
	})
}

// cmdStatus shows the caster status.
func (c *Caster) cmdStatus() {
	fmt.Fprintln(c.rl.Stdout(), "\nCaster Status")
	fmt.Fprintln(c.rl.Stdout(), "-------------------------------------------")
	fmt.Fprintf(c.rl.Stdout(), "  Session State:  %s\n", c.svc.State())
	fmt.Fprintf(c.rl.Stdout(), "  Fingerprint:    %s\n", c.svc.Fingerprint())
	fmt.Fprintf(c.rl.Stdout(), "  Endpoint:       %d\n", c.endpoint)
	fmt.Fprintf(c.rl.Stdout(), "  Commissioners:  %d discovered\n", len(c.svc.DiscoveredCommissioners()))
	fmt.Fprintln(c.rl.Stdout())
}

// cmdPayload shows the onboarding payload.
func (c *Caster) cmdPayload() {
	payload := c.svc.OnboardingPayload()
	if payload == nil {
		fmt.Fprintln(c.rl.Stdout(), "No onboarding payload (service not started)")
		return
	}

	fmt.Fprintln(c.rl.Stdout(), "\nOnboarding Payload")
	fmt.Fprintln(c.rl.Stdout(), "-------------------------------------------")
	fmt.Fprintf(c.rl.Stdout(), "  Code:          %s\n", payload.String())
	fmt.Fprintf(c.rl.Stdout(), "  Discriminator: %d\n", payload.Discriminator)
	fmt.Fprintf(c.rl.Stdout(), "  Passcode:      %s\n", payload.Passcode.String())
	fmt.Fprintln(c.rl.Stdout())
}

// cmdDiscover starts browsing for commissioners.
func (c *Caster) cmdDiscover() {
	c.svc.StartDiscovery(service.DiscoveryOptions{
		OnSent: func(err error) {
			if err != nil {
				fmt.Fprintf(c.rl.Stdout(), "Discovery not started: %v\n", err)
			} else {
				fmt.Fprintln(c.rl.Stdout(), "Browsing for commissioners...")
			}
			c.rl.Refresh()
		},
		OnCommissionerFound: func(rec *discovery.CommissionerRecord) {
			fmt.Fprintf(c.rl.Stdout(), "\nFound commissioner: %s (%s)\n", rec.DeviceName, rec.Address())
			c.rl.Refresh()
		},
	})
}

// cmdStopDiscover stops browsing.
func (c *Caster) cmdStopDiscover() {
	c.svc.StopDiscovery()
	fmt.Fprintln(c.rl.Stdout(), "Discovery stopped")
}

// cmdList lists discovered commissioners.
func (c *Caster) cmdList() {
	records := c.svc.DiscoveredCommissioners()
	if len(records) == 0 {
		fmt.Fprintln(c.rl.Stdout(), "No commissioners discovered")
		return
	}

	fmt.Fprintf(c.rl.Stdout(), "\nDiscovered Commissioners (%d):\n", len(records))
	fmt.Fprintln(c.rl.Stdout(), "-------------------------------------------")
	for idx, rec := range records {
		fmt.Fprintf(c.rl.Stdout(), "  %d. %s\n", idx, rec.DeviceName)
		fmt.Fprintf(c.rl.Stdout(), "     Instance: %s\n", rec.InstanceName)
		fmt.Fprintf(c.rl.Stdout(), "     Address:  %s\n", rec.Address())
		fmt.Fprintf(c.rl.Stdout(), "     Vendor:   0x%04X  Product: 0x%04X\n", rec.VendorID, rec.ProductID)
		fmt.Fprintln(c.rl.Stdout())
	}
}

// cmdUDC sends a user-directed commissioning request.
func (c *Caster) cmdUDC(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: udc <host> <port>")
		fmt.Fprintln(c.rl.Stdout(), "  Or pick a discovered commissioner: udc <index>")
		return
	}

	var host string
	var port uint16

	if len(args) == 1 {
		// Index into the discovered registry
		idx, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Fprintln(c.rl.Stdout(), "Usage: udc <host> <port>")
			return
		}
		rec, err := c.svc.DiscoveredCommissioner(idx)
		if err != nil {
			fmt.Fprintf(c.rl.Stdout(), "No such commissioner: %v\n", err)
			return
		}
		host = rec.Address()
		port = rec.Port
	} else {
		host = args[0]
		p, err := strconv.ParseUint(args[1], 10, 16)
		if err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Invalid port: %v\n", err)
			return
		}
		port = uint16(p)
	}

	c.svc.SendUserDirectedCommissioningRequest(host, port, service.UDCOptions{
		OnSent: func(err error) {
			if err != nil {
				fmt.Fprintf(c.rl.Stdout(), "UDC request failed: %v\n", err)
			} else {
				fmt.Fprintln(c.rl.Stdout(), "UDC request sent; open the window to accept the commissioner")
			}
			c.rl.Refresh()
		},
	})
}

// cmdWindow opens the commissioning window.
func (c *Caster) cmdWindow(args []string) {
	var opts service.WindowOptions
	if len(args) > 0 {
		secs, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Invalid timeout: %v\n", err)
			return
		}
		opts.Timeout = time.Duration(secs) * time.Second
	}

	opts.OnSent = func(err error) {
		if err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Window not opened: %v\n", err)
		} else {
			fmt.Fprintln(c.rl.Stdout(), "Commissioning window open")
		}
		c.rl.Refresh()
	}
	opts.OnComplete = func(fingerprint string, err error) {
		if err != nil {
			fmt.Fprintf(c.rl.Stdout(), "\nCommissioning window closed: %v\n", err)
		} else {
			fmt.Fprintf(c.rl.Stdout(), "\nCommissioned by peer %s\n", fingerprint)
		}
		c.rl.Refresh()
	}

	c.svc.OpenBasicCommissioningWindow(opts)
}

// cmdReconnect redials the last commissioned peer's operational
// endpoint without a new commissioning exchange.
func (c *Caster) cmdReconnect(args []string) {
	var opts service.ReconnectOptions
	if len(args) > 0 {
		secs, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Invalid timeout: %v\n", err)
			return
		}
		opts.Timeout = time.Duration(secs) * time.Second
	}

	opts.OnSent = func(err error) {
		if err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Reconnect not started: %v\n", err)
		} else {
			fmt.Fprintln(c.rl.Stdout(), "Reconnecting...")
		}
		c.rl.Refresh()
	}
	opts.OnComplete = func(fingerprint string, err error) {
		if err != nil {
			fmt.Fprintf(c.rl.Stdout(), "\nReconnect failed: %v\n", err)
		} else {
			fmt.Fprintf(c.rl.Stdout(), "\nSession resumed with peer %s\n", fingerprint)
		}
		c.rl.Refresh()
	}

	c.svc.Reconnect(opts)
}

// cmdEndpoint sets the target endpoint.
func (c *Caster) cmdEndpoint(args []string) {
	if len(args) < 1 {
		fmt.Fprintf(c.rl.Stdout(), "Target endpoint: %d\n", c.endpoint)
		return
	}

	ep, err := strconv.ParseUint(args[0], 10, 8)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Invalid endpoint: %v\n", err)
		return
	}
	c.endpoint = uint8(ep)
	fmt.Fprintf(c.rl.Stdout(), "Target endpoint set to %d\n", c.endpoint)
}

// cmdSeek seeks to an absolute position.
func (c *Caster) cmdSeek(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: seek <seconds>")
		return
	}

	secs, err := strconv.ParseFloat(args[0], 64)
	if err != nil || secs < 0 {
		fmt.Fprintln(c.rl.Stdout(), "Invalid position")
		return
	}

	c.invoke(cluster.MediaPlaybackSeek, &cluster.SeekParams{
		Position: uint64(secs * 1000),
	})
}

// cmdSkip skips forward or backward.
func (c *Caster) cmdSkip(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: skip <seconds> (negative to skip backward)")
		return
	}

	secs, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		fmt.Fprintln(c.rl.Stdout(), "Invalid delta")
		return
	}

	cmd := cluster.MediaPlaybackSkipForward
	if secs < 0 {
		cmd = cluster.MediaPlaybackSkipBackward
		secs = -secs
	}

	c.invoke(cmd, &cluster.SkipParams{
		DeltaPositionMilliseconds: uint64(secs * 1000),
	})
}

// cmdKey sends a key press.
func (c *Caster) cmdKey(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: key <name|hex>")
		fmt.Fprintln(c.rl.Stdout(), "  Names: select, up, down, left, right, menu, exit, 0-9,")
		fmt.Fprintln(c.rl.Stdout(), "         channel-up, channel-down, forward, backward")
		return
	}

	code, err := parseKeyCode(args[0])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "%v\n", err)
		return
	}

	c.invoke(cluster.KeypadInputSendKey, &cluster.SendKeyParams{KeyCode: code})
}

// parseKeyCode maps a key name or hex value to a key code.
func parseKeyCode(s string) (cluster.KeyCode, error) {
	switch strings.ToLower(s) {
	case "select", "ok":
		return cluster.KeyCodeSelect, nil
	case "up":
		return cluster.KeyCodeUp, nil
	case "down":
		return cluster.KeyCodeDown, nil
	case "left":
		return cluster.KeyCodeLeft, nil
	case "right":
		return cluster.KeyCodeRight, nil
	case "menu", "root-menu":
		return cluster.KeyCodeRootMenu, nil
	case "exit", "back":
		return cluster.KeyCodeExit, nil
	case "channel-up":
		return cluster.KeyCodeChannelUp, nil
	case "channel-down":
		return cluster.KeyCodeChannelDown, nil
	case "forward":
		return cluster.KeyCodeForward, nil
	case "backward":
		return cluster.KeyCodeBackward, nil
	}

	// Single digit maps to the number keys
	if len(s) == 1 && s[0] >= '0' && s[0] <= '9' {
		return cluster.KeyCodeNumber0 + cluster.KeyCode(s[0]-'0'), nil
	}

	// Raw code (hex or decimal)
	if v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 8); err == nil {
		return cluster.KeyCode(v), nil
	}
	return 0, fmt.Errorf("unknown key: %s", s)
}

// cmdLaunch launches an application by catalog identifier.
func (c *Caster) cmdLaunch(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: launch <catalog-vendor-id> <application-id>")
		fmt.Fprintln(c.rl.Stdout(), "  Example: launch 65521 netflix")
		return
	}

	vendor, err := strconv.ParseUint(args[0], 10, 16)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Invalid vendor ID: %v\n", err)
		return
	}

	c.invoke(cluster.ApplicationLauncherLaunchApp, &cluster.LaunchAppParams{
		Application: cluster.Application{
			CatalogVendorID: uint16(vendor),
			ApplicationID:   args[1],
		},
	})
}

// cmdURL launches content by URL.
func (c *Caster) cmdURL(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: url <content-url> [display text]")
		return
	}

	params := &cluster.LaunchURLParams{ContentURL: args[0]}
	if len(args) > 1 {
		params.DisplayString = strings.Join(args[1:], " ")
	}

	c.invoke(cluster.ContentLauncherLaunchURL, params)
}

// cmdContent launches content by search.
func (c *Caster) cmdContent(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: content <search terms>")
		return
	}

	c.invoke(cluster.ContentLauncherLaunchContent, &cluster.LaunchContentParams{
		Search:   strings.Join(args, " "),
		AutoPlay: true,
	})
}

// cmdNavigate navigates to a target.
func (c *Caster) cmdNavigate(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: navigate <target-id>")
		return
	}

	target, err := strconv.ParseUint(args[0], 10, 8)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Invalid target: %v\n", err)
		return
	}

	params := &cluster.NavigateTargetParams{Target: uint8(target)}
	if len(args) > 1 {
		params.Data = strings.Join(args[1:], " ")
	}

	c.invoke(cluster.TargetNavigatorNavigateTarget, params)
}

// cmdLevel sets the output level.
func (c *Caster) cmdLevel(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: level <0-255>")
		return
	}

	level, err := strconv.ParseUint(args[0], 10, 8)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Invalid level: %v\n", err)
		return
	}

	c.invoke(cluster.LevelControlMoveToLevel, &cluster.MoveToLevelParams{
		Level: uint8(level),
	})
}

// cmdSubscribe subscribes to the playback state.
func (c *Caster) cmdSubscribe(args []string) {
	minInterval, maxInterval := uint16(1), uint16(60)
	if len(args) >= 2 {
		minV, err1 := strconv.ParseUint(args[0], 10, 16)
		maxV, err2 := strconv.ParseUint(args[1], 10, 16)
		if err1 != nil || err2 != nil {
			fmt.Fprintln(c.rl.Stdout(), "Usage: subscribe [min-interval max-interval]")
			return
		}
		minInterval, maxInterval = uint16(minV), uint16(maxV)
	}

	c.svc.Subscribe(cluster.MediaPlaybackCurrentState, minInterval, maxInterval, service.SubscribeOptions{
		EndpointID: c.endpoint,
		OnSent: func(err error) {
			if err != nil {
				fmt.Fprintf(c.rl.Stdout(), "Subscribe not sent: %v\n", err)
				c.rl.Refresh()
			}
		},
		OnEstablished: func(subscriptionID uint32) {
			fmt.Fprintf(c.rl.Stdout(), "Subscribed to playback state (id %d)\n", subscriptionID)
			c.rl.Refresh()
		},
		OnReport: func(value any) {
			fmt.Fprintf(c.rl.Stdout(), "\n[%s] Playback state: %v\n",
				time.Now().Format("15:04:05"), value)
			c.rl.Refresh()
		},
		OnFailure: func(err error) {
			fmt.Fprintf(c.rl.Stdout(), "Subscription error: %v\n", err)
			c.rl.Refresh()
		},
	})
}

// cmdUnsubscribe cancels a subscription.
func (c *Caster) cmdUnsubscribe(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: unsubscribe <subscription-id>")
		return
	}

	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Invalid subscription ID: %v\n", err)
		return
	}

	c.svc.Unsubscribe(uint32(id), service.UnsubscribeOptions{
		OnSent: func(err error) {
			if err != nil {
				fmt.Fprintf(c.rl.Stdout(), "Unsubscribe not sent: %v\n", err)
				c.rl.Refresh()
			}
		},
		OnSuccess: func() {
			fmt.Fprintf(c.rl.Stdout(), "Subscription %d cancelled\n", id)
			c.rl.Refresh()
		},
		OnFailure: func(err error) {
			fmt.Fprintf(c.rl.Stdout(), "Unsubscribe failed: %v\n", err)
			c.rl.Refresh()
		},
	})
}
