package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"macroclock/host"
	"macroclock/version"

	"github.com/chzyer/readline"
)

// CLIHttp is the CLI for HTTP client mode
type CLIHttp struct {
	rl      *readline.Instance
	running bool
	client  *Client
	config  *Config
}

// NewCLIHttp creates a new HTTP client CLI instance. Server profiles are
// read from ~/.macroclock/config.yaml; a failure there only disables the
// `server` command.
func NewCLIHttp(serverURL string) (*CLIHttp, error) {
	client := NewClient(serverURL)

	// Test connectivity
	if _, err := client.HealthCheck(); err != nil {
		return nil, fmt.Errorf("cannot connect to server: %v", err)
	}

	config, err := LoadConfig(serverURL)
	if err != nil {
		fmt.Printf("Warning: server profiles unavailable: %v\n", err)
	}

	// Create readline instance; ignore Ctrl+C
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %v", err)
	}

	return &CLIHttp{
		rl:      rl,
		running: true,
		client:  client,
		config:  config,
	}, nil
}

// Start runs the CLI loop
func (c *CLIHttp) Start() {
	defer c.rl.Close()
	c.printWelcome()

	for c.running {
		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				fmt.Println("\n⚠ Ctrl+C detected. Please use 'exit' or 'quit' command to exit gracefully.")
				continue
			}
			// EOF or other error; exit
			break
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		c.handleCommand(input)
	}
}

// printWelcome prints initial banner
func (c *CLIHttp) printWelcome() {
	PrintBanner("MacroClock - Settings Bridge CLI", version.GetVersion())
	fmt.Printf("\nConnected to: %s\n", c.client.BaseURL())
	fmt.Println("Type 'help' for available commands")
}

// handleCommand routes user commands
func (c *CLIHttp) handleCommand(input string) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "h", "?":
		c.showHelp()
	case "show", "open":
		c.handleShowCommand()
	case "close":
		c.handleCloseCommand(strings.TrimSpace(strings.TrimPrefix(input, parts[0])))
	case "set":
		c.handleSetCommand(args)
	case "settings", "get":
		c.handleSettingsCommand()
	case "watch":
		c.handleWatchCommand(args)
	case "status", "st":
		c.handleStatusCommand()
	case "logs":
		c.handleLogsCommand(args)
	case "server":
		c.handleServerCommand(args)
	case "clear":
		c.clearScreen()
	case "exit", "quit", "q":
		fmt.Println("\nGoodbye!")
		c.running = false
	default:
		fmt.Printf("Unknown command: %s. Type 'help' for available commands.\n", cmd)
	}
}

// showHelp prints available commands
func (c *CLIHttp) showHelp() {
	fmt.Println()
	PrintBanner("Available Commands")
	fmt.Println()

	commands := [][]string{
		{"help, h, ?", "Show this help message"},
		{"", ""},
		{"CONFIGURATION:", ""},
		{"show", "Open the configuration page and print its URL"},
		{"close <payload>", "Submit a page response (encoded, or raw JSON)"},
		{"set <key=value>...", "Change fields of the stored record and send them"},
		{"settings", "Show the stored record and last delivery"},
		{"", ""},
		{"WATCHFACE:", ""},
		{"watch", "Act as the watchface and ack incoming settings"},
		{"watch nack <reason>", "Act as the watchface and reject incoming settings"},
		{"", ""},
		{"SYSTEM:", ""},
		{"status", "Show server health"},
		{"logs [clear]", "Show or clear recent server log entries"},
		{"server list", "List server profiles"},
		{"server add <name> <url>", "Add a server profile"},
		{"server remove <name>", "Remove a server profile"},
		{"server use <name>", "Switch to a server profile"},
		{"clear", "Clear screen"},
		{"exit, quit, q", "Exit the program"},
	}

	for _, cmd := range commands {
		if len(cmd) == 2 && cmd[0] != "" {
			fmt.Printf("  %-30s %s\n", cmd[0], cmd[1])
		} else {
			fmt.Println()
		}
	}
}

// handleShowCommand opens the configuration page
func (c *CLIHttp) handleShowCommand() {
	conf, err := c.client.ShowConfiguration()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Printf("Layout:  %s\n", conf.Layout)
	fmt.Printf("URL:     %s\n", conf.URL)
	fmt.Printf("QR code: %s/api/configuration/qr\n", c.client.BaseURL())
}

// handleCloseCommand submits a configuration page response
func (c *CLIHttp) handleCloseCommand(payload string) {
	if payload == "" {
		fmt.Println("Usage: close <payload>")
		return
	}
	c.submit(normalizePayload(payload))
}

// handleSetCommand edits fields of the stored record
func (c *CLIHttp) handleSetCommand(args []string) {
	changes, err := parseAssignments(args)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		fmt.Println("Usage: set <key=value> [key=value ...]")
		return
	}

	view, err := c.client.GetSettings()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	response, err := encodeResponse(mergeRecord(view.Record, changes))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	c.submit(response)
}

func (c *CLIHttp) submit(response string) {
	result, err := c.client.WebviewClosed(response, true)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Code == "BAD_GATEWAY" {
			fmt.Println(okText("✓ Settings saved"))
			fmt.Println(failText("✗ Watchface did not accept them: " + string(apiErr.Detail)))
			return
		}
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println(okText("✓ Settings saved"))
	fmt.Println(deliveryLine(&result.Delivery))
}

// handleSettingsCommand prints the stored record
func (c *CLIHttp) handleSettingsCommand() {
	view, err := c.client.GetSettings()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println()
	PrintBanner("Stored Settings")
	fmt.Println()

	if !view.Stored {
		fmt.Println("No settings stored yet.")
	} else {
		rows := make([][]string, 0, len(view.Record))
		for _, key := range sortedKeys(view.Record) {
			rows = append(rows, []string{key, view.Record.FieldText(key)})
		}
		renderTable(os.Stdout, []string{"Field", "Value"}, rows)
	}

	if view.LastDelivery != nil {
		fmt.Println()
		fmt.Println(deliveryLine(view.LastDelivery))
	}
}

// handleWatchCommand simulates the watchface until Ctrl+C
func (c *CLIHttp) handleWatchCommand(args []string) {
	nackReason := ""
	if len(args) > 0 {
		if strings.ToLower(args[0]) != "nack" {
			fmt.Println("Usage: watch [nack <reason>]")
			return
		}
		nackReason = "rejected by simulator"
		if len(args) > 1 {
			nackReason = strings.Join(args[1:], " ")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	watch, err := host.DialWatch(dialCtx, c.client.BaseURL())
	cancel()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	go func() {
		<-ctx.Done()
		_ = watch.Close()
	}()

	fmt.Println("Watchface simulator connected. Press Ctrl+C to stop.")
	received, err := runWatchSimulator(ctx, watch, nackReason, func(frame host.Frame) {
		fmt.Printf("\n[%s] settings received (%s)\n", time.Now().Format("15:04:05"), frame.TransactionID)
		for _, key := range sortedKeys(frame.Payload) {
			fmt.Printf("  %-20s %s\n", truncate(key, 20), frame.Payload.FieldText(key))
		}
	})
	if err != nil && ctx.Err() == nil {
		fmt.Printf("Watch link closed: %v\n", err)
	}
	fmt.Printf("Watchface simulator stopped after %d message(s).\n", received)
}

// runWatchSimulator answers every app message until the link fails. An
// empty nackReason acks.
func runWatchSimulator(ctx context.Context, watch *host.WatchClient, nackReason string, onFrame func(host.Frame)) (int, error) {
	received := 0
	for {
		frame, err := watch.Receive(ctx)
		if err != nil {
			return received, err
		}
		received++
		if onFrame != nil {
			onFrame(frame)
		}

		if nackReason != "" {
			err = watch.Nack(frame.TransactionID, nackReason)
		} else {
			err = watch.Ack(frame.TransactionID)
		}
		if err != nil {
			return received, err
		}
	}
}

// handleStatusCommand shows server health
func (c *CLIHttp) handleStatusCommand() {
	health, err := c.client.HealthCheck()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println()
	PrintBanner(fmt.Sprintf("Server Status: %s", health.Status))
	fmt.Println()
	fmt.Printf("%-22s %s\n", "Version", health.Version)
	fmt.Printf("%-22s %s\n", "Store up", yesNo(health.StoreUp))
	fmt.Printf("%-22s %s\n", "Watchface connected", yesNo(health.WatchConnected))
	fmt.Printf("%-22s %d\n", "Configuration opens", health.ConfigurationOpens)
	if health.LastURL != "" {
		fmt.Printf("%-22s %s\n", "Last page", health.LastURL)
	}
}

// handleLogsCommand lists or clears recent server log entries
func (c *CLIHttp) handleLogsCommand(args []string) {
	if len(args) > 0 && args[0] == "clear" {
		if err := c.client.ClearLogs(); err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		fmt.Println("✓ Logs cleared")
		return
	}

	logs, err := c.client.GetLogs()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(logs) == 0 {
		fmt.Println("No log entries.")
		return
	}

	rows := make([][]string, 0, len(logs))
	for _, entry := range logs {
		rows = append(rows, []string{entry.Timestamp.Format("2006-01-02 15:04:05"), entry.Level, truncate(entry.Message, 80)})
	}
	renderTable(os.Stdout, []string{"Time", "Level", "Message"}, rows)
}

// handleServerCommand manages server profiles
func (c *CLIHttp) handleServerCommand(args []string) {
	if c.config == nil {
		fmt.Println("Server profiles are unavailable.")
		return
	}
	if len(args) == 0 {
		fmt.Println("Usage: server <list|add|remove|use> [args]")
		return
	}

	switch args[0] {
	case "list", "ls":
		var rows [][]string
		for _, name := range c.config.ServerNames() {
			server := c.config.Servers[name]
			marker := ""
			if name == c.config.DefaultServer {
				marker = "*"
			}
			rows = append(rows, []string{marker, name, server.URL, server.Description})
		}
		renderTable(os.Stdout, []string{"", "Name", "URL", "Description"}, rows)
	case "add":
		if len(args) < 3 {
			fmt.Println("Usage: server add <name> <url> [description]")
			return
		}
		if err := c.config.AddServer(args[1], args[2], strings.Join(args[3:], " ")); err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		fmt.Printf("✓ Server '%s' added\n", args[1])
	case "remove", "rm", "delete":
		if len(args) < 2 {
			fmt.Println("Usage: server remove <name>")
			return
		}
		if err := c.config.RemoveServer(args[1]); err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		fmt.Printf("✓ Server '%s' removed\n", args[1])
	case "use":
		if len(args) < 2 {
			fmt.Println("Usage: server use <name>")
			return
		}
		server, err := c.config.GetServer(args[1])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		client := NewClient(server.URL)
		if _, err := client.HealthCheck(); err != nil {
			fmt.Printf("Error: cannot connect to %s: %v\n", server.URL, err)
			return
		}
		if err := c.config.SetDefault(args[1]); err != nil {
			fmt.Printf("Warning: %v\n", err)
		}
		c.client = client
		fmt.Printf("✓ Connected to %s\n", server.URL)
	default:
		fmt.Printf("Unknown server command: %s\n", args[0])
	}
}

// clearScreen clears the terminal
func (c *CLIHttp) clearScreen() {
	fmt.Print("\033[H\033[2J")
}
