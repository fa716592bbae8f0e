package status

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/relaybot/cmd/relaybot/internal"
	"github.com/tinyland-inc/relaybot/pkg/config"
)

func NewStatusCommand() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show status of a running relaybot gateway",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if port == 0 {
				cfg, err := internal.LoadConfig()
				if err != nil {
					return fmt.Errorf("error loading config: %w", err)
				}
				port = cfg.WebhookPort
			}
			return statusCmd(host, port)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Gateway host")
	cmd.Flags().IntVar(&port, "port", 0, "Gateway port (default: configured webhook port)")

	return cmd
}

func statusCmd(host string, port int) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(fmt.Sprintf("http://%s:%d/status", host, port))
	if err != nil {
		return fmt.Errorf("gateway not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var st config.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return fmt.Errorf("error decoding status response: %w", err)
	}

	forwarding := "inactive"
	if st.ForwardingEnabled {
		forwarding = "active"
	}

	fmt.Println("Relaybot status:")
	fmt.Printf("  Running:             %v\n", st.BotRunning)
	fmt.Printf("  Forwarding:          %s\n", forwarding)
	fmt.Printf("  Source channels:     %d\n", st.SourceChannels)
	fmt.Printf("  Target channel:      %s\n", st.TargetChannel)
	fmt.Printf("  Admin users:         %d\n", st.AdminUsers)
	fmt.Printf("  Active replacements: %d\n", st.ActiveReplacements)

	return nil
}
