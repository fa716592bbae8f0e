// relaybot - Telegram channel relay bot with text rewriting
//
// Relays posts from configured source channels to a single target channel,
// applying user-configured link/word/sentence replacements on the way.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/relaybot/cmd/relaybot/internal"
	"github.com/tinyland-inc/relaybot/cmd/relaybot/internal/serve"
	"github.com/tinyland-inc/relaybot/cmd/relaybot/internal/status"
	"github.com/tinyland-inc/relaybot/cmd/relaybot/internal/version"
)

func NewRelaybotCommand() *cobra.Command {
	short := fmt.Sprintf("relaybot - Telegram channel relay bot v%s", internal.GetVersion())

	cmd := &cobra.Command{
		Use:     "relaybot",
		Short:   short,
		Example: "relaybot serve",
	}

	cmd.AddCommand(
		serve.NewServeCommand(),
		status.NewStatusCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewRelaybotCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
