package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tanpawarit/shoptalk-assistant/agent/agents/shoptalk"
	statex "github.com/tanpawarit/shoptalk-assistant/agent/state"
)

var (
	chatOffline   bool
	chatSessionID string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant on stdin/stdout",
	Long: `Reads one utterance per line and prints the assistant's reply.
State lives in memory for the lifetime of the process. Type "exit" to quit.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		source := catalogREST
		if chatOffline {
			source = catalogStatic
		}
		catalog, err := buildCatalog(source)
		if err != nil {
			return err
		}
		svc, err := shoptalk.New(statex.NewMemoryStore(), catalog, shoptalk.Config{ChannelType: "cli"})
		if err != nil {
			return err
		}

		sessionID := chatSessionID
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		return runChat(cmd.Context(), svc, sessionID, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	chatCmd.Flags().BoolVar(&chatOffline, "offline", false, "use the built-in sample catalog instead of the REST catalog")
	chatCmd.Flags().StringVar(&chatSessionID, "session", "", "session id (default: random)")
	rootCmd.AddCommand(chatCmd)
}

func runChat(ctx context.Context, svc *shoptalk.Service, sessionID string, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, `ShopTalk ready. Try "find iphone under 30000". Type "exit" to quit.`)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "exit", "quit":
			return nil
		case "":
			continue
		}

		res, err := svc.ProcessMessage(ctx, sessionID, line)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, res.Response)
		if res.Navigate != nil {
			fmt.Fprintf(out, "  [%s -> %s]\n", res.Step, res.Navigate.Path)
		}
	}
}
