package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/specchio/pkg/chat"
	"github.com/go-go-golems/specchio/pkg/reconcile"
	"github.com/go-go-golems/specchio/pkg/suggest"
)

var rootCmd = &cobra.Command{
	Use:   "specchio",
	Short: "Reconcile agent conversation transcripts into a renderable view",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		l, err := zerolog.ParseLevel(level)
		if err != nil {
			l = zerolog.InfoLevel
		}
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(l)
	},
}

func loadConversation(path string) (chat.Conversation, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not read transcript")
	}
	var conv chat.Conversation
	if err := json.Unmarshal(b, &conv); err != nil {
		return nil, errors.Wrap(err, "could not decode transcript")
	}
	return conv, nil
}

func newRenderCommand() *cobra.Command {
	var interrupted bool
	var showHidden bool

	cmd := &cobra.Command{
		Use:   "render <transcript.json>",
		Short: "Print the reconciled transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conv, err := loadConversation(args[0])
			if err != nil {
				return err
			}

			view := reconcile.Reconcile(conv, reconcile.Options{Interrupted: interrupted})
			for _, mv := range view.Messages {
				if mv.Hidden && !showHidden {
					continue
				}
				printMessageView(mv)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&interrupted, "interrupted", false, "treat the conversation as holding an open approval interrupt")
	cmd.Flags().BoolVar(&showHidden, "show-hidden", false, "include messages collapsed into phases")
	return cmd
}

func printMessageView(mv reconcile.MessageView) {
	prefix := ""
	if mv.Hidden {
		prefix = "~ "
	}

	switch {
	case mv.Phase != nil:
		line := fmt.Sprintf("%s[phase %d] %s", prefix, mv.Phase.Phase, mv.Phase.Status)
		if mv.Phase.Summary != "" {
			line += " - " + mv.Phase.Summary
		}
		if mv.Phase.Duration != "" {
			line += fmt.Sprintf(" (%s)", mv.Phase.Duration)
		}
		fmt.Println(line)
		if mv.PhaseDetail != "" {
			for _, l := range strings.Split(mv.PhaseDetail, "\n") {
				fmt.Println("    " + l)
			}
		}
	case mv.IsMarker:
		// unparsable marker, suppressed from chat text
	default:
		if mv.Text != "" {
			fmt.Printf("%s[%s]: %s\n", prefix, mv.Message.Role, mv.Text)
		}
	}

	for _, call := range mv.ToolCalls {
		line := fmt.Sprintf("  -> %s [%s]", call.Name, call.Status)
		if call.Result != "" {
			line += " <- " + call.Result
		}
		fmt.Println(line)
	}
	for _, sa := range mv.SubAgents {
		fmt.Printf("  == subagent %s [%s]\n", sa.Name, sa.Status)
	}
}

func newSuggestCommand() *cobra.Command {
	var conversationID string
	var model string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "suggest <transcript.json>",
		Short: "Generate follow-up suggestions for a transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conv, err := loadConversation(args[0])
			if err != nil {
				return err
			}

			gen, err := suggest.NewGenerator(
				viper.GetString("suggestion-provider"),
				viper.GetString("openai-api-key"),
				suggest.WithModel(model),
			)
			if err != nil {
				log.Warn().Err(err).Msg("no generator available, using defaults")
				gen = nil
			}

			manager := suggest.NewManager(gen)
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			manager.SetConversation(ctx, conversationID, conv)

			for manager.Generating() {
				select {
				case <-ctx.Done():
					log.Warn().Msg("generation timed out, using defaults")
				case <-time.After(100 * time.Millisecond):
					continue
				}
				break
			}

			for _, s := range manager.Current() {
				fmt.Printf("%s\n    %s\n", s.Short, s.Full)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&conversationID, "conversation-id", "", "conversation id for the cache key")
	cmd.Flags().StringVar(&model, "model", "gpt-4o-mini", "completion model for generation")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "generation timeout")
	return cmd
}

func main() {
	viper.SetEnvPrefix("specchio")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.PersistentFlags().String("log-level", "info", "zerolog level")
	rootCmd.AddCommand(newRenderCommand())
	rootCmd.AddCommand(newSuggestCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
