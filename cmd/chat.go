package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/spigell/talent-scout/internal/logger"
	"github.com/spigell/talent-scout/internal/screening"
	"go.uber.org/zap"
)

// lineReader reads one line of candidate input.
type lineReader func(label string) (string, error)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run a screening conversation in the terminal",
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindFlags(cmd, map[string]string{"transcripts.file": "transcripts-file"})
	},
	Run: func(_ *cobra.Command, _ []string) {
		chat()
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringP("transcripts-file", "t", "", "append finished conversations to this file. Default is unset.")
}

func chat() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the talent-scout chat", zap.String("version", version))

	controller, err := newController(ctx, config, logger)
	if err != nil {
		logger.Fatal(
			"building the screening controller",
			zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY or the 'ai.gemini.api-key-file' key in the configuration file"),
		)
	}

	session := screening.NewSession("terminal")
	if err := converse(ctx, controller, session, promptLine, os.Stdout); err != nil {
		logger.Error("chat stopped", zap.Error(err))
	}

	saveTranscript(config.Transcripts.File, session.Snapshot(), logger)
}

func promptLine(label string) (string, error) {
	p := promptui.Prompt{Label: label}
	return p.Run()
}

// converse drives the session until END, an exit word or the end of input.
func converse(ctx context.Context, controller *screening.Controller, session *screening.Session, read lineReader, out io.Writer) error {
	fmt.Fprintf(out, "%s\n\n", screening.GreetingMessage)

	for {
		state := session.State()
		if state == screening.StateEnd {
			return nil
		}

		input, err := read(state.String())
		if err != nil {
			session.Close()
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) || errors.Is(err, io.EOF) {
				fmt.Fprintf(out, "%s\n", screening.ClosingMessage)
				return nil
			}
			return err
		}

		if screening.IsExitCommand(input) {
			session.Close()
			fmt.Fprintf(out, "%s\n", screening.ClosingMessage)
			return nil
		}

		reply := controller.HandleInput(ctx, session, input)
		fmt.Fprintf(out, "%s\n\n", reply.Text)

		if ctx.Err() != nil {
			session.Close()
			return ctx.Err()
		}
	}
}
