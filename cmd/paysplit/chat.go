package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/paysplit/internal/chat"
	"github.com/Veraticus/paysplit/internal/cli"
	"github.com/Veraticus/paysplit/internal/config"
	"github.com/Veraticus/paysplit/internal/service"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat [message]",
		Short: "Ask the budgeting assistant",
		Long: `Send a question to the budgeting assistant configured by chat.url.
Without a message, chat reads questions from standard input until EOF.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}
			client, err := chat.NewClient(cfg.Chat.URL, cfg.Remote.Timeout)
			if err != nil {
				return err
			}

			if len(args) > 0 {
				return ask(cmd, client, strings.Join(args, " "))
			}
			return chatLoop(cmd, client)
		},
	}
}

func ask(cmd *cobra.Command, client service.ChatClient, message string) error {
	reply, err := client.Send(cmd.Context(), message)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.InfoStyle.Render(cli.ChatIcon+" ")+reply)
	return nil
}

func chatLoop(cmd *cobra.Command, client service.ChatClient) error {
	handler := cli.NewInterruptHandler(cmd.OutOrStdout(), "Bye!")
	ctx, stop := handler.HandleInterrupts(cmd.Context())
	defer stop()
	cmd.SetContext(ctx)

	reader := cli.NewLineReader(cmd.InOrStdin())
	for {
		line, err := reader.ReadLine(ctx)
		switch {
		case errors.Is(err, io.EOF), errors.Is(err, cli.ErrInputCancelled):
			return nil
		case err != nil:
			return err
		case line == "":
			continue
		}

		if err := ask(cmd, client, line); err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatError(err))
		}
	}
}
