package cmd

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant in the terminal",
	Long:  `Starts an interactive chat session. Type your commands in Polish; enter "exit" or press Ctrl+C to quit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		sessionID := uuid.NewString()
		fmt.Println("Cześć! W czym mogę pomóc? (wpisz \"exit\" aby zakończyć)")

		for {
			prompt := promptui.Prompt{Label: "Ty"}
			input, err := prompt.Run()
			if err != nil {
				if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
					fmt.Println("Do zobaczenia!")
					return nil
				}
				return fmt.Errorf("reading input: %w", err)
			}
			if input == "" {
				continue
			}
			if input == "exit" || input == "quit" {
				fmt.Println("Do zobaczenia!")
				return nil
			}

			reply := a.orch.Handle(cmd.Context(), sessionID, input)
			fmt.Printf("Domo: %s\n", reply.Text)
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
