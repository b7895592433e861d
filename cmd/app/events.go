package main

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

// tailEventsCmd follows the admin event feed of a running server and prints
// every ledger event as indented JSON.
func tailEventsCmd() *cobra.Command {
	var (
		url      string
		initData string
	)

	cmd := &cobra.Command{
		Use:   "tail-events",
		Short: "Print ledger events from a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			header := http.Header{}
			header.Add("Authorization", "Telegram "+strings.TrimSpace(initData))

			conn, _, err := websocket.DefaultDialer.DialContext(cmd.Context(), url, header)
			if err != nil {
				return fmt.Errorf("dial: %w", err)
			}
			defer conn.Close()

			messageQueue := make(chan []byte)

			go func() {
				defer close(messageQueue)
				for {
					_, p, err := conn.ReadMessage()
					if err != nil {
						if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
							log.Println("read error:", err)
						}
						return
					}

					messageQueue <- p
				}
			}()

			out := cmd.OutOrStdout()
			for message := range messageQueue {
				var event map[string]any
				if err := json.Unmarshal(message, &event); err != nil {
					fmt.Fprintf(out, "%s\n", message)
					continue
				}
				pretty, err := json.MarshalIndent(event, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\n", pretty)
			}

			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "ws://localhost:8888/api/v1/admin/events", "event feed address")
	cmd.Flags().StringVar(&initData, "init-data", "", "mini-app init data of an admin")
	_ = cmd.MarkFlagRequired("init-data")

	return cmd
}
