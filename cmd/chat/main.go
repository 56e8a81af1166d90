package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Aliserag/flow-agentkit-starter/internal/client/chat"
	"github.com/Aliserag/flow-agentkit-starter/internal/client/walletconn"
	"github.com/Aliserag/flow-agentkit-starter/internal/config"
	"github.com/Aliserag/flow-agentkit-starter/internal/logger"
)

func main() {
	endpoint := flag.String("endpoint", "http://localhost:8080/api/agent", "Agent bridge endpoint")
	walletURL := flag.String("wallet", "", "JSON-RPC URL of an external wallet (optional)")
	flag.Parse()

	_ = godotenv.Load()

	log := logger.New(config.LoggingConfig{Level: os.Getenv("LOG_LEVEL"), Format: "text"})
	if os.Getenv("LOG_LEVEL") == "" {
		// Keep the REPL readable unless the user asked for more.
		log.SetLevel(logrus.WarnLevel)
	}

	network := config.DefaultConfig().Network

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var conn *walletconn.Connection
	if *walletURL != "" {
		conn = walletconn.Dial(ctx, *walletURL, network, log)
		switch conn.State() {
		case walletconn.StateConnected:
			fmt.Printf("Wallet connected: %s\n", conn.Account())
		case walletconn.StateDisconnected:
			connectCtx, cancelConnect := context.WithTimeout(ctx, 30*time.Second)
			err := conn.Connect(connectCtx)
			cancelConnect()
			if err != nil {
				fmt.Printf("Wallet connection failed: %v\n", err)
			} else {
				fmt.Printf("Wallet connected: %s on %s\n", conn.Account(), network.Name)
			}
		default:
			fmt.Println("No wallet detected, continuing without one.")
		}

		// Stand-in for the browser's accountsChanged subscription: keep the
		// displayed wallet state current for the life of the session.
		go conn.Watch(ctx, 2*time.Second)
	}

	session := chat.NewSession(*endpoint, nil, log)

	fmt.Printf("Chatting with the agent at %s. Type a message, or 'exit' to quit.\n", *endpoint)

	scanner := bufio.NewScanner(os.Stdin)
	lastAccount := ""
	if conn != nil {
		lastAccount = conn.Account()
	}
	for {
		if conn != nil {
			if account := conn.Account(); account != lastAccount {
				if account == "" {
					fmt.Println("Wallet disconnected.")
				} else {
					fmt.Printf("Wallet account changed: %s\n", account)
				}
				lastAccount = account
			}
		}
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "exit" || line == "quit" {
			break
		}
		if line == "" {
			continue
		}

		before := len(session.History())
		if err := session.SendMessage(ctx, line); err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}

		history := session.History()
		for _, msg := range history[before:] {
			if msg.Sender == chat.SenderAgent {
				fmt.Println(msg.Text)
			}
		}
	}
}
