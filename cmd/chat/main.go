package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gemchat-backend/internal/client"
)

func main() {
	server := flag.String("server", "http://localhost:3000", "base URL of the chat server")
	timeout := flag.Duration("timeout", client.DefaultTimeout, "per-message timeout")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := client.NewSession(*server, client.WithTimeout(*timeout))
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Print("> ")
	for scanner.Scan() {
		reply, err := session.Send(ctx, scanner.Text())
		switch {
		case errors.Is(err, client.ErrEmptyMessage):
		case errors.Is(err, client.ErrTimeout):
			fmt.Println("Failed to get response from server (timeout).")
		case errors.Is(err, client.ErrNoResponse):
			fmt.Println("Sorry, no response received.")
		case err != nil:
			fmt.Printf("Failed to get response from server: %v\n", err)
		default:
			fmt.Println(reply)
		}

		if ctx.Err() != nil {
			return
		}
		fmt.Print("> ")
	}
}
