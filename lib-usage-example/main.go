package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/stackprice/stackprice/pkg/dashboard"
	"github.com/stackprice/stackprice/pkg/gateway"
)

func main() {
	// Usage: go run *.go -url http://localhost:8080 -tools trello,monday,asana

	urlFlag := flag.String("url", "http://localhost:8080", "stackprice server URL")
	toolsFlag := flag.String("tools", "", "Comma-separated tool ids")
	userFlag := flag.String("username", "", "Basic auth username")
	passFlag := flag.String("password", "", "Basic auth password")

	// Parse the command-line flags
	flag.Parse()

	if *toolsFlag == "" {
		fmt.Println("Tool ids are required. Please provide them using -tools flag.")
		return
	}

	client, err := gateway.New(gateway.Config{BaseURL: *urlFlag, Username: *userFlag, Password: *passFlag})
	if err != nil {
		fmt.Println(err)
		return
	}

	// A session keeps the comparison and the savings estimate in sync with
	// the selected tools.
	session := dashboard.New(client, "")
	defer session.Close()

	ctx := context.Background()
	for _, id := range strings.Split(*toolsFlag, ",") {
		if err := session.AddToolByID(ctx, strings.TrimSpace(id)); err != nil {
			fmt.Println(err)
			return
		}
	}

	view := session.View()
	for _, t := range view.Tools {
		fmt.Println(t.ID, t.Name, t.Category)
	}
	fmt.Println("Features:", strings.Join(view.Result.Features, ", "))
	fmt.Println("Estimated savings:", view.Savings.StringFixed(2))
}
