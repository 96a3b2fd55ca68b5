package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/livedraft/go/internal/draft/draftrpc"
)

const usage = `usage: draftctl [flags] <command> <league-id> [player-id]

commands:
  start    start the league's draft (commissioner only)
  end      end the league's draft (commissioner only)
  pick     draft player-id for the calling user
  state    print the league's draft snapshot
  players  print the league's undrafted players

flags:
`

func main() {
	addr := flag.String("addr", envOr("DRAFT_ADDR", "http://localhost:8080"), "draft server base URL")
	user := flag.String("user", os.Getenv("DRAFT_USER_ID"), "calling user id")
	timeout := flag.Duration("timeout", 10*time.Second, "request timeout")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(*addr, *user, *timeout, flag.Args()); err != nil {
		var connectErr *connect.Error
		if errors.As(err, &connectErr) {
			fmt.Fprintf(os.Stderr, "draftctl: %s: %s\n", connectErr.Code(), connectErr.Message())
		} else {
			fmt.Fprintf(os.Stderr, "draftctl: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(addr, user string, timeout time.Duration, args []string) error {
	if len(args) < 2 {
		flag.Usage()
		return errors.New("command and league id are required")
	}
	command, leagueID := args[0], args[1]

	if user == "" {
		return errors.New("-user or DRAFT_USER_ID is required")
	}
	userID, err := uuid.Parse(user)
	if err != nil {
		return fmt.Errorf("invalid -user: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	client := draftrpc.NewClient(http.DefaultClient, addr, userID)

	var out any
	switch command {
	case "start":
		out, err = client.StartDraft(ctx, &draftrpc.StartDraftRequest{LeagueID: leagueID})
	case "end":
		out, err = client.EndDraft(ctx, &draftrpc.EndDraftRequest{LeagueID: leagueID})
	case "pick":
		if len(args) < 3 {
			return errors.New("pick requires a player id")
		}
		out, err = client.DraftPlayer(ctx, &draftrpc.DraftPlayerRequest{LeagueID: leagueID, PlayerID: args[2]})
	case "state":
		out, err = client.GetDraftState(ctx, &draftrpc.GetDraftStateRequest{LeagueID: leagueID})
	case "players":
		out, err = client.ListAvailablePlayers(ctx, &draftrpc.ListAvailablePlayersRequest{LeagueID: leagueID})
	default:
		return fmt.Errorf("unknown command %q", command)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
