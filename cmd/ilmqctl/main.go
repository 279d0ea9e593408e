package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/amarouch/ilmq/internal/api"
	"github.com/amarouch/ilmq/internal/profile"
	"github.com/amarouch/ilmq/internal/remote"
	"github.com/amarouch/ilmq/internal/store"
	"github.com/amarouch/ilmq/internal/syncer"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	name := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(name); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	c := newCtlClient(profile.SocketPath(name))
	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Second)
	defer cancel()

	switch args[0] {
	case "status":
		cmdStatus(ctx, c, *jsonFlag)
	case "sync":
		cmdSync(ctx, c, *jsonFlag)
	case "queue":
		if len(args) >= 3 && args[1] == "drop" {
			fatalIf(c.delete(ctx, "/v1/queue/"+args[2]))
			fmt.Println("Dropped.")
			return
		}
		cmdQueue(ctx, c, *jsonFlag)
	case "create":
		if len(args) < 4 {
			fmt.Fprintln(os.Stderr, "usage: ilmqctl create <mode> <category> <display-name>")
			os.Exit(1)
		}
		cmdCreate(ctx, c, args[1], args[2], args[3], *jsonFlag)
	case "join":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: ilmqctl join <code> <display-name>")
			os.Exit(1)
		}
		cmdJoin(ctx, c, args[1], args[2], *jsonFlag)
	case "leave":
		fatalIf(c.post(ctx, "/v1/sessions/leave", nil, nil))
		fmt.Println("Left the room.")
	case "game":
		cmdGame(ctx, c, *jsonFlag)
	case "start":
		cmdLifecycle(ctx, c, "/v1/sessions/start", *jsonFlag)
	case "advance":
		cmdLifecycle(ctx, c, "/v1/sessions/advance", *jsonFlag)
	case "finish":
		cmdLifecycle(ctx, c, "/v1/sessions/finish", *jsonFlag)
	case "answer":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: ilmqctl answer <question-index> <text>")
			os.Exit(1)
		}
		cmdAnswer(ctx, c, args[1], strings.Join(args[2:], " "), *jsonFlag)
	case "lifeline":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: ilmqctl lifeline <joker|help>")
			os.Exit(1)
		}
		cmdLifeline(ctx, c, args[1], *jsonFlag)
	case "hotseat":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: ilmqctl hotseat <new|answer|abort|list> ...")
			os.Exit(1)
		}
		cmdHotseat(ctx, c, args[1:], *jsonFlag)
	case "chat":
		cmdChat(ctx, c, args[1:], *jsonFlag)
	case "say":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: ilmqctl say <name> <message>")
			os.Exit(1)
		}
		cmdSay(ctx, c, args[1], strings.Join(args[2:], " "))
	case "themes":
		cmdThemes(ctx, c, *jsonFlag)
	case "pull":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: ilmqctl pull <category> [limit]")
			os.Exit(1)
		}
		limit := 0
		if len(args) >= 3 {
			limit, _ = strconv.Atoi(args[2])
		}
		cmdPull(ctx, c, args[1], limit)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: ilmqctl [--profile <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status                          Show daemon status")
	fmt.Fprintln(os.Stderr, "  sync                            Flush the offline queue now")
	fmt.Fprintln(os.Stderr, "  queue                           List queued game results")
	fmt.Fprintln(os.Stderr, "  queue drop <local-id>           Remove a queued result")
	fmt.Fprintln(os.Stderr, "  create <mode> <category> <name> Create a room, print its code")
	fmt.Fprintln(os.Stderr, "  join <code> <name>              Join a room by access code")
	fmt.Fprintln(os.Stderr, "  leave                           Leave the current room")
	fmt.Fprintln(os.Stderr, "  game                            Show the current room")
	fmt.Fprintln(os.Stderr, "  start | advance | finish        Drive the current room")
	fmt.Fprintln(os.Stderr, "  answer <index> <text>           Answer the current question")
	fmt.Fprintln(os.Stderr, "  lifeline <joker|help>           Spend a lifeline in the current room")
	fmt.Fprintln(os.Stderr, "  hotseat new <category> <p1,p2>  Start a local hot-seat game")
	fmt.Fprintln(os.Stderr, "  hotseat answer <id> <text>      Answer for the current seat")
	fmt.Fprintln(os.Stderr, "  hotseat lifeline <id> <kind>    Spend the current seat's lifeline")
	fmt.Fprintln(os.Stderr, "  hotseat abort <id>              Cancel a hot-seat game")
	fmt.Fprintln(os.Stderr, "  hotseat list                    List local games")
	fmt.Fprintln(os.Stderr, "  chat [n]                        Show recent room chat")
	fmt.Fprintln(os.Stderr, "  say <name> <message>            Send a chat message")
	fmt.Fprintln(os.Stderr, "  themes                          List playable themes")
	fmt.Fprintln(os.Stderr, "  pull <category> [limit]         Cache questions for offline play")
}

func fatalIf(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func cmdStatus(ctx context.Context, c *ctlClient, jsonOut bool) {
	var res api.StatusResponse
	fatalIf(c.get(ctx, "/v1/status", &res))
	if jsonOut {
		outputJSON(res)
		return
	}
	fmt.Printf("Profile: %s\n", res.Profile)
	fmt.Printf("Route:   %s\n", res.Route)
	fmt.Printf("Queued:  %d\n", res.QueueSize)
	if res.ActiveSessionID != "" {
		fmt.Printf("Room:    %s (%s)\n", res.ActiveSessionID, res.ActiveMode)
	}
}

func cmdSync(ctx context.Context, c *ctlClient, jsonOut bool) {
	var res syncer.Result
	fatalIf(c.post(ctx, "/v1/sync", nil, &res))
	if jsonOut {
		outputJSON(res)
		return
	}
	fmt.Printf("Processed: %d\n", res.Processed)
	fmt.Printf("Synced:    %d\n", res.Synced)
	fmt.Printf("Remaining: %d\n", res.Remaining)
}

func cmdQueue(ctx context.Context, c *ctlClient, jsonOut bool) {
	var res struct {
		Attempts []store.Attempt `json:"attempts"`
	}
	fatalIf(c.get(ctx, "/v1/queue", &res))
	if jsonOut {
		outputJSON(res)
		return
	}
	if len(res.Attempts) == 0 {
		fmt.Println("Queue is empty.")
		return
	}
	for _, a := range res.Attempts {
		fmt.Printf("%s  %-8s %-12s questions=%d queued=%s\n",
			a.LocalID, a.Mode, a.CategorySlug, a.TotalQuestions,
			time.UnixMilli(a.QueuedAt).Format(time.RFC3339))
	}
}

func cmdCreate(ctx context.Context, c *ctlClient, mode, category, name string, jsonOut bool) {
	var res remote.CreateSessionResult
	fatalIf(c.post(ctx, "/v1/sessions", api.SessionCreateRequest{
		Mode:            mode,
		CategorySlug:    category,
		HostDisplayName: name,
	}, &res))
	if jsonOut {
		outputJSON(res)
		return
	}
	fmt.Printf("Room created. Access code: %s\n", res.AccessCode)
	fmt.Println(renderQR(res.AccessCode))
}

func cmdJoin(ctx context.Context, c *ctlClient, code, name string, jsonOut bool) {
	var res remote.JoinSessionResult
	fatalIf(c.post(ctx, "/v1/sessions/join", api.SessionJoinRequest{
		AccessCode:  code,
		DisplayName: name,
	}, &res))
	if jsonOut {
		outputJSON(res)
		return
	}
	fmt.Printf("Joined %s room %s as player %s (state %s)\n", res.Mode, res.SessionID, res.PlayerID, res.State)
}

func cmdGame(ctx context.Context, c *ctlClient, jsonOut bool) {
	var snap remote.Snapshot
	fatalIf(c.get(ctx, "/v1/sessions/active", &snap))
	if jsonOut {
		outputJSON(snap)
		return
	}
	fmt.Printf("Room %s (%s, %s) question %d/%d\n",
		snap.Session.ID, snap.Session.Mode, snap.Session.State,
		snap.Session.CurrentQuestionIndex+1, snap.Session.Settings.QuestionCount)
	for _, p := range snap.Players {
		fmt.Printf("  %d. %-20s %d pts\n", p.SeatOrder+1, p.DisplayName, p.Score)
	}
}

func cmdLifecycle(ctx context.Context, c *ctlClient, path string, jsonOut bool) {
	var res remote.SessionStateResult
	fatalIf(c.post(ctx, path, nil, &res))
	if jsonOut {
		outputJSON(res)
		return
	}
	fmt.Printf("State: %s (question %d)\n", res.State, res.CurrentQuestionIndex+1)
}

func cmdAnswer(ctx context.Context, c *ctlClient, indexArg, text string, jsonOut bool) {
	index, err := strconv.Atoi(indexArg)
	fatalIf(err)
	var res remote.SubmitAnswerResult
	fatalIf(c.post(ctx, "/v1/sessions/answers", api.SessionAnswerRequest{
		QuestionIndex:  index,
		SelectedAnswer: text,
	}, &res))
	if jsonOut {
		outputJSON(res)
		return
	}
	verdict := "wrong"
	if res.IsCorrect {
		verdict = "correct"
	}
	if res.AlreadyAnswered {
		fmt.Printf("Already answered (%s). Score: %d\n", verdict, res.Score)
		return
	}
	fmt.Printf("%s! Score: %d\n", strings.ToUpper(verdict[:1])+verdict[1:], res.Score)
}

func cmdLifeline(ctx context.Context, c *ctlClient, kind string, jsonOut bool) {
	var res remote.UseLifelineResult
	fatalIf(c.post(ctx, "/v1/sessions/lifeline", api.SessionLifelineRequest{Kind: kind}, &res))
	if jsonOut {
		outputJSON(res)
		return
	}
	fmt.Printf("Lifeline used. Jokers left: %d, helps left: %d\n", res.JokersLeft, res.HelpsLeft)
}

func cmdHotseat(ctx context.Context, c *ctlClient, args []string, jsonOut bool) {
	switch args[0] {
	case "new":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: ilmqctl hotseat new <category> <p1,p2,...>")
			os.Exit(1)
		}
		var session store.HotseatSession
		fatalIf(c.post(ctx, "/v1/hotseat", api.HotseatCreateRequest{
			CategorySlug: args[1],
			Players:      strings.Split(args[2], ","),
		}, &session))
		if jsonOut {
			outputJSON(session)
			return
		}
		fmt.Printf("Hot-seat game %s started, %d questions.\n", session.ID, len(session.Questions))
		printHotseatTurn(&session)
	case "answer":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: ilmqctl hotseat answer <id> <text>")
			os.Exit(1)
		}
		var session store.HotseatSession
		fatalIf(c.post(ctx, "/v1/hotseat/"+args[1]+"/answers", api.HotseatAnswerRequest{
			SelectedAnswer: strings.Join(args[2:], " "),
		}, &session))
		if jsonOut {
			outputJSON(session)
			return
		}
		if session.State == "completed" {
			fmt.Println("Game over!")
			for _, p := range session.Players {
				fmt.Printf("  %-20s %d pts\n", p.DisplayName, p.Score)
			}
			return
		}
		printHotseatTurn(&session)
	case "lifeline":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: ilmqctl hotseat lifeline <id> <joker|help>")
			os.Exit(1)
		}
		var session store.HotseatSession
		fatalIf(c.post(ctx, "/v1/hotseat/"+args[1]+"/lifeline", api.HotseatLifelineRequest{
			Kind: args[2],
		}, &session))
		if jsonOut {
			outputJSON(session)
			return
		}
		player := session.Players[session.CurrentSeat]
		fmt.Printf("%s spent a %s. Jokers left: %d, helps left: %d\n",
			player.DisplayName, args[2], player.JokersLeft, player.HelpsLeft)
	case "abort":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: ilmqctl hotseat abort <id>")
			os.Exit(1)
		}
		fatalIf(c.post(ctx, "/v1/hotseat/"+args[1]+"/abort", nil, nil))
		fmt.Println("Game cancelled.")
	case "list":
		var res struct {
			Sessions []store.HotseatSession `json:"sessions"`
		}
		fatalIf(c.get(ctx, "/v1/hotseat", &res))
		if jsonOut {
			outputJSON(res)
			return
		}
		for _, s := range res.Sessions {
			fmt.Printf("%s  %-11s %-12s players=%d q=%d/%d\n",
				s.ID, s.State, s.CategorySlug, len(s.Players),
				s.CurrentQuestionIndex, len(s.Questions))
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown hotseat command: %s\n", args[0])
		os.Exit(1)
	}
}

func printHotseatTurn(s *store.HotseatSession) {
	q := s.Questions[s.CurrentQuestionIndex]
	player := s.Players[s.CurrentSeat]
	fmt.Printf("Question %d/%d for %s:\n", s.CurrentQuestionIndex+1, len(s.Questions), player.DisplayName)
	fmt.Printf("  %s\n", q.Prompt)
	for i, choice := range q.Choices {
		fmt.Printf("    %d) %s\n", i+1, choice)
	}
}

func cmdChat(ctx context.Context, c *ctlClient, args []string, jsonOut bool) {
	path := "/v1/chat"
	if len(args) >= 1 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			path += "?limit=" + strconv.Itoa(n)
		}
	}
	var res struct {
		Messages []store.ChatMessage `json:"messages"`
	}
	fatalIf(c.get(ctx, path, &res))
	if jsonOut {
		outputJSON(res)
		return
	}
	for _, m := range res.Messages {
		fmt.Printf("[%s] %s: %s\n",
			time.UnixMilli(m.CreatedAt).Format("15:04"), m.SenderName, m.Body)
	}
}

func cmdSay(ctx context.Context, c *ctlClient, name, message string) {
	fatalIf(c.post(ctx, "/v1/chat", api.ChatPostRequest{
		SenderName: name,
		Body:       message,
	}, nil))
}

func cmdThemes(ctx context.Context, c *ctlClient, jsonOut bool) {
	var res struct {
		Themes []remote.Theme `json:"themes"`
	}
	fatalIf(c.get(ctx, "/v1/themes", &res))
	if jsonOut {
		outputJSON(res)
		return
	}
	for _, t := range res.Themes {
		fmt.Printf("%-16s %s (%d questions)\n", t.Slug, t.Label, t.AvailableQuestions)
	}
}

func cmdPull(ctx context.Context, c *ctlClient, category string, limit int) {
	var res map[string]int
	fatalIf(c.post(ctx, "/v1/cache/questions", api.CacheQuestionsRequest{
		CategorySlug: category,
		Limit:        limit,
	}, &res))
	fmt.Printf("Fetched %d questions, cached %d.\n", res["fetched"], res["cached"])
}
