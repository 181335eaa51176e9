package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"diary_console/internal/app"
	"diary_console/internal/config"
	"diary_console/internal/console"
	"diary_console/internal/domain/models"
	"diary_console/internal/store"
	"diary_console/internal/stubserver"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cmd := &cli.Command{
		Name:  "diary_console",
		Usage: "Reviewer console for moderating user-submitted travel diaries",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Sources: cli.EnvVars("CONFIG_PATH"),
			},
		},
		Commands: []*cli.Command{
			loginCommand(),
			logoutCommand(),
			whoamiCommand(),
			listCommand(),
			showCommand(),
			approveCommand(),
			rejectCommand(),
			deleteCommand(),
			aiCommand(),
			refreshCommand(),
			stubCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("command failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func buildApp(cmd *cli.Command) *app.App {
	var cfg *config.Config
	if path := cmd.String("config"); path != "" {
		cfg = config.MustLoadPath(path)
	} else {
		cfg = config.MustLoad()
	}

	a := app.New(setupLogger(cfg.Env), cfg)
	a.StartMetrics()
	return a
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelWarn,
			}),
		)
	}

	return log
}

func collectionByName(name string) (models.CollectionName, error) {
	switch name {
	case "pending":
		return models.CollectionPending, nil
	case "approved":
		return models.CollectionApproved, nil
	case "rejected":
		return models.CollectionRejected, nil
	case "reviews", "my-reviews":
		return models.CollectionMyReviewed, nil
	default:
		return "", fmt.Errorf("unknown collection %q (want pending, approved, rejected or reviews)", name)
	}
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Authenticate and store the access token",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Required: true},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Required: true},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a := buildApp(cmd)
			user, err := a.Session.Login(ctx, cmd.String("username"), cmd.String("password"))
			if err != nil {
				return err
			}
			fmt.Printf("logged in as %s (%s)\n", user.Nickname, user.Role)
			return nil
		},
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Drop the stored access token",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return buildApp(cmd).Session.Logout()
		},
	}
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the current session",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a := buildApp(cmd)
			user, ok := a.Session.IsAuthenticated()
			if !ok {
				fmt.Println("not logged in")
				return nil
			}
			fmt.Printf("%s (@%s), role %s\n", user.Nickname, user.Username, user.Role)
			return nil
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Usage:     "Fetch and display one collection",
		ArgsUsage: "pending|approved|rejected|reviews",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "page"},
			&cli.IntFlag{Name: "limit"},
			&cli.StringFlag{Name: "keyword", Aliases: []string{"k"}},
			&cli.IntFlag{Name: "days", Usage: "review history window (reviews only)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name, err := collectionByName(cmd.Args().First())
			if err != nil {
				return err
			}

			a := buildApp(cmd)
			params := store.FetchParams{
				Page:    int(cmd.Int("page")),
				Limit:   int(cmd.Int("limit")),
				Keyword: cmd.String("keyword"),
				Days:    int(cmd.Int("days")),
			}
			if name == models.CollectionMyReviewed && params.Days == 0 {
				params.Days = a.Cfg.Defaults.Days
			}

			if err := a.Store.Fetch(ctx, name, params); err != nil {
				return err
			}

			snap, err := a.Store.Collection(name)
			if err != nil {
				return err
			}
			console.RenderCollection(os.Stdout, name, snap, "")
			return nil
		},
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Display one diary in detail",
		ArgsUsage: "<diary-id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a := buildApp(cmd)
			diary, err := a.Store.FetchDiary(ctx, cmd.Args().First())
			if err != nil {
				return err
			}
			console.RenderDiary(os.Stdout, diary)
			if suggestion, ok := a.Store.Suggestion(diary.ID); ok {
				fmt.Println()
				console.RenderSuggestion(os.Stdout, suggestion)
			}
			return nil
		},
	}
}

func approveCommand() *cli.Command {
	return &cli.Command{
		Name:      "approve",
		Usage:     "Approve a pending diary",
		ArgsUsage: "<diary-id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a := buildApp(cmd)
			if _, err := a.Session.RequireAdmin(); err != nil {
				return err
			}
			diary, err := a.Store.Approve(ctx, cmd.Args().First())
			if err != nil {
				return err
			}
			fmt.Printf("approved %q\n", diary.Title)
			return nil
		},
	}
}

func rejectCommand() *cli.Command {
	return &cli.Command{
		Name:      "reject",
		Usage:     "Reject a pending diary with a reason",
		ArgsUsage: "<diary-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "reason", Aliases: []string{"r"}, Required: true},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a := buildApp(cmd)
			if _, err := a.Session.RequireAdmin(); err != nil {
				return err
			}
			diary, err := a.Store.Reject(ctx, cmd.Args().First(), cmd.String("reason"))
			if err != nil {
				return err
			}
			fmt.Printf("rejected %q\n", diary.Title)
			return nil
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a diary from every collection",
		ArgsUsage: "<diary-id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a := buildApp(cmd)
			if _, err := a.Session.RequireAdmin(); err != nil {
				return err
			}
			if err := a.Store.Delete(ctx, cmd.Args().First()); err != nil {
				return err
			}
			fmt.Println("deleted")
			return nil
		},
	}
}

func aiCommand() *cli.Command {
	return &cli.Command{
		Name:      "ai",
		Usage:     "Ask for an advisory AI review of a diary",
		ArgsUsage: "<diary-id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a := buildApp(cmd)
			suggestion, err := a.Store.AIReview(ctx, cmd.Args().First())
			if err != nil {
				return err
			}
			console.RenderSuggestion(os.Stdout, suggestion)
			return nil
		},
	}
}

func refreshCommand() *cli.Command {
	return &cli.Command{
		Name:  "refresh",
		Usage: "Fetch all four collections and display them",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a := buildApp(cmd)

			g, gctx := errgroup.WithContext(ctx)
			for _, name := range models.Collections() {
				name := name
				g.Go(func() error {
					params := store.FetchParams{}
					if name == models.CollectionMyReviewed {
						params.Days = a.Cfg.Defaults.Days
					}
					return a.Store.Fetch(gctx, name, params)
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			for _, name := range models.Collections() {
				snap, err := a.Store.Collection(name)
				if err != nil {
					return err
				}
				fmt.Printf("== %s ==\n", name)
				console.RenderCollection(os.Stdout, name, snap, "")
				fmt.Println()
			}
			return nil
		},
	}
}

func stubCommand() *cli.Command {
	return &cli.Command{
		Name:  "stub",
		Usage: "Serve an in-memory fake of the moderation API for offline demos",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: ":3000"},
			&cli.StringFlag{Name: "secret", Value: "stub-secret"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			srv := stubserver.New(cmd.String("secret"))
			srv.AddUser("admin", "admin123", "Reviewer", models.RoleAdmin)
			srv.AddUser("alice", "alice123", "Alice", models.RoleUser)
			seedDiaries(srv)

			fmt.Printf("stub moderation api on %s (admin/admin123)\n", cmd.String("addr"))
			return srv.Handler().Start(cmd.String("addr"))
		},
	}
}

func seedDiaries(srv *stubserver.Server) {
	author := models.Author{ID: "seed-author", Username: "alice", Nickname: "Alice"}
	srv.AddDiary(models.Diary{
		Title:   "雨崩徒步三日",
		Content: "从西当村出发，翻过南宗垭口，雪山就在眼前。第二天去了冰湖，第三天原路返回。",
		Images:  []string{"https://img.example.com/yubeng-1.jpg", "https://img.example.com/yubeng-2.jpg"},
		Author:  author,
	})
	srv.AddDiary(models.Diary{
		Title:   "Kyoto in three days",
		Content: "Fushimi Inari before sunrise beats the crowds. Arashiyama is better in the rain.",
		Images:  []string{"https://img.example.com/kyoto.jpg"},
		Author:  author,
	})
	srv.AddDiary(models.Diary{
		Title:   "test",
		Content: "short",
		Author:  author,
	})
}
