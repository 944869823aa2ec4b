package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"roomchat/backend/internal/config"
	"roomchat/backend/internal/models"
	"roomchat/backend/internal/storage"

	env "github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/redis/go-redis/v9"
)

const usage = `Usage: admin <command> [args]

  create-room <name> [public|private] [creator_id]
  list-rooms
  ban <user_id> [duration_in_hours]
  unban <user_id>`

func main() {
	_ = godotenv.Load()
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	db, err := storage.OpenDatabase(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	if err := storage.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()
	}
	s := storage.NewStorageService(db, rdb)

	if err := run(context.Background(), s, os.Args[1:], os.Stdout); err != nil {
		color.Red.Printf("error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, s storage.Storage, args []string, out io.Writer) error {
	switch args[0] {
	case "create-room":
		if len(args) < 2 || len(args) > 4 {
			return fmt.Errorf("usage: admin create-room <name> [public|private] [creator_id]")
		}
		kind := config.RoomKindPublic
		if len(args) > 2 {
			kind = args[2]
		}
		creator := ""
		if len(args) > 3 {
			creator = args[3]
		}
		room, err := s.CreateRoom(ctx, args[1], kind, creator)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, color.Green.Sprintf("Room %s (%s) has been created.", room.Name, room.Kind))

	case "list-rooms":
		rooms, err := s.ListRooms(ctx)
		if err != nil {
			return err
		}
		renderRooms(out, rooms)

	case "ban":
		if len(args) < 2 || len(args) > 3 {
			return fmt.Errorf("usage: admin ban <user_id> [duration_in_hours]")
		}
		var hours int
		if len(args) == 3 {
			var err error
			hours, err = strconv.Atoi(args[2])
			if err != nil || hours < 0 {
				return fmt.Errorf("invalid duration %q, please provide a non-negative integer", args[2])
			}
		}
		if err := s.BanUser(ctx, args[1], time.Duration(hours)*time.Hour); err != nil {
			return err
		}
		if hours == 0 {
			fmt.Fprintln(out, color.Yellow.Sprintf("User %s has been banned permanently.", args[1]))
		} else {
			fmt.Fprintln(out, color.Yellow.Sprintf("User %s has been banned for %dh.", args[1], hours))
		}

	case "unban":
		if len(args) != 2 {
			return fmt.Errorf("usage: admin unban <user_id>")
		}
		if err := s.UnbanUser(ctx, args[1]); err != nil {
			return err
		}
		fmt.Fprintln(out, color.Green.Sprintf("User %s has been unbanned.", args[1]))

	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
	return nil
}

func renderRooms(out io.Writer, rooms []models.Room) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Name", "Type", "Creator", "Participants", "Created"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, r := range rooms {
		table.Append([]string{
			r.Name,
			r.Kind,
			r.CreatorID,
			strings.Join(r.Participants, ","),
			r.CreatedAt.Format(time.RFC3339),
		})
	}
	table.Render()
}
