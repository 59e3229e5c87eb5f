package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/cipherroom/internal/api/grpc/client"
	"github.com/dtroode/cipherroom/internal/auth"
	"github.com/dtroode/cipherroom/internal/classifier"
	"github.com/dtroode/cipherroom/internal/config"
	"github.com/dtroode/cipherroom/internal/logger"
	"github.com/dtroode/cipherroom/internal/model"
	"github.com/dtroode/cipherroom/internal/service"
	storage "github.com/dtroode/cipherroom/internal/storage/minio"
	"github.com/dtroode/cipherroom/internal/token"
)

const usage = `commands:
  /invite <user>   send the current room to another user
  /inbox           list received invites
  /accept <id>     join the room from an invite
  /dismiss <id>    dismiss an invite
  /leave           leave the current room
  /quit            exit
anything else is sent as a message`

func main() {
	roomID := flag.String("room", "", "room id to join")
	secret := flag.String("secret", "", "room secret")
	newRoom := flag.Bool("new", false, "create a new room and print its credentials")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := newLogger(cfg.LogLevel)

	session := auth.NewSession(token.NewUnverified(), logger)
	if _, err := session.SignIn(cfg.Relay.Token); err != nil {
		logger.Fatal("failed to sign in, check RELAY_TOKEN", "error", err)
	}

	conn, err := client.Dial(cfg.Relay, session)
	if err != nil {
		logger.Fatal("failed to connect to relay", "error", err)
	}
	defer conn.Close()
	relay := client.New(conn, logger)

	threats := loadClassifier(ctx, cfg, logger)
	view := newRenderer(os.Stdout)
	room := service.NewRoomSession(relay, threats, session, logger, service.WithStateListener(view.render))
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := room.Close(closeCtx); err != nil {
			logger.Warn("failed to leave room cleanly", "error", err)
		}
	}()
	inbox := service.NewInbox(relay, session, logger)
	inboxSub, err := inbox.Subscribe(ctx, model.SnapshotHandler[model.Invite]{
		OnSnapshot: view.invites,
		OnError:    func(err error) { logger.Debug("inbox refresh failed", "error", err) },
	})
	if err != nil {
		logger.Warn("failed to watch inbox", "error", err)
	} else {
		defer inboxSub.Close()
	}

	if *newRoom {
		creds, err := service.NewRoomCredentials()
		if err != nil {
			logger.Fatal("failed to create room", "error", err)
		}
		*roomID, *secret = creds.RoomID, creds.Secret
		fmt.Printf("room: %s\nsecret: %s\n", creds.RoomID, creds.Secret)
	}
	if *roomID != "" {
		if err := join(ctx, room, *roomID, *secret); err != nil {
			fmt.Println("join failed:", err)
		}
	}

	fmt.Println(usage)
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := handleLine(ctx, line, room, inbox); quit {
				return
			}
		}
	}
}

// logOutput keeps log records off stdout, which belongs to the chat transcript.
var logOutput io.Writer = os.Stderr

func newLogger(level int) *logger.Logger {
	return logger.NewWithWriter(logOutput, level)
}

func handleLine(ctx context.Context, line string, room *service.RoomSession, inbox *service.Inbox) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	var err error
	switch cmd {
	case "/quit":
		return true
	case "/leave":
		err = room.Leave(ctx)
	case "/invite":
		err = invite(ctx, room, inbox, arg)
	case "/inbox":
		err = listInbox(ctx, inbox)
	case "/accept":
		err = accept(ctx, room, inbox, arg)
	case "/dismiss":
		var id uuid.UUID
		if id, err = uuid.Parse(arg); err == nil {
			err = inbox.Dismiss(ctx, id)
		}
	default:
		err = room.Send(ctx, line)
	}
	if err != nil {
		fmt.Println("error:", err)
	}
	return false
}

// loadClassifier returns an adapter loading the lexicon from object storage.
// Without storage the adapter goes straight to unavailable and flags nothing.
func loadClassifier(ctx context.Context, cfg *config.Config, logger *logger.Logger) *classifier.Adapter {
	var runtime classifier.Runtime
	if cfg.Storage.Endpoint != "" {
		objects, err := storage.Connect(ctx, cfg.Storage)
		if err != nil {
			logger.Warn("object storage unavailable, content screening disabled", "error", err)
		} else {
			runtime = classifier.NewLexiconRuntime(objects, cfg.Classifier.ModelKey)
		}
	}

	adapter := classifier.New(runtime, logger,
		classifier.WithThreshold(cfg.Classifier.Threshold),
		classifier.WithCategories(cfg.Classifier.Categories),
	)
	adapter.Load(ctx)
	return adapter
}
