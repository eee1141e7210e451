// breaks-dashboard — терминальный дашборд очереди breaks. Держит
// подписку на сервер, отрисовывает каждое обновление и принимает команды
// оператора со стандартного ввода. Параллельно ретранслирует снапшоты
// оверлейным виджетам по websocket.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/breaks/internal/broadcast"
	"github.com/vladislavdragonenkov/breaks/internal/client"
	"github.com/vladislavdragonenkov/breaks/internal/domain"
	"github.com/vladislavdragonenkov/breaks/internal/relay"
)

func main() {
	serverURL := flag.String("server", envOr("BREAKS_SERVER_URL", "http://localhost:3000"), "breaks server base URL")
	username := flag.String("user", os.Getenv("BREAKS_USER"), "operator username")
	key := flag.String("key", os.Getenv("BREAKS_KEY"), "operator access key")
	widgetAddr := flag.String("widget-addr", envOr("BREAKS_WIDGET_ADDR", "localhost:3001"), "widget relay listen address, empty disables")
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.WarnLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(client.Config{
		BaseURL:  *serverURL,
		Username: *username,
		Key:      *key,
		OnStateChange: func(s client.State) {
			fmt.Printf("-- подключение: %s\n", s)
		},
	}, log.WithField("component", "client"))
	go c.Run(ctx)

	bc := broadcast.New()
	defer bc.Close()
	if *widgetAddr != "" {
		srv := &http.Server{Addr: *widgetAddr, Handler: relay.New(bc).Router()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Warn("widget relay failed")
			}
		}()
		go func() {
			<-ctx.Done()
			_ = srv.Close()
		}()
		fmt.Printf("-- виджеты: ws://%s/widget\n", *widgetAddr)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-c.Updates():
				bc.Publish(snap)
				render(snap)
			}
		}
	}()

	runCommandLoop(ctx, c)
}

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func render(snap domain.QueueSnapshot) {
	fmt.Printf("\n=== breaks (%d) ===\n", len(snap))
	for i, rec := range snap {
		name := "-"
		if rec.DisplayName != nil {
			name = *rec.DisplayName
		}
		fmt.Printf("%2d. #%d  %s\n", i+1, rec.OrderNumber, name)
	}
	fmt.Print("> ")
}

const commandHelp = `команды:
  done <номер>            отметить заказ выполненным
  up <номер>              поднять заказ на позицию выше
  down <номер>            опустить заказ на позицию ниже
  rename <номер> <имя>    сменить отображаемое имя
  key <user> <ключ>       задать новый ключ доступа
  quit                    выйти`

func runCommandLoop(ctx context.Context, c *client.Client) {
	fmt.Println(commandHelp)
	fmt.Print("> ")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		if done := dispatch(ctx, c, scanner.Text()); done {
			return
		}
		fmt.Print("> ")
	}
}

func dispatch(ctx context.Context, c *client.Client, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	var err error
	switch fields[0] {
	case "quit", "exit":
		return true
	case "help":
		fmt.Println(commandHelp)
	case "key":
		if len(fields) != 3 {
			fmt.Println("нужно: key <user> <ключ>")
			return false
		}
		c.SetCredential(fields[1], fields[2])
	case "done", "up", "down":
		var n domain.OrderNumber
		if n, err = parseNumber(fields); err == nil {
			switch fields[0] {
			case "done":
				err = c.Complete(ctx, n)
			case "up":
				err = c.MoveUp(ctx, n)
			case "down":
				err = c.MoveDown(ctx, n)
			}
		}
	case "rename":
		if len(fields) < 3 {
			fmt.Println("нужно: rename <номер> <имя>")
			return false
		}
		var n domain.OrderNumber
		if n, err = parseNumber(fields); err == nil {
			err = c.Rename(ctx, n, strings.Join(fields[2:], " "))
		}
	default:
		fmt.Printf("неизвестная команда %q, help покажет список\n", fields[0])
	}

	if err != nil {
		fmt.Printf("ошибка: %v\n", err)
	}
	return false
}

func parseNumber(fields []string) (domain.OrderNumber, error) {
	if len(fields) < 2 {
		return 0, fmt.Errorf("нужен номер заказа")
	}
	n, err := strconv.ParseInt(fields[1], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("номер заказа %q не число", fields[1])
	}
	return domain.OrderNumber(n), nil
}
