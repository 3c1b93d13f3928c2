// mirrorctl - query a running mirror's status dashboard
//
//	mirrorctl [-addr host:port] status
//	mirrorctl [-addr host:port] events [-n 20]
//	mirrorctl [-addr host:port] watch
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-mirror/internal/httpc"
	"github.com/teslashibe/go-mirror/pkg/web"
)

func main() {
	addr := flag.String("addr", "localhost:8080", "Dashboard address")
	flag.Usage = usage
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch cmd := flag.Arg(0); cmd {
	case "status", "":
		err = status(ctx, os.Stdout, *addr)
	case "events":
		fs := flag.NewFlagSet("events", flag.ExitOnError)
		n := fs.Int("n", 20, "Number of events")
		fs.Parse(flag.Args()[1:])
		err = events(ctx, os.Stdout, *addr, *n)
	case "watch":
		err = watch(ctx, os.Stdout, *addr)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "mirrorctl: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: mirrorctl [-addr host:port] status | events [-n N] | watch")
	flag.PrintDefaults()
}

func status(ctx context.Context, w io.Writer, addr string) error {
	var st web.Status
	if err := httpc.GetJSON(ctx, "http://"+addr+"/api/status", &st); err != nil {
		return err
	}
	printStatus(w, st)
	return nil
}

func events(ctx context.Context, w io.Writer, addr string, n int) error {
	var list []web.Event
	url := fmt.Sprintf("http://%s/api/events?limit=%d", addr, n)
	if err := httpc.GetJSON(ctx, url, &list); err != nil {
		return err
	}
	for _, e := range list {
		fmt.Fprintf(w, "%s  %-10s %s\n", e.Time, e.Type, e.Message)
	}
	return nil
}

// watch prints every status update until interrupted.
func watch(ctx context.Context, w io.Writer, addr string) error {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.DialContext(ctx, "ws://"+addr+"/ws/status", nil)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		var st web.Status
		if err := json.Unmarshal(data, &st); err != nil {
			fmt.Fprintf(os.Stderr, "mirrorctl: bad status message: %v\n", err)
			continue
		}
		printStatus(w, st)
	}
}

func printStatus(w io.Writer, st web.Status) {
	line := fmt.Sprintf("%-8s alpha=%3d tracking=%-5v entered=%d exited=%d leds=%s",
		st.State, st.Alpha, st.Tracking, st.Entered, st.Exited, st.LEDCommand)
	if st.Asset != "" {
		line += " video=" + st.Asset
	}
	if !st.LastSeen.IsZero() {
		line += " last_seen=" + st.LastSeen.Format("15:04:05")
	}
	fmt.Fprintln(w, line)
}
