package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func main() {
	var (
		url       = flag.String("url", "ws://localhost:8080/ws", "WebSocket URL")
		roomID    = flag.String("room", "42", "Room id to join")
		clients   = flag.Int("clients", 200, "Number of concurrent clients")
		interval  = flag.Int("interval", 1000, "Send interval in ms per client")
		centerLat = flag.Float64("lat", 35.6892, "Center latitude (Tehran default)")
		centerLng = flag.Float64("lng", 51.3890, "Center longitude (Tehran default)")
		spread    = flag.Float64("spread", 0.02, "Spread in degrees (~0.02 is a few km)")
	)
	flag.Parse()

	rand.Seed(time.Now().UnixNano())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// handle ctrl+c
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	log.Printf("Starting loadgen: clients=%d interval=%dms room=%s", *clients, *interval, *roomID)
	log.Printf("Center: lat=%.6f lng=%.6f spread=%.4f", *centerLat, *centerLng, *spread)

	var wg sync.WaitGroup
	wg.Add(*clients)

	for i := 0; i < *clients; i++ {
		username := fmt.Sprintf("loadgen-%d", i)

		// random start positions around the center
		lat := *centerLat + (rand.Float64()*2-1)*(*spread)
		lng := *centerLng + (rand.Float64()*2-1)*(*spread)

		go func(userID int64, username string, startLat, startLng float64) {
			defer wg.Done()
			runClient(ctx, *url, *roomID, userID, username, startLat, startLng, time.Duration(*interval)*time.Millisecond)
		}(int64(i+1), username, lat, lng)
	}

	<-stop
	log.Println("Stopping loadgen...")
	cancel()
	wg.Wait()
	log.Println("All clients stopped.")
}

// forgeToken builds a syntactically valid token for the given identity. The
// server does not check the signature; in a real deployment the room service
// rejects tokens it did not issue, so point the loadgen at a stubbed one.
func forgeToken(userID int64, username string) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  userID,
		"username": username,
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	s, _ := tok.SignedString([]byte("loadgen"))
	return s
}

func runClient(ctx context.Context, url, roomID string, userID int64, username string, lat, lng float64, interval time.Duration) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		log.Printf("[%s] dial error: %v", username, err)
		return
	}
	defer conn.Close()

	// drain server events so the send buffer never backs up
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	join := envelope{Type: "join-room", Data: map[string]string{
		"token":  forgeToken(userID, username),
		"roomId": roomID,
	}}
	if err := writeJSON(conn, join); err != nil {
		log.Printf("[%s] join error: %v", username, err)
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Simulated movement params
	step := 0.0002 + rand.Float64()*0.0003
	angle := rand.Float64() * 2 * math.Pi

	for {
		select {
		case <-ctx.Done():
			_ = writeJSON(conn, envelope{Type: "leave-room", Data: map[string]string{"roomId": roomID}})
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
			return

		case <-ticker.C:
			// slow walk with a wobbling heading
			angle += (rand.Float64()*2 - 1) * 0.05
			lat += math.Sin(angle) * step
			lng += math.Cos(angle) * step

			msg := envelope{Type: "location-update", Data: map[string]any{
				"roomId": roomID,
				"lat":    lat,
				"lng":    lng,
			}}
			if err := writeJSON(conn, msg); err != nil {
				log.Printf("[%s] write error: %v", username, err)
				return
			}
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}
