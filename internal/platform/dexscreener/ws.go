package dexscreener

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mbelgaila/Meme-Coin-Trading-Bot/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// handshakeTimeout bounds the WebSocket dial.
	handshakeTimeout = 15 * time.Second

	// tickBuffer is the capacity of the delivered tick channel. A slow
	// consumer drops ticks rather than stalling the read loop.
	tickBuffer = 16
)

// SubscribePrices opens a dedicated WebSocket stream for the given pair and
// delivers price ticks on the returned channel. The channel is closed when
// the stream disconnects or the context is cancelled; the caller decides
// whether the closure ends monitoring or warrants a resubscribe.
func (c *Client) SubscribePrices(ctx context.Context, pairAddress string) (<-chan domain.PriceTick, error) {
	endpoint := fmt.Sprintf("%s/latest/dex/pairs/solana/%s", c.wsHost, pairAddress)

	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dexscreener/ws: connect %s: %w", pairAddress, err)
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	stream := &priceStream{
		pairAddress: pairAddress,
		conn:        conn,
		ticks:       make(chan domain.PriceTick, tickBuffer),
		done:        make(chan struct{}),
	}

	go stream.pingLoop()
	go stream.readLoop(ctx)

	return stream.ticks, nil
}

// priceStream holds the state of a single per-pair price subscription.
type priceStream struct {
	pairAddress string
	conn        *websocket.Conn
	ticks       chan domain.PriceTick
	done        chan struct{}
}

// readLoop reads messages until the connection fails or the context is
// cancelled, then closes the tick channel. It runs in its own goroutine.
func (s *priceStream) readLoop(ctx context.Context) {
	defer func() {
		close(s.done)
		s.conn.Close()
		close(s.ticks)
	}()

	// Unblock ReadMessage when the caller cancels.
	stop := context.AfterFunc(ctx, func() {
		s.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var tick wsTick
		if err := json.Unmarshal(message, &tick); err != nil {
			continue // Silently drop unparseable messages.
		}

		price := tick.price()
		if price <= 0 {
			continue
		}

		pt := domain.PriceTick{
			PairAddress: s.pairAddress,
			PriceUSD:    price,
			Timestamp:   time.Now().UTC(),
		}

		select {
		case s.ticks <- pt:
		default:
			// Consumer is behind; newer ticks supersede dropped ones.
		}
	}
}

// pingLoop sends periodic ping messages to keep the stream alive.
func (s *priceStream) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
