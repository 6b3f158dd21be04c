package session

import (
	"net"

	"github.com/quietloop/archon/internal/eventloop"
)

// RegisterPump arranges for ch to be driven by the cooperative Loop.
// net.Conn has no level-triggered readiness notification, so one
// dedicated goroutine per connection is unavoidable for the blocking
// Read call itself — but that goroutine only reads bytes; every
// buffer mutation and OnCommand dispatch is handed to loop.Post so it
// runs on the single loop goroutine, per spec §5's no-shared-mutable-
// state-off-loop rule. The reader goroutine exits (and lets the
// connection be garbage collected once Disconnect closes it) as soon
// as Read returns any error, including the one Disconnect's Close
// call produces.
func RegisterPump(loop *eventloop.Loop, conn net.Conn, ch *Channel) {
	go func() {
		buf := make([]byte, 64*1024)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				data := append([]byte(nil), buf[:n]...)
				loop.Post(func() {
					ch.Feed(data)
				})
			}
			if err != nil {
				loop.Post(func() {
					if ch.Connected() && ch.OnError != nil {
						ch.OnError(ch, err)
					}
				})
				return
			}
		}
	}()
}
