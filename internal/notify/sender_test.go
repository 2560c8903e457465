package notify

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"ms-marketplace/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listen(t *testing.T) (net.Listener, string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return ln, host, port
}

// serveSMTP answers one session with the minimum of the protocol and returns
// the DATA section it received.
func serveSMTP(ln net.Listener) <-chan string {
	body := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		reply := func(s string) { conn.Write([]byte(s + "\r\n")) }

		reply("220 localhost ESMTP")
		var data strings.Builder
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			cmd := strings.ToUpper(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				reply("250 localhost")
			case strings.HasPrefix(cmd, "MAIL"), strings.HasPrefix(cmd, "RCPT"):
				reply("250 OK")
			case cmd == "DATA":
				reply("354 go ahead")
				for {
					l, err := r.ReadString('\n')
					if err != nil {
						return
					}
					if l == ".\r\n" {
						break
					}
					data.WriteString(l)
				}
				reply("250 queued")
			case cmd == "QUIT":
				reply("221 bye")
				body <- data.String()
				return
			default:
				reply("250 OK")
			}
		}
	}()
	return body
}

func TestSMTPSender_Delivers(t *testing.T) {
	ln, host, port := listen(t)
	received := serveSMTP(ln)

	sender := NewSMTPSender(config.EmailConfig{SMTPHost: host, SMTPPort: port, From: "Neighborly <no-reply@neighborly.local>"})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, sender.Send(ctx, "mama@example.com", "New order", "<p>Jollof x1</p>"))

	select {
	case body := <-received:
		assert.Contains(t, body, "Subject: New order")
		assert.Contains(t, body, "mama@example.com")
	case <-time.After(5 * time.Second):
		t.Fatal("server never saw QUIT")
	}
}

func TestSMTPSender_HungRelayReturnsOnDeadline(t *testing.T) {
	ln, host, port := listen(t)
	accepted := make(chan net.Conn, 1)
	go func() {
		// accept and never greet
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()
	t.Cleanup(func() {
		select {
		case c := <-accepted:
			c.Close()
		default:
		}
	})

	sender := NewSMTPSender(config.EmailConfig{SMTPHost: host, SMTPPort: port, From: "no-reply@neighborly.local"})
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := sender.Send(ctx, "mama@example.com", "New order", "<p>x</p>")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestNewSMTPSender_DefaultDialTimeout(t *testing.T) {
	s := NewSMTPSender(config.EmailConfig{SMTPHost: "localhost", SMTPPort: 25})
	assert.Equal(t, 10*time.Second, s.dialTimeout)
}
