// Package network lets the TLS port answer plain HTTP with a redirect to HTTPS.
package network

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
)

// tlsHandshake is the record type byte every TLS client hello starts with.
const tlsHandshake = 0x16

// RedirectListener wraps the listener of a TLS server. Connections that start
// with a plain HTTP request get a 307 to the https URL and are closed.
type RedirectListener struct {
	net.Listener
}

func NewRedirectListener(listener net.Listener) net.Listener {
	return &RedirectListener{Listener: listener}
}

func (l *RedirectListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	return &sniffConn{Conn: conn, reader: bufio.NewReader(conn)}, nil
}

type sniffConn struct {
	net.Conn
	reader *bufio.Reader

	once    sync.Once
	sniffed error
}

func (c *sniffConn) Read(buf []byte) (int, error) {
	c.once.Do(c.sniff)
	if c.sniffed != nil {
		return 0, c.sniffed
	}
	return c.reader.Read(buf)
}

func (c *sniffConn) sniff() {
	first, err := c.reader.Peek(1)
	if err != nil || first[0] == tlsHandshake {
		return
	}

	_ = c.Conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	req, err := http.ReadRequest(c.reader)
	if err == nil {
		resp := http.Response{
			StatusCode: http.StatusTemporaryRedirect,
			ProtoMajor: 1,
			ProtoMinor: 1,
			Header:     http.Header{},
		}
		resp.Header.Set("Location", fmt.Sprintf("https://%s%s", req.Host, req.RequestURI))
		resp.Header.Set("Connection", "close")
		_ = resp.Write(c.Conn)
	}
	_ = c.Conn.Close()
	c.sniffed = net.ErrClosed
}
