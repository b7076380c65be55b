// Package server implements the ConnectionServer: the TCP accept
// loop and per-connection read/dispatch/write loop, grounded on
// original_source's Server::run / handle_client / handle_tls_client in
// src/server/connection.rs.
package server

import (
	"bufio"
	"context"
	"crypto/tls"
	"log"
	"net"

	"github.com/ruggine/chatcore/internal/protocol"
)

// Server binds a TCP listener and spawns one independent connection
// task per accepted socket.
type Server struct {
	dispatcher *protocol.Dispatcher
	tlsConfig  *tls.Config
}

// New builds a Server. tlsConfig may be nil, in which case connections
// are plain TCP.
func New(dispatcher *protocol.Dispatcher, tlsConfig *tls.Config) *Server {
	return &Server{dispatcher: dispatcher, tlsConfig: tlsConfig}
}

// ListenAndServe binds addr and accepts connections until ctx is
// canceled or accept fails fatally.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	log.Printf("server: listening on %s (tls=%v)", addr, s.tlsConfig != nil)

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}

		if s.tlsConfig != nil {
			conn = tls.Server(conn, s.tlsConfig)
		}

		go s.handleConnection(ctx, conn)
	}
}

// handleConnection runs one connection's read-dispatch-write loop
// until the peer closes the socket or an I/O error occurs. Connection
// tasks are fully independent: one misbehaving peer cannot stall
// another.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	if tlsConn, ok := conn.(*tls.Conn); ok {
		if err := tlsConn.Handshake(); err != nil {
			return
		}
	}

	remoteAddr := conn.RemoteAddr().String()
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		remoteAddr = host
	}
	reader := bufio.NewReader(conn)

	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			resp := s.dispatcher.Dispatch(ctx, line, remoteAddr)
			if resp != "" {
				if _, werr := conn.Write([]byte(resp)); werr != nil {
					return
				}
			}
		}
		if err != nil {
			return
		}
	}
}
