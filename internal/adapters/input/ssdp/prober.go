// Package ssdp finds MyHOMEServer hubs on the local network.
package ssdp

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"myhome-bridge/internal/ports"
)

var _ ports.Discoverer = (*Prober)(nil)

const multicastAddr = "239.255.255.250:1900"

// serverToken identifies hub responses when the search target is generic.
const serverToken = "myhomeserver"

type Prober struct {
	searchTarget string
	timeout      time.Duration
	logger       zerolog.Logger
}

func NewProber(searchTarget string, timeout time.Duration, logger zerolog.Logger) *Prober {
	return &Prober{
		searchTarget: searchTarget,
		timeout:      timeout,
		logger:       logger.With().Str("component", "ssdp").Logger(),
	}
}

// Discover sends an M-SEARCH and collects the LOCATION of every hub that
// answers before the timeout or ctx ends.
func (p *Prober) Discover(ctx context.Context) ([]string, error) {
	addr, err := net.ResolveUDPAddr("udp4", multicastAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return nil, fmt.Errorf("opening ssdp socket: %w", err)
	}
	defer conn.Close()

	if _, err := conn.WriteToUDP(searchRequest(p.searchTarget, p.timeout), addr); err != nil {
		return nil, fmt.Errorf("sending m-search: %w", err)
	}

	deadline := time.Now().Add(p.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var locations []string
	buf := make([]byte, 2048)
	for ctx.Err() == nil {
		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				break
			}
			return locations, err
		}
		loc, ok := ParseResponse(buf[:n], p.searchTarget)
		if !ok || seen[loc] {
			continue
		}
		seen[loc] = true
		p.logger.Debug().Str("location", loc).Str("from", src.String()).Msg("hub discovered")
		locations = append(locations, loc)
	}
	return locations, nil
}

func searchRequest(st string, timeout time.Duration) []byte {
	mx := max(int(timeout/time.Second), 1)
	return []byte(fmt.Sprintf("M-SEARCH * HTTP/1.1\r\n"+
		"HOST: %s\r\n"+
		"MAN: \"ssdp:discover\"\r\n"+
		"MX: %d\r\n"+
		"ST: %s\r\n\r\n", multicastAddr, mx, st))
}

// ParseResponse returns the LOCATION of a search response that matches the
// search target or comes from a hub.
func ParseResponse(data []byte, searchTarget string) (string, bool) {
	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(data)), nil)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", false
	}

	loc := resp.Header.Get("Location")
	if loc == "" {
		return "", false
	}
	st := resp.Header.Get("St")
	server := strings.ToLower(resp.Header.Get("Server"))
	if !strings.EqualFold(st, searchTarget) && !strings.Contains(server, serverToken) {
		return "", false
	}
	return loc, true
}
