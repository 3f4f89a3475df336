package shoutcast

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// maxRedirects bounds how many playlists are followed before giving up.
const maxRedirects = 3

// MetadataCallbackFunc is the type of the function called when the stream metadata changes
type MetadataCallbackFunc func(m *Metadata)

// Stream represents an open shoutcast stream.
type Stream struct {
	// The name of the server
	Name string

	// What category the server falls under
	Genre string

	// Homepage of the server
	URL string

	// Bitrate advertised by the server in kbit/s
	Bitrate int

	// Optional function to be executed when stream metadata changes
	MetadataCallbackFunc MetadataCallbackFunc

	// Amount of audio bytes between metadata blocks, 0 when the server sends none
	metaint int

	// The number of audio bytes read since the last metadata block
	pos int

	metadata *Metadata
	rc       io.ReadCloser
	logger   *slog.Logger
}

// client has a dial and header timeout but no overall timeout, so a stream
// can be read indefinitely.
var client = &http.Client{
	Transport: &http.Transport{
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		ResponseHeaderTimeout: 10 * time.Second,
	},
}

// Open connects to url, following .pls and .m3u playlists to the stream they
// reference. Cancelling ctx aborts the stream.
func Open(ctx context.Context, url string, logger *slog.Logger) (*Stream, error) {
	for i := 0; i <= maxRedirects; i++ {
		logger.Info("opening stream", "url", url)

		req, err := newRequest(ctx, url)
		if err != nil {
			return nil, err
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch URL: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status %s from %s", resp.Status, url)
		}

		if resp.Header.Get("icy-metaint") == "" && resp.Header.Get("icy-br") == "" {
			next, err := resolvePlaylist(url, resp)
			if err != nil {
				resp.Body.Close()
				return nil, err
			}
			if next != "" {
				resp.Body.Close()
				logger.Info("resolved playlist to stream URL", "url", next)
				url = next
				continue
			}
		}

		return newStream(resp, logger)
	}

	return nil, fmt.Errorf("too many playlist redirects for %s", url)
}

func newStream(resp *http.Response, logger *slog.Logger) (*Stream, error) {
	for k, v := range resp.Header {
		logger.Debug("http header", "key", k, "value", v[0])
	}

	var bitrate int
	if raw := resp.Header.Get("icy-br"); raw != "" {
		var err error
		// Some servers send "128,128".
		first, _, _ := strings.Cut(raw, ",")
		if bitrate, err = strconv.Atoi(strings.TrimSpace(first)); err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("cannot parse bitrate: %v", err)
		}
	}

	var metaint int
	if raw := resp.Header.Get("icy-metaint"); raw != "" {
		var err error
		if metaint, err = strconv.Atoi(raw); err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("cannot parse metaint: %v", err)
		}
	}

	return &Stream{
		Name:    resp.Header.Get("icy-name"),
		Genre:   resp.Header.Get("icy-genre"),
		URL:     resp.Header.Get("icy-url"),
		Bitrate: bitrate,
		metaint: metaint,
		rc:      resp.Body,
		logger:  logger,
	}, nil
}

// BitrateBps returns the advertised bitrate in bits per second, or 0 if unknown.
func (s *Stream) BitrateBps() int {
	return s.Bitrate * 1000
}

// Read returns audio bytes only. Reads stop short at metadata boundaries.
func (s *Stream) Read(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	if s.metaint > 0 && s.pos == s.metaint {
		if err := s.readMetadata(); err != nil {
			return 0, err
		}
		s.pos = 0
	}

	if s.metaint > 0 && len(buf) > s.metaint-s.pos {
		buf = buf[:s.metaint-s.pos]
	}

	n, err := s.rc.Read(buf)
	s.pos += n

	return n, err
}

// readMetadata consumes one metadata block and fires the callback if it changed.
func (s *Stream) readMetadata() error {
	var length [1]byte
	if _, err := io.ReadFull(s.rc, length[:]); err != nil {
		return err
	}

	size := int(length[0]) * 16
	if size == 0 {
		return nil
	}

	block := make([]byte, size)
	if _, err := io.ReadFull(s.rc, block); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}

	if m := NewMetadata(block); !m.Equals(s.metadata) {
		s.metadata = m
		s.logger.Debug("stream metadata changed", "title", m.StreamTitle)
		if s.MetadataCallbackFunc != nil {
			s.MetadataCallbackFunc(m)
		}
	}

	return nil
}

// Close closes the stream
func (s *Stream) Close() error {
	s.logger.Info("closing stream", "url", s.URL)
	return s.rc.Close()
}
