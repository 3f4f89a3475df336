package radio

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/zachfi/radiogo/pkg/shoutcast"
)

// SourceOpener opens a broadcast source for sequential reading.
type SourceOpener func(ctx context.Context, source string) (io.ReadCloser, error)

// bitrater is implemented by sources that know their own bitrate.
type bitrater interface {
	BitrateBps() int
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// openSource opens local files directly and relays http(s) URLs as ICY
// streams, logging each title change.
func openSource(logger *slog.Logger) SourceOpener {
	return func(ctx context.Context, source string) (io.ReadCloser, error) {
		if !isRemote(source) {
			return os.Open(source)
		}

		// The relay outlives the request that started it.
		s, err := shoutcast.Open(context.WithoutCancel(ctx), source, logger)
		if err != nil {
			return nil, err
		}
		s.MetadataCallbackFunc = func(m *shoutcast.Metadata) {
			logger.Info("now playing", "station", s.Name, "title", m.StreamTitle)
		}

		return s, nil
	}
}
