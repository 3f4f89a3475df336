package recorder

import (
	"log/slog"
	"os"
)

// minWriteBufSize and maxWriteBufSize clamp the configured write buffer to avoid
// tiny writes (no benefit) or very large buffers (memory and latency).
const (
	minWriteBufSize = 32 * 1024       // 32 KiB
	maxWriteBufSize = 4 * 1024 * 1024 // 4 MiB

	// maxSyncSearch is how much data is buffered looking for a frame sync
	// before writing it out regardless.
	maxSyncSearch = 8192
)

// capture writes one continuous stretch of the broadcast into a temp file,
// starting at the first MP3 frame, and commits it to destPath when closed.
type capture struct {
	logger   *slog.Logger
	f        *os.File
	destPath string

	synced   bool
	syncBuf  []byte
	writeBuf []byte
	err      error
}

func newCapture(dir, destPath string, writeBufSize int, logger *slog.Logger) (*capture, error) {
	if writeBufSize < minWriteBufSize {
		writeBufSize = minWriteBufSize
	}
	if writeBufSize > maxWriteBufSize {
		writeBufSize = maxWriteBufSize
	}

	f, err := os.CreateTemp(dir, "*.mp3.tmp")
	if err != nil {
		return nil, err
	}

	return &capture{
		logger:   logger,
		f:        f,
		destPath: destPath,
		syncBuf:  make([]byte, 0, 4096),
		writeBuf: make([]byte, 0, writeBufSize),
	}, nil
}

func (c *capture) write(b []byte) {
	if c.err != nil || len(b) == 0 {
		return
	}

	if !c.synced {
		c.syncBuf = append(c.syncBuf, b...)

		pos := findMP3FrameSync(c.syncBuf)
		switch {
		case pos >= 0:
			c.writeBuf = append(c.writeBuf, c.syncBuf[pos:]...)
		case len(c.syncBuf) > maxSyncSearch:
			c.logger.Warn("no MP3 frame sync found in first 8KB, writing anyway")
			c.writeBuf = append(c.writeBuf, c.syncBuf...)
		default:
			return
		}

		c.synced = true
		c.syncBuf = nil
	} else {
		c.writeBuf = append(c.writeBuf, b...)
	}

	if len(c.writeBuf) >= cap(c.writeBuf) {
		c.flush()
	}
}

func (c *capture) flush() {
	if len(c.writeBuf) == 0 || c.err != nil {
		return
	}

	if _, err := c.f.Write(c.writeBuf); err != nil {
		c.logger.Error("error writing to file", "err", err)
		c.err = err
		return
	}
	c.writeBuf = c.writeBuf[:0]
}

// close flushes everything buffered and commits the temp file.
func (c *capture) close() {
	tempPath := c.f.Name()

	if len(c.syncBuf) > 0 {
		c.writeBuf = append(c.writeBuf, c.syncBuf...)
		c.syncBuf = nil
	}
	c.flush()

	if err := c.f.Sync(); err != nil {
		c.logger.Error("error syncing file", "err", err)
	}
	if err := c.f.Close(); err != nil {
		c.logger.Error("error closing file", "err", err)
	}

	if c.err != nil {
		_ = os.Remove(tempPath)
		return
	}

	commitTempFile(c.logger, tempPath, c.destPath)
}

// commitTempFile renames tempPath to destPath only if dest doesn't exist or
// the temp file is larger, so a short capture never replaces a longer one.
func commitTempFile(logger *slog.Logger, tempPath, destPath string) {
	tempInfo, err := os.Stat(tempPath)
	if err != nil {
		logger.Error("error stating temp file", "err", err, "path", tempPath)
		_ = os.Remove(tempPath)
		return
	}

	destInfo, err := os.Stat(destPath)
	switch {
	case err != nil && !os.IsNotExist(err):
		logger.Error("error stating dest file", "err", err, "path", destPath)
		_ = os.Remove(tempPath)
		return
	case err == nil && tempInfo.Size() <= destInfo.Size():
		_ = os.Remove(tempPath)
		logger.Debug("discarded shorter recording", "path", destPath, "temp_size", tempInfo.Size(), "existing_size", destInfo.Size())
		return
	}

	if err := os.Rename(tempPath, destPath); err != nil {
		logger.Error("error renaming temp to dest", "err", err, "temp", tempPath, "dest", destPath)
		_ = os.Remove(tempPath)
		return
	}
	logger.Info("saved recording", "path", destPath, "size", tempInfo.Size())
}
