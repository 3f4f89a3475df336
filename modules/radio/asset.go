package radio

import (
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/pkg/errors"
)

// Asset is an open file from the public directory.
type Asset struct {
	io.ReadCloser
	Name        string
	ContentType string // empty when the extension is unknown
}

// openAsset opens name below dir. Names that resolve outside dir, directories
// and missing files all report ErrNotFound.
func openAsset(dir, name string) (*Asset, error) {
	clean := path.Clean("/" + name)
	full := filepath.Join(dir, filepath.FromSlash(clean))

	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotFound, "asset %s", clean)
		}
		return nil, errors.Wrapf(err, "failed to open asset %s", clean)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "failed to stat asset %s", clean)
	}
	if info.IsDir() {
		f.Close()
		return nil, errors.Wrapf(ErrNotFound, "asset %s is a directory", clean)
	}

	return &Asset{
		ReadCloser:  f,
		Name:        full,
		ContentType: mime.TypeByExtension(filepath.Ext(full)),
	}, nil
}
