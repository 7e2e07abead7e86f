package catalog

import (
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

const thumbWidth = 300

// ImageStore writes menu pictures under a static directory served at
// urlPrefix.
type ImageStore struct {
	dir       string
	urlPrefix string
}

func NewImageStore(dir, urlPrefix string) *ImageStore {
	return &ImageStore{dir: dir, urlPrefix: urlPrefix}
}

// Save decodes src, stores it as JPEG together with a thumbnail and returns
// both public paths.
func (s *ImageStore) Save(src io.Reader, name string) (string, string, error) {
	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return "", "", errors.Wrap(err, "decode image")
	}

	foodDir := filepath.Join(s.dir, "foods")
	thumbDir := filepath.Join(foodDir, "thumb")
	if err := os.MkdirAll(thumbDir, 0o755); err != nil {
		return "", "", errors.Wrap(err, "create image directory")
	}

	fileName := name + ".jpg"
	if err := imaging.Save(img, filepath.Join(foodDir, fileName)); err != nil {
		return "", "", errors.Wrap(err, "save image")
	}
	thumb := imaging.Resize(img, thumbWidth, 0, imaging.Lanczos)
	if err := imaging.Save(thumb, filepath.Join(thumbDir, fileName)); err != nil {
		return "", "", errors.Wrap(err, "save thumbnail")
	}

	return s.urlPrefix + "/foods/" + fileName, s.urlPrefix + "/foods/thumb/" + fileName, nil
}
