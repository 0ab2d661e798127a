package boundary

import (
	"context"
	"net/url"
	"path"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bova-research/dcatlas/internal/fetch"
)

// Download retrieves the state boundary shapefile archive, extracts it under
// tempDir, and returns the path to the .shp file.
func Download(ctx context.Context, d *fetch.Downloader, rawURL, tempDir string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrapf(err, "boundary: parse shapefile url %s", rawURL)
	}

	zipName := path.Base(u.Path)
	if zipName == "" || zipName == "." || zipName == "/" {
		zipName = "states.zip"
	}
	zipPath := filepath.Join(tempDir, zipName)

	zap.L().Info("boundary: downloading state shapefile", zap.String("url", rawURL))
	if err := d.Download(ctx, rawURL, zipPath); err != nil {
		return "", eris.Wrap(err, "boundary: download shapefile archive")
	}

	extractDir := filepath.Join(tempDir, "states")
	extracted, err := fetch.ExtractZIP(zipPath, extractDir)
	if err != nil {
		return "", eris.Wrap(err, "boundary: extract shapefile archive")
	}

	shpPath, err := fetch.FindByExt(extracted, ".shp")
	if err != nil {
		return "", eris.Wrap(err, "boundary: locate .shp in archive")
	}
	return shpPath, nil
}
