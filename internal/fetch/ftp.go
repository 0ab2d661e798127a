package fetch

import (
	"context"
	"net"
	"net/url"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// downloadFTP retrieves u into destPath via anonymous FTP. Census publishes
// TIGER/Line archives on ftp2.census.gov alongside the HTTPS mirror.
func (d *Downloader) downloadFTP(ctx context.Context, u *url.URL, destPath string) error {
	host := u.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "21")
	}
	if u.Path == "" {
		return eris.New("fetch: empty path in ftp url")
	}

	zap.L().Debug("fetch: ftp connecting", zap.String("host", host), zap.String("path", u.Path))

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(d.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return eris.Wrap(err, "fetch: ftp dial")
	}
	defer conn.Quit() //nolint:errcheck

	if err := conn.Login("anonymous", "anonymous@"); err != nil {
		return eris.Wrap(err, "fetch: ftp login")
	}

	resp, err := conn.Retr(u.Path)
	if err != nil {
		return eris.Wrap(err, "fetch: ftp retrieve")
	}
	defer resp.Close() //nolint:errcheck

	if _, err := writeToFile(destPath, resp); err != nil {
		return err
	}
	return nil
}
