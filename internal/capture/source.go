// Package capture drives the automatic meter-reading cycle: fetch a camera
// snapshot, hand it to recognition, validate the extracted value, persist.
package capture

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"sort"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/moritzmair/water-usage-tracker/internal/httputil"
)

// Source produces the latest camera snapshot of the meter.
type Source interface {
	Snapshot(ctx context.Context) ([]byte, error)
}

// NewSource picks a snapshot source from a URL. http(s):// fetches a still
// from a camera webserver, ftp:// polls a camera's upload directory for the
// newest file, file:// reads a fixed path on disk.
func NewSource(rawURL string) (Source, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse camera url: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		return &HTTPSource{url: rawURL, client: httputil.NewClientWithTimeout(60 * time.Second)}, nil
	case "ftp":
		return newFTPSource(u)
	case "file":
		return &FileSource{path: u.Path}, nil
	default:
		return nil, fmt.Errorf("unsupported camera url scheme %q", u.Scheme)
	}
}

// HTTPSource fetches a snapshot from a camera's still-image endpoint.
type HTTPSource struct {
	url    string
	client *http.Client
}

func (s *HTTPSource) Snapshot(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch snapshot: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("fetch snapshot: empty body")
	}
	return data, nil
}

// FileSource reads snapshots a tethered camera writes to local disk.
type FileSource struct {
	path string
}

func (s *FileSource) Snapshot(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}
	return data, nil
}

// FTPSource retrieves the newest file from a camera's FTP upload directory.
// Battery-powered meter cams typically push a still per wake cycle rather
// than serving HTTP.
type FTPSource struct {
	addr     string
	user     string
	password string
	dir      string
}

func newFTPSource(u *url.URL) (*FTPSource, error) {
	addr := u.Host
	if u.Port() == "" {
		addr += ":21"
	}

	user := "anonymous"
	password := "anonymous"
	if u.User != nil {
		user = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			password = pw
		}
	}

	dir := u.Path
	if dir == "" {
		dir = "/"
	}

	return &FTPSource{addr: addr, user: user, password: password, dir: dir}, nil
}

func (s *FTPSource) Snapshot(ctx context.Context) ([]byte, error) {
	conn, err := ftp.Dial(s.addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(30*time.Second))
	if err != nil {
		return nil, fmt.Errorf("ftp dial: %w", err)
	}
	defer conn.Quit()

	if err := conn.Login(s.user, s.password); err != nil {
		return nil, fmt.Errorf("ftp login: %w", err)
	}

	entries, err := conn.List(s.dir)
	if err != nil {
		return nil, fmt.Errorf("ftp list %s: %w", s.dir, err)
	}

	var files []*ftp.Entry
	for _, e := range entries {
		if e.Type == ftp.EntryTypeFile {
			files = append(files, e)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("ftp: no snapshot in %s", s.dir)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Time.After(files[j].Time)
	})

	resp, err := conn.Retr(path.Join(s.dir, files[0].Name))
	if err != nil {
		return nil, fmt.Errorf("ftp retrieve %s: %w", files[0].Name, err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("ftp read %s: %w", files[0].Name, err)
	}
	return data, nil
}
