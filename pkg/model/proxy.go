package model

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:125.0) Gecko/20100101 Firefox/125.0"

var (
	ErrOffline     = errors.New("offline")
	ErrOutOfBounds = errors.New("tile is out of layer bounds")
)

var _ Source = &Proxy{}

// Proxy downloads tiles from a tile server and keeps them in a disk cache.
type Proxy struct {
	logger      *slog.Logger
	name        string
	key         string
	minZoom     int
	maxZoom     int
	tms         bool
	path        string
	url         string
	ext         string
	serverParts []string
	timeout     time.Duration
	httpTimeout time.Duration
	userAgent   string
	cl          *http.Client
	limiter     *rate.Limiter
	inflight    singleflight.Group

	urlGetter func(z, x, y int) string

	Offline         bool
	keepProbability float32

	t1 *Tile
	t2 *Tile
}

func (p *Proxy) Init() {
	p.cl = &http.Client{
		Timeout: p.httpTimeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: p.httpTimeout,
			MaxIdleConnsPerHost:   8,
		},
	}
}

// SetBounds limits the proxy to tiles inside the rectangle t1 (top left) - t2 (bottom right).
func (p *Proxy) SetBounds(t1, t2 Tile) {
	p.t1, p.t2 = &t1, &t2
}

func (p *Proxy) GetName() string {
	return p.name
}

func (p *Proxy) GetKey() string {
	return p.key
}

func (p *Proxy) GetMinZoom() int {
	return p.minZoom
}

func (p *Proxy) GetMaxZoom() int {
	return p.maxZoom
}

func (p *Proxy) GetContentType() string {
	if ct := ContentType(p.ext); ct != "" {
		return ct
	}

	return "image/png"
}

func (p *Proxy) IsTms() bool {
	return p.tms
}

func (p *Proxy) IsFile() bool {
	return false
}

// CachePath returns the cache file name of a tile, {z}_{x}_{y}.ext grouped by zoom.
func (p *Proxy) CachePath(z, x, y int) string {
	return filepath.Join(p.path, "z"+strconv.Itoa(z), fmt.Sprintf("%d_%d_%d.%s", z, x, y, p.ext))
}

func (p *Proxy) GetTile(ctx context.Context, z, x, y int) ([]byte, error) {
	if z < p.minZoom || z > p.maxZoom {
		return nil, fmt.Errorf("invalid zoom %d", z)
	}

	if p.t1 != nil && p.t2 != nil && !(Tile{X: x, Y: y, Z: z}).InRect(*p.t1, *p.t2) {
		return nil, fmt.Errorf("%w: %d/%d/%d", ErrOutOfBounds, z, x, y)
	}

	if p.tms {
		y = 1<<z - y - 1
	}

	logger := p.logger.With("zoom", strconv.Itoa(z))

	fname := p.CachePath(z, x, y)

	st, err := os.Stat(fname)

	if err != nil {
		logger.Debug("miss")
		return p.fetch(ctx, z, x, y, fname)
	}

	if p.timeout == 0 || st.ModTime().Add(p.timeout).After(time.Now()) {
		logger.Debug("hit")
		return os.ReadFile(fname)
	}

	if rand.Float32() < p.keepProbability {
		logger.Debug("keep")
		return os.ReadFile(fname)
	}

	logger.Debug("timeout")
	data, err := p.fetch(ctx, z, x, y, fname)

	// backup - return file if any
	if err != nil {
		logger.Warn("refresh failed, using cached tile", "error", err)
		return os.ReadFile(fname)
	}

	return data, nil
}

// fetch downloads a tile once, concurrent callers for the same file share the result.
func (p *Proxy) fetch(ctx context.Context, z, x, y int, fname string) ([]byte, error) {
	v, err, _ := p.inflight.Do(fname, func() (any, error) {
		return p.download(ctx, p.GetUrl(z, x, y), fname)
	})

	if err != nil {
		return nil, err
	}

	return v.([]byte), nil
}

func (p *Proxy) download(ctx context.Context, url string, fname string) ([]byte, error) {
	if p.Offline {
		return nil, ErrOffline
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)

	if err != nil {
		return nil, err
	}

	ua := p.userAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	req.Header.Set("User-Agent", ua)

	resp, err := p.cl.Do(req)

	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s error %s", url, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)

	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("%s: empty body", url)
	}

	if err := writeFileAtomic(fname, data); err != nil {
		p.logger.Warn("can't save tile", "file", fname, "error", err)
	}

	return data, nil
}

// writeFileAtomic writes data to a temp file in the target directory and renames it,
// so readers never see a partially written tile.
func writeFileAtomic(fname string, data []byte) error {
	dir := filepath.Dir(fname)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	fl, err := os.CreateTemp(dir, ".tile-*")

	if err != nil {
		return err
	}

	if _, err = fl.Write(data); err != nil {
		fl.Close()
		os.Remove(fl.Name())
		return err
	}

	if err := fl.Close(); err != nil {
		os.Remove(fl.Name())
		return err
	}

	if err := os.Rename(fl.Name(), fname); err != nil {
		os.Remove(fl.Name())
		return err
	}

	return nil
}

func (p *Proxy) GetUrl(z, x, y int) string {
	if p.urlGetter == nil {
		url := strings.ReplaceAll(p.url, "{z}", strconv.Itoa(z))
		url = strings.ReplaceAll(url, "{x}", strconv.Itoa(x))
		url = strings.ReplaceAll(url, "{y}", strconv.Itoa(y))

		if len(p.serverParts) > 0 {
			i := rand.Intn(len(p.serverParts))
			url = strings.ReplaceAll(url, "{s}", p.serverParts[i])
		}

		return url
	}

	return p.urlGetter(z, x, y)
}
