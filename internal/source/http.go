package source

import (
	"context"
	"fmt"
	"image"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/gisquick/tilecache/internal/ctxerr"
	"github.com/gisquick/tilecache/internal/grid"
	"github.com/gisquick/tilecache/internal/tile"
)

// HTTP renders by issuing a WMS GetMap request, grounded on the teacher's
// Layer.GetMetaTileURL / CacheService.RenderTile (internal/mapcache/mapcache.go,
// internal/mapcache/service.go): a shared *http.Client, BBOX/WIDTH/HEIGHT/SRS
// query params, MAP pointing at the backing project file.
type HTTP struct {
	BaseURL    string
	MapFile    string
	Layers     string
	Projection string
	client     *http.Client
	log        *zap.SugaredLogger
}

func NewHTTP(log *zap.SugaredLogger, client *http.Client, baseURL, mapFile, layers, projection string) *HTTP {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTP{
		BaseURL:    baseURL,
		MapFile:    mapFile,
		Layers:     layers,
		Projection: projection,
		client:     client,
		log:        log,
	}
}

func formatExtent(e grid.Extent) string {
	return fmt.Sprintf("%f,%f,%f,%f", e[0], e[1], e[2], e[3])
}

func (h *HTTP) getMapURL(m *tile.Map) (string, error) {
	u, err := url.Parse(h.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing source url: %w", err)
	}
	format := strings.ToLower(m.Tileset.Format)
	if format == "jpg" {
		format = "jpeg"
	}
	if format == "" {
		format = "png"
	}
	q := u.Query()
	q.Set("SERVICE", "WMS")
	q.Set("REQUEST", "GetMap")
	q.Set("MAP", h.MapFile)
	q.Set("BBOX", formatExtent(m.Extent))
	q.Set("WIDTH", strconv.Itoa(m.Width))
	q.Set("HEIGHT", strconv.Itoa(m.Height))
	q.Set("SRS", h.Projection)
	q.Set("FORMAT", "image/"+format)
	q.Set("TRANSPARENT", "true")
	q.Set("LAYERS", h.Layers)
	for _, d := range m.Dimensions {
		q.Set("DIM_"+strings.ToUpper(d.Name), d.Value)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (h *HTTP) RenderMap(ctx context.Context, m *tile.Map) (*image.RGBA, error) {
	reqURL, err := h.getMapURL(m)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, ctxerr.Internal("building source request: %v", err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, ctxerr.UpstreamFailure("source request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := ioutil.ReadAll(resp.Body)
		return nil, ctxerr.UpstreamFailure("source returned %d: %s", resp.StatusCode, msg)
	}
	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, ctxerr.UpstreamFailure("decoding source response: %v", err)
	}
	rgba, ok := img.(*image.RGBA)
	if !ok {
		b := img.Bounds()
		rgba = image.NewRGBA(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				rgba.Set(x, y, img.At(x, y))
			}
		}
	}
	return rgba, nil
}

func (h *HTTP) QueryInfo(ctx context.Context, fi *tile.FeatureInfo) ([]byte, string, error) {
	u, err := url.Parse(h.BaseURL)
	if err != nil {
		return nil, "", fmt.Errorf("parsing source url: %w", err)
	}
	q := u.Query()
	q.Set("SERVICE", "WMS")
	q.Set("REQUEST", "GetFeatureInfo")
	q.Set("MAP", h.MapFile)
	q.Set("QUERY_LAYERS", h.Layers)
	q.Set("X", strconv.FormatFloat(fi.X, 'f', -1, 64))
	q.Set("Y", strconv.FormatFloat(fi.Y, 'f', -1, 64))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", ctxerr.Internal("building source request: %v", err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, "", ctxerr.UpstreamFailure("source request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := ioutil.ReadAll(resp.Body)
		return nil, "", ctxerr.UpstreamFailure("source returned %d: %s", resp.StatusCode, msg)
	}
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, "", ctxerr.UpstreamFailure("reading feature info response: %v", err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}
