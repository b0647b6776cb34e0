package biasmap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"
)

const (
	defaultCatalogURL = "https://datahub.io/core/geo-countries/r/countries.geojson"
	maxCatalogBytes   = 256 << 20
)

// RegionSource yields the ordered region list. Implementations load once.
type RegionSource interface {
	Load(ctx context.Context) ([]Region, error)
}

// ShapeSource is implemented by region sources that also carry outlines.
type ShapeSource interface {
	Shapes(ctx context.Context) (map[string]Shape, error)
}

// Point is a longitude/latitude pair in degrees.
type Point struct {
	Lon, Lat float64
}

// Shape is the outline of one region as closed rings. Holes are rings too and
// are cut out with the even-odd fill rule.
type Shape [][]Point

// Catalog is a parsed region list plus outlines keyed by geometry key.
type Catalog struct {
	Regions []Region
	Shapes  map[string]Shape
}

type geoFeatureCollection struct {
	Features []struct {
		Properties map[string]any `json:"properties"`
		Geometry   *geoGeometry   `json:"geometry"`
	} `json:"features"`
}

type geoGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// ParseGeoJSON extracts regions from a GeoJSON feature collection. nameProp
// names the display property and keyProp the geometry join property.
func ParseGeoJSON(r io.Reader, nameProp, keyProp string) ([]Region, error) {
	c, err := ParseGeoJSONCatalog(r, nameProp, keyProp)
	if err != nil {
		return nil, err
	}
	return c.Regions, nil
}

// ParseGeoJSONCatalog is ParseGeoJSON that also keeps Polygon and
// MultiPolygon outlines. Other geometry types are ignored.
func ParseGeoJSONCatalog(r io.Reader, nameProp, keyProp string) (Catalog, error) {
	if keyProp == "" {
		keyProp = nameProp
	}
	var fc geoFeatureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return Catalog{}, fmt.Errorf("%w: decode geojson: %w", ErrCatalogUnavailable, err)
	}
	regions := make([]Region, 0, len(fc.Features))
	shapes := make(map[string]Shape, len(fc.Features))
	seen := make(map[string]struct{}, len(fc.Features))
	for i, f := range fc.Features {
		name := NormalizeText(propertyString(f.Properties, nameProp))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			return Catalog{}, fmt.Errorf("%w: duplicate region %q at feature %d", ErrCatalogUnavailable, name, i)
		}
		seen[name] = struct{}{}
		key := propertyString(f.Properties, keyProp)
		if key == "" {
			key = name
		}
		regions = append(regions, Region{Name: name, GeometryKey: key})

		shape, err := decodeShape(f.Geometry)
		if err != nil {
			return Catalog{}, fmt.Errorf("%w: geometry of %q: %w", ErrCatalogUnavailable, name, err)
		}
		if len(shape) > 0 {
			shapes[key] = append(shapes[key], shape...)
		}
	}
	if len(regions) == 0 {
		return Catalog{}, fmt.Errorf("%w: no features with property %q", ErrCatalogUnavailable, nameProp)
	}
	return Catalog{Regions: regions, Shapes: shapes}, nil
}

func decodeShape(g *geoGeometry) (Shape, error) {
	if g == nil || len(g.Coordinates) == 0 {
		return nil, nil
	}
	switch g.Type {
	case "Polygon":
		var poly [][][]float64
		if err := json.Unmarshal(g.Coordinates, &poly); err != nil {
			return nil, err
		}
		return ringsToShape(poly), nil
	case "MultiPolygon":
		var multi [][][][]float64
		if err := json.Unmarshal(g.Coordinates, &multi); err != nil {
			return nil, err
		}
		var out Shape
		for _, poly := range multi {
			out = append(out, ringsToShape(poly)...)
		}
		return out, nil
	}
	return nil, nil
}

func ringsToShape(rings [][][]float64) Shape {
	out := make(Shape, 0, len(rings))
	for _, ring := range rings {
		pts := make([]Point, 0, len(ring))
		for _, c := range ring {
			if len(c) >= 2 {
				pts = append(pts, Point{Lon: c[0], Lat: c[1]})
			}
		}
		if len(pts) >= 3 {
			out = append(out, pts)
		}
	}
	return out
}

func propertyString(props map[string]any, key string) string {
	v, ok := props[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// StaticCatalog serves a fixed region list.
type StaticCatalog []Region

// Load returns a copy of the regions.
func (s StaticCatalog) Load(context.Context) ([]Region, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("%w: empty catalog", ErrCatalogUnavailable)
	}
	return cloneRegions(s), nil
}

// CatalogLoader reads the country GeoJSON from disk, downloading it into the
// cache directory the first time when only a URL is configured.
type CatalogLoader struct {
	cfg      CatalogConfig
	client   *http.Client
	logger   *log.Logger
	maxBytes int64

	once    sync.Once
	regions []Region
	shapes  map[string]Shape
	err     error
}

// NewCatalogLoader prepares a loader; nothing is read until Load.
func NewCatalogLoader(cfg CatalogConfig, logger *log.Logger) *CatalogLoader {
	return &CatalogLoader{
		cfg:    cfg,
		client: &http.Client{Timeout: 60 * time.Second},
		logger: logger,
	}
}

// Load reads the catalog on first use and replays that outcome afterwards.
func (l *CatalogLoader) Load(ctx context.Context) ([]Region, error) {
	l.loadOnce(ctx)
	if l.err != nil {
		return nil, l.err
	}
	return cloneRegions(l.regions), nil
}

// Shapes returns the region outlines keyed by geometry key, loading the
// catalog first if needed. The rings are shared and must not be modified.
func (l *CatalogLoader) Shapes(ctx context.Context) (map[string]Shape, error) {
	l.loadOnce(ctx)
	if l.err != nil {
		return nil, l.err
	}
	out := make(map[string]Shape, len(l.shapes))
	for k, v := range l.shapes {
		out[k] = v
	}
	return out, nil
}

func (l *CatalogLoader) loadOnce(ctx context.Context) {
	l.once.Do(func() {
		var c Catalog
		c, l.err = l.load(ctx)
		l.regions, l.shapes = c.Regions, c.Shapes
		if l.err == nil && l.logger != nil {
			l.logger.Printf("Loaded %d regions, %d outlines", len(l.regions), len(l.shapes))
		}
	})
}

func (l *CatalogLoader) load(ctx context.Context) (Catalog, error) {
	p, err := l.resolvePath(ctx)
	if err != nil {
		return Catalog{}, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
	f, err := os.Open(p)
	if err != nil {
		return Catalog{}, fmt.Errorf("%w: open %s: %w", ErrCatalogUnavailable, filepath.Base(p), err)
	}
	defer f.Close()
	return ParseGeoJSONCatalog(f, l.cfg.NameProperty, l.cfg.KeyProperty)
}

func (l *CatalogLoader) resolvePath(ctx context.Context) (string, error) {
	if l.cfg.Path != "" {
		return l.cfg.Path, nil
	}
	if l.cfg.URL == "" {
		return "", errors.New("neither catalog path nor url configured")
	}
	u, err := url.Parse(l.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse catalog url: %w", err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		name = "countries.geojson"
	}
	dir := l.cfg.CacheDir
	if dir == "" {
		dir = "cache"
	}
	dst := filepath.Join(dir, name)
	if _, err := os.Stat(dst); err == nil {
		return dst, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}
	if l.logger != nil {
		l.logger.Printf("Downloading %s", l.cfg.URL)
	}
	if err := l.download(ctx, l.cfg.URL, dst); err != nil {
		return "", err
	}
	return dst, nil
}

func (l *CatalogLoader) download(ctx context.Context, src, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch catalog: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("fetch catalog: status %d", resp.StatusCode)
	}
	tmp := dst + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(tmp), err)
	}
	limit := l.maxBytes
	if limit <= 0 {
		limit = maxCatalogBytes
	}
	n, err := io.Copy(out, io.LimitReader(resp.Body, limit+1))
	if err == nil && n > limit {
		err = fmt.Errorf("larger than %d bytes", limit)
	}
	if err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("write catalog: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}

func cloneRegions(in []Region) []Region {
	out := make([]Region, len(in))
	copy(out, in)
	return out
}
